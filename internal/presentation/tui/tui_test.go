package tui_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/chatflow/internal/presentation/tui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "weather-bot")

	out := buf.String()
	assert.Contains(t, out, "flow: weather-bot")
	assert.Contains(t, out, `\___||_|`)
}

func TestNewRenderer(t *testing.T) {
	render := tui.NewRenderer(60)
	out, err := render("It's **sunny**.")
	require.NoError(t, err)
	assert.Contains(t, out, "sunny")
}
