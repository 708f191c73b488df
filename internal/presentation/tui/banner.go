// Package tui holds terminal presentation helpers for the chat command.
package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []string{
	`        _           _    __ _`,
	`   ___ | |__   __ _| |_ / _| | _____      __`,
	`  / __|| '_ \ / _' | __| |_| |/ _ \ \ /\ / /`,
	` | (__ | | | | (_| | |_|  _| | (_) \ V  V /`,
	`  \___||_| |_|\__,_|\__|_| |_|\___/ \_/\_/`,
}

var bannerColors = []string{"#22d3ee", "#38bdf8", "#60a5fa", "#818cf8", "#a78bfa"}

// PrintBanner writes the chatflow banner, colored when the terminal supports it.
func PrintBanner(w io.Writer, flowID string) {
	p := termenv.NewOutput(w).ColorProfile()

	fmt.Fprintln(w)
	for i, line := range bannerLines {
		fmt.Fprintln(w, termenv.String(line).Foreground(p.Color(bannerColors[i%len(bannerColors)])))
	}
	if flowID != "" {
		fmt.Fprintln(w, termenv.String("  flow: "+flowID).Faint())
	}
	fmt.Fprintln(w)
}
