package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
)

// JSONMessage is one line written by JSONHandler.
type JSONMessage struct {
	Type string `json:"type"` // "message" or "system"
	Text string `json:"text"`
}

// JSONInput is the object form accepted on input. A bare JSON string or plain text is also accepted.
type JSONInput struct {
	Text string `json:"text"`
}

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder

	mu sync.Mutex
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

func (h *JSONHandler) Output(ctx context.Context, text string) error {
	return h.emit(JSONMessage{Type: "message", Text: text})
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.emit(JSONMessage{Type: "system", Text: msg})
}

func (h *JSONHandler) emit(m JSONMessage) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Encoder.Encode(m)
}

// Input reads one line. Blank lines are skipped.
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		line, err := h.Reader.ReadString('\n')
		text := strings.TrimSpace(line)
		if text == "" {
			if err != nil {
				return "", err
			}
			continue
		}
		return decodeInput(text), nil
	}
}

func decodeInput(text string) string {
	var obj JSONInput
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return obj.Text
	}
	var val string
	if err := json.Unmarshal([]byte(text), &val); err == nil {
		return val
	}
	return text
}
