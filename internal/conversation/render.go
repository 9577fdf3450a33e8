package conversation

import (
	"fmt"
	"io"
	"sync"
)

// Role identifies who a rendered message belongs to
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one line of visible conversation output
type Message struct {
	TurnID string
	Role   Role
	Text   string
}

// Renderer shows conversation text to the user
type Renderer interface {
	Render(msg Message) error
}

// RendererFunc adapts a plain function to Renderer
type RendererFunc func(msg Message) error

// Render calls f(msg)
func (f RendererFunc) Render(msg Message) error {
	return f(msg)
}

// TextRenderer writes one labelled line per message
type TextRenderer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTextRenderer creates a renderer writing to w
func NewTextRenderer(w io.Writer) *TextRenderer {
	return &TextRenderer{w: w}
}

// Render writes msg as "Label: text"
func (r *TextRenderer) Render(msg Message) error {
	label := "*"
	switch msg.Role {
	case RoleUser:
		label = "You"
	case RoleAssistant:
		label = "Assistant"
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := fmt.Fprintf(r.w, "%s: %s\n", label, msg.Text)
	return err
}

type discardRenderer struct{}

func (discardRenderer) Render(Message) error { return nil }
