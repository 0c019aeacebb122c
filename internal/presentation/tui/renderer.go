// Package tui renders chat output for terminals.
package tui

import (
	"github.com/charmbracelet/glamour"
)

// Renderer turns markdown answers into styled terminal text.
type Renderer func(string) (string, error)

// NewRenderer returns a glamour renderer wrapping at width columns (0 keeps
// glamour's default). When glamour cannot be initialized, text passes through.
func NewRenderer(width int) Renderer {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return Plain
	}
	return r.Render
}

// Plain returns markdown unchanged.
func Plain(markdown string) (string, error) {
	return markdown, nil
}
