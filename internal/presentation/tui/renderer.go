package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
// The style follows the terminal background.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(100),
	)

	return func(markdown string) (string, error) {
		if err != nil {
			return "", err
		}
		return r.Render(markdown)
	}
}

// Preview renders at most maxLines lines of a markdown report.
func Preview(markdown string, maxLines int) (string, error) {
	if maxLines > 0 {
		markdown = firstLines(markdown, maxLines)
	}
	return NewRenderer()(markdown)
}

func firstLines(s string, n int) string {
	count := 0
	for i, r := range s {
		if r == '\n' {
			count++
			if count == n {
				return s[:i+1]
			}
		}
	}
	return s
}
