package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ASCII art banner.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	// Cool gradient (Teal/Cyan/Sky)
	lines := []struct {
		text  string
		color string
	}{
		{"  _____         _   _____                  _     ", "#2dd4bf"},
		{" |_   _|__  ___| |_|_   _| __ ___ _ __   __| |___ ", "#22d3ee"},
		{"   | |/ _ \\/ __| '_ \\| || '__/ _ \\ '_ \\ / _` / __|", "#38bdf8"},
		{"   | |  __/ (__| | | | || | |  __/ | | | (_| \\__ \\", "#60a5fa"},
		{"   |_|\\___|\\___|_| |_|_||_|  \\___|_| |_|\\__,_|___/", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
