package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{"                         _                          _     ", "#818cf8"},
	{"   __ _  __ _  ___ _ __ | |_ __ _ _ __ __ _ _ __ | |__  ", "#a78bfa"},
	{"  / _` |/ _` |/ _ \\ '_ \\| __/ _` | '__/ _` | '_ \\| '_ \\ ", "#c084fc"},
	{" | (_| | (_| |  __/ | | | || (_| | | | (_| | |_) | | | |", "#e879f9"},
	{"  \\__,_|\\__, |\\___|_| |_|\\__\\__, |_|  \\__,_| .__/|_| |_|", "#f472b6"},
	{"        |___/               |___/          |_|          ", "#fb7185"},
}

// PrintBanner writes the agentgraph banner to w, colored when the terminal supports it.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, line := range bannerLines {
		fmt.Fprintln(w, out.String(line.text).Foreground(out.Color(line.color)))
	}
	fmt.Fprintln(w)
}

// Faint renders s dimmed, for hints and metadata.
func Faint(w io.Writer, s string) string {
	return termenv.NewOutput(w).String(s).Faint().String()
}
