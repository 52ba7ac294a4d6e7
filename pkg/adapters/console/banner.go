package console

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the botflow banner to w.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	lines := []struct{ text, color string }{
		{"  _           _    __ _", "#818cf8"},
		{" | |__   ___ | |_ / _| | _____      __", "#a78bfa"},
		{" | '_ \\ / _ \\| __| |_| |/ _ \\ \\ /\\ / /", "#c084fc"},
		{" | |_) | (_) | |_|  _| | (_) \\ V  V /", "#e879f9"},
		{" |_.__/ \\___/ \\__|_| |_|\\___/ \\_/\\_/", "#f472b6"},
	}
	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
