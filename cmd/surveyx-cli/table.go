package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

const (
	defaultTableWidth = 100
	minColumnWidth    = 4
)

func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultTableWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return defaultTableWidth
	}
	return width
}

// printTable writes rows as aligned columns, shrinking the widest columns
// until the table fits the terminal.
func printTable(w io.Writer, header []string, rows [][]string) {
	if len(header) == 0 {
		return
	}
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range rows {
		for i := 0; i < len(header) && i < len(row); i++ {
			if n := utf8.RuneCountInString(row[i]); n > widths[i] {
				widths[i] = n
			}
		}
	}
	fitWidths(widths, terminalWidth()-2*(len(header)-1))

	writeRow := func(cells []string) {
		parts := make([]string, len(header))
		for i := range header {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = pad(truncate(cell, widths[i]), widths[i])
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}
	writeRow(header)
	sep := make([]string, len(header))
	for i, width := range widths {
		sep[i] = strings.Repeat("-", width)
	}
	fmt.Fprintln(w, strings.Join(sep, "  "))
	for _, row := range rows {
		writeRow(row)
	}
}

func fitWidths(widths []int, budget int) {
	for {
		total := 0
		widest := 0
		for i, w := range widths {
			total += w
			if w > widths[widest] {
				widest = i
			}
		}
		if total <= budget || widths[widest] <= minColumnWidth {
			return
		}
		widths[widest]--
	}
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}

func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
