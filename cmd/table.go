package cmd

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
)

// table renders a simple column-aligned list for CLI list output (`pages
// list`, `workspaces list`), padding by display width rather than byte or
// rune count so unicode titles still line up.
type table struct {
	headers []string
	rows    [][]string
}

func newTable(headers ...string) *table {
	return &table{headers: headers}
}

func (t *table) addRow(cols ...string) {
	t.rows = append(t.rows, cols)
}

func (t *table) print() {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, col := range row {
			if w := runewidth.StringWidth(col); i < len(widths) && w > widths[i] {
				widths[i] = w
			}
		}
	}

	printRow := func(cols []string) {
		parts := make([]string, len(cols))
		for i, col := range cols {
			pad := widths[i] - runewidth.StringWidth(col)
			parts[i] = col + strings.Repeat(" ", pad)
		}
		fmt.Println(strings.Join(parts, "  "))
	}

	printRow(t.headers)
	for _, row := range t.rows {
		printRow(row)
	}
}
