package shell

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"src.tabl.sh/pkg/strutil"
	"src.tabl.sh/pkg/table"
	"src.tabl.sh/pkg/token"
	"src.tabl.sh/pkg/wcwidth"
)

// Widest a single column is printed.
const maxColumnWidth = 24

func (s *Session) cmdShow(_ context.Context, args string) error {
	t, err := s.table()
	if name := strings.TrimSpace(args); name != "" {
		var ok bool
		if t, ok = s.Book.TableNamed(name); !ok {
			return fmt.Errorf("table %q: %w", name, table.ErrNoSuchElement)
		}
	} else if err != nil {
		return err
	}
	fmt.Fprint(s.out, render(s.Book, t, s.width()))
	return nil
}

// render lays out a table as text, one line per row, headed by the column
// labels or indices. Lines are cut at width if it is positive.
func render(b *table.Book, t token.ElementID, width int) string {
	rows, cols := b.Rows(t), b.Columns(t)
	grid := make([][]string, len(rows)+1)
	grid[0] = make([]string, len(cols)+1)
	for j, col := range cols {
		grid[0][j+1] = heading(b, col, j)
	}
	for i, row := range rows {
		line := make([]string, len(cols)+1)
		line[0] = heading(b, row, i)
		for j, col := range cols {
			if cell, ok := b.Cell(row, col); ok {
				line[j+1] = strutil.Ellipsize(b.Value(cell).String(), maxColumnWidth)
			}
		}
		grid[i+1] = line
	}

	widths := make([]int, len(cols)+1)
	for _, line := range grid {
		for j, s := range line {
			widths[j] = max(widths[j], min(wcwidth.Of(s), maxColumnWidth))
		}
	}

	var sb strings.Builder
	for _, line := range grid {
		var lb strings.Builder
		for j, s := range line {
			if j > 0 {
				lb.WriteString("  ")
			}
			lb.WriteString(wcwidth.Force(s, widths[j]))
		}
		text := strings.TrimRight(lb.String(), " ")
		if width > 0 {
			text = wcwidth.Trim(text, width)
		}
		sb.WriteString(text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func heading(b *table.Book, id token.ElementID, i int) string {
	if l := b.Label(id); l != "" {
		return l
	}
	return strconv.Itoa(i + 1)
}
