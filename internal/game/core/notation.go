package core

import "fmt"

// FromRows builds a board from top-to-bottom rows of 'X', 'O' and '.' glyphs.
// Columns are filled bottom-up through Play, so the move stack is consistent with
// the grid, but floating marks (a mark above an empty cell) are rejected.
func FromRows(rows []string, opts ...BoardOption) (*Board, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrInvalidGeometry)
	}
	w := len(rows[0])
	for i, r := range rows {
		if len(r) != w {
			return nil, fmt.Errorf("%w: row %d has width %d, want %d", ErrInvalidGeometry, i, len(r), w)
		}
	}
	b := NewBoard(w, len(rows), opts...)
	for x := 0; x < w; x++ {
		gap := false
		for y := len(rows) - 1; y >= 0; y-- {
			p, err := parseGlyph(rows[y][x])
			if err != nil {
				return nil, err
			}
			if p == Empty {
				gap = true
				continue
			}
			if gap || !b.Play(p, x) {
				return nil, fmt.Errorf("%w: floating mark at (%d,%d)", ErrIllegalMove, x, y)
			}
		}
	}
	return b, nil
}

func parseGlyph(c byte) (Player, error) {
	switch c {
	case 'X', 'x', '1':
		return Player1, nil
	case 'O', 'o', '2':
		return Player2, nil
	case '.', ' ', '0':
		return Empty, nil
	}
	return Empty, fmt.Errorf("unknown glyph %q", c)
}
