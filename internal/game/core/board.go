package core

import "strings"

// DefaultWinLength is the classic connect-four rule.
const DefaultWinLength = 4

// Move is a single placement recorded on the move stack.
type Move struct {
	Col, Row int
}

// Board is a vertical-drop grid. Row 0 is the top row; pieces fall toward Height-1.
type Board struct {
	w, h, n int
	cells   []Player // length = w*h (row-major)
	moves   []Move
}

// BoardOption configures a board at construction time.
type BoardOption func(b *Board)

// WithWinLength sets how many marks in a row are needed to win.
func WithWinLength(n int) BoardOption {
	return func(b *Board) {
		if n > 0 {
			b.n = n
		}
	}
}

func NewBoard(w, h int, opts ...BoardOption) *Board {
	b := &Board{w: w, h: h, n: DefaultWinLength}
	for _, opt := range opts {
		opt(b)
	}
	b.cells = make([]Player, w*h)
	b.moves = make([]Move, 0, w*h)
	return b
}

// NewBoardFromGeometry builds an empty board for g.
func NewBoardFromGeometry(g Geometry) *Board {
	return NewBoard(g.Width, g.Height, WithWinLength(g.WinLength))
}

func (b *Board) Width() int     { return b.w }
func (b *Board) Height() int    { return b.h }
func (b *Board) WinLength() int { return b.n }
func (b *Board) Size() int      { return len(b.cells) }
func (b *Board) MoveCount() int { return len(b.moves) }
func (b *Board) IsFull() bool   { return len(b.moves) == len(b.cells) }

func (b *Board) Geometry() Geometry {
	return Geometry{Width: b.w, Height: b.h, WinLength: b.n}
}

func (b *Board) Idx(x, y int) int { return y*b.w + x }

// InBounds checks if coordinates are within board boundaries
func (b *Board) InBounds(x, y int) bool {
	return x >= 0 && x < b.w && y >= 0 && y < b.h
}

// Cell returns the owner of (x, y), or Empty when out of bounds.
func (b *Board) Cell(x, y int) Player {
	if !b.InBounds(x, y) {
		return Empty
	}
	return b.cells[b.Idx(x, y)]
}

// Cells exposes the row-major grid. Callers must not modify it.
func (b *Board) Cells() []Player { return b.cells }

// Moves returns a copy of the move stack in play order.
func (b *Board) Moves() []Move {
	out := make([]Move, len(b.moves))
	copy(out, b.moves)
	return out
}

// LastMove returns the most recent placement.
func (b *Board) LastMove() (Move, bool) {
	if len(b.moves) == 0 {
		return Move{}, false
	}
	return b.moves[len(b.moves)-1], true
}

// Reset clears every cell and the move stack for a new game.
func (b *Board) Reset() {
	for i := range b.cells {
		b.cells[i] = Empty
	}
	b.moves = b.moves[:0]
}

// IsValidPlay reports whether col is on the board and its top cell is empty.
func (b *Board) IsValidPlay(col int) bool {
	return col >= 0 && col < b.w && b.cells[col] == Empty
}

// LegalColumns lists the playable columns in increasing order.
func (b *Board) LegalColumns() []int {
	cols := make([]int, 0, b.w)
	for x := 0; x < b.w; x++ {
		if b.cells[x] == Empty {
			cols = append(cols, x)
		}
	}
	return cols
}

// Play drops a mark for p into col. It returns false and leaves the board untouched
// when the column is out of range, full, or p is not a seated player.
func (b *Board) Play(p Player, col int) bool {
	if !p.Valid() || !b.IsValidPlay(col) {
		return false
	}
	for y := b.h - 1; y >= 0; y-- {
		idx := b.Idx(col, y)
		if b.cells[idx] == Empty {
			b.cells[idx] = p
			b.moves = append(b.moves, Move{Col: col, Row: y})
			return true
		}
	}
	return false
}

// Undo removes the most recent placement.
func (b *Board) Undo() bool {
	if len(b.moves) == 0 {
		return false
	}
	last := b.moves[len(b.moves)-1]
	b.moves = b.moves[:len(b.moves)-1]
	b.cells[b.Idx(last.Col, last.Row)] = Empty
	return true
}

// Clone returns an independent snapshot, move stack included.
func (b *Board) Clone() *Board {
	c := &Board{w: b.w, h: b.h, n: b.n}
	c.cells = make([]Player, len(b.cells))
	copy(c.cells, b.cells)
	c.moves = make([]Move, len(b.moves), cap(b.moves))
	copy(c.moves, b.moves)
	return c
}

// Directions scanned for lines: right, down, down-right, down-left.
var lineDirections = [4][2]int{{1, 0}, {0, 1}, {1, 1}, {-1, 1}}

// State classifies the position. Every occupied cell is checked as the start of a
// line, so positions that were not built move by move are classified correctly too.
func (b *Board) State() Outcome {
	for y := 0; y < b.h; y++ {
		for x := 0; x < b.w; x++ {
			p := b.cells[b.Idx(x, y)]
			if p == Empty {
				continue
			}
			for _, d := range lineDirections {
				if b.lineFrom(x, y, d[0], d[1], p) {
					return Win(p)
				}
			}
		}
	}
	if b.IsFull() {
		return Draw
	}
	return Running
}

func (b *Board) lineFrom(x, y, dx, dy int, p Player) bool {
	endX, endY := x+dx*(b.n-1), y+dy*(b.n-1)
	if !b.InBounds(endX, endY) {
		return false
	}
	for i := 1; i < b.n; i++ {
		if b.cells[b.Idx(x+dx*i, y+dy*i)] != p {
			return false
		}
	}
	return true
}

// String renders the grid with 'X', 'O' and '.' glyphs, one row per line.
func (b *Board) String() string {
	var sb strings.Builder
	for y := 0; y < b.h; y++ {
		for x := 0; x < b.w; x++ {
			if x > 0 {
				sb.WriteString(" | ")
			}
			sb.WriteByte(b.Cell(x, y).Glyph())
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
