package grid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// DesktopCellSize is the fixed cell edge used on wide viewports.
	DesktopCellSize = 20

	// NarrowWidth is the viewport width below which touch-friendly cells are used.
	NarrowWidth = 768

	// MaxViewportSide bounds both viewport dimensions, in pixels.
	MaxViewportSide = 8192
)

var (
	// ErrMalformedCellID is returned when a cell id is not of the form "row-col".
	ErrMalformedCellID = errors.New("malformed cell id")

	// ErrStaleCoordinate is returned when a cell id does not map onto the current layout.
	ErrStaleCoordinate = errors.New("stale cell coordinate")

	// ErrInvalidViewport is returned for a negative or oversized viewport.
	ErrInvalidViewport = errors.New("invalid viewport")
)

// Coordinate addresses a single cell. Row and Col are zero-based.
type Coordinate struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// ID returns the canonical "row-col" key for c.
func (c Coordinate) ID() CellID {
	return CellID(strconv.Itoa(c.Row) + "-" + strconv.Itoa(c.Col))
}

// CellID is the canonical string key of a Coordinate.
type CellID string

// Coordinate parses the id back into a Coordinate.
func (id CellID) Coordinate() (Coordinate, error) {
	return ParseCellID(string(id))
}

// ParseCellID parses a "row-col" key.
func ParseCellID(s string) (Coordinate, error) {
	rowStr, colStr, ok := strings.Cut(s, "-")
	if !ok {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrMalformedCellID, s)
	}
	row, err := strconv.Atoi(rowStr)
	if err != nil || row < 0 {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrMalformedCellID, s)
	}
	col, err := strconv.Atoi(colStr)
	if err != nil || col < 0 {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrMalformedCellID, s)
	}
	return Coordinate{Row: row, Col: col}, nil
}

// Viewport describes the drawable area in CSS pixels. Touch marks a
// touch-first device class.
type Viewport struct {
	Width  int  `json:"width"`
	Height int  `json:"height"`
	Touch  bool `json:"touch"`
}

// Validate rejects negative dimensions and dimensions above MaxViewportSide.
func (v Viewport) Validate() error {
	if v.Width < 0 || v.Height < 0 || v.Width > MaxViewportSide || v.Height > MaxViewportSide {
		return fmt.Errorf("%w: %dx%d, each side must be within 0..%d", ErrInvalidViewport, v.Width, v.Height, MaxViewportSide)
	}
	return nil
}

// Layout is the grid derived from a Viewport.
type Layout struct {
	CellSize int `json:"cell_size"`
	Rows     int `json:"rows"`
	Cols     int `json:"cols"`
}

// CellSize returns the cell edge length in pixels for the viewport.
func CellSize(v Viewport) int {
	if v.Width >= NarrowWidth && !v.Touch {
		return DesktopCellSize
	}
	switch {
	case v.Width < 360:
		return 25
	case v.Width < 480:
		return 30
	default:
		return 35
	}
}

// Compute derives the grid layout for a viewport. Negative dimensions are
// treated as zero.
func Compute(v Viewport) Layout {
	size := CellSize(v)
	w, h := max(v.Width, 0), max(v.Height, 0)
	return Layout{
		CellSize: size,
		Rows:     h / size,
		Cols:     w / size,
	}
}

// Len returns the number of cells in the layout.
func (l Layout) Len() int {
	return l.Rows * l.Cols
}

// Contains reports whether c is a cell of the layout.
func (l Layout) Contains(c Coordinate) bool {
	return c.Row >= 0 && c.Col >= 0 && c.Row < l.Rows && c.Col < l.Cols
}

// Resolve maps a cell id onto the layout. It returns ErrStaleCoordinate when
// the id is well formed but outside the grid.
func (l Layout) Resolve(id CellID) (Coordinate, error) {
	c, err := id.Coordinate()
	if err != nil {
		return Coordinate{}, err
	}
	if !l.Contains(c) {
		return Coordinate{}, fmt.Errorf("%w: %s not in %dx%d", ErrStaleCoordinate, id, l.Rows, l.Cols)
	}
	return c, nil
}

// CellAt maps a pixel position to the cell under it.
func (l Layout) CellAt(x, y int) (Coordinate, bool) {
	if x < 0 || y < 0 || l.CellSize <= 0 {
		return Coordinate{}, false
	}
	c := Coordinate{Row: y / l.CellSize, Col: x / l.CellSize}
	return c, l.Contains(c)
}
