package palette

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// ErrInvalidColor is returned for anything that is not a 24-bit "#RRGGBB" color.
var ErrInvalidColor = errors.New("invalid color")

// Palette is a small set of colors that look good next to each other.
type Palette []string

// Default is the curated set of harmonious triads.
var Default = []Palette{
	{"#FF6B6B", "#4ECDC4", "#45B7D1"},
	{"#FFA07A", "#98D8C8", "#F7DC6F"},
	{"#BB8FCE", "#85C1E2", "#F8C471"},
	{"#85C1E2", "#F9E79F", "#82E0AA"},
	{"#F8B195", "#C06C84", "#6C5B7B"},
	{"#FFD93D", "#6BCF7F", "#4D96FF"},
	{"#FF8C42", "#42B883", "#64C4ED"},
	{"#FF6B9D", "#C44569", "#6C5B7B"},
}

// Assigner picks message colors from a closed set of palettes.
// It is safe for concurrent use.
type Assigner struct {
	mu       sync.Mutex
	rng      *rand.Rand
	palettes []Palette
}

// NewAssigner creates an Assigner over palettes. A nil src seeds from the
// runtime's random source.
func NewAssigner(palettes []Palette, src rand.Source) (*Assigner, error) {
	if err := Validate(palettes); err != nil {
		return nil, err
	}
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	cp := make([]Palette, len(palettes))
	for i, p := range palettes {
		cp[i] = slices.Clone(p)
	}
	return &Assigner{rng: rand.New(src), palettes: cp}, nil
}

// Pick selects a palette uniformly at random, then a color within it.
func (a *Assigner) Pick() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := a.palettes[a.rng.IntN(len(a.palettes))]
	return p[a.rng.IntN(len(p))]
}

// Contains reports whether color belongs to one of the assigner's palettes.
// Comparison is case-insensitive.
func (a *Assigner) Contains(color string) bool {
	for _, p := range a.palettes {
		for _, c := range p {
			if strings.EqualFold(c, color) {
				return true
			}
		}
	}
	return false
}

// Validate checks that palettes is non-empty, every palette is non-empty,
// and every entry is a "#RRGGBB" color.
func Validate(palettes []Palette) error {
	if len(palettes) == 0 {
		return fmt.Errorf("palette: no palettes defined")
	}
	for i, p := range palettes {
		if len(p) == 0 {
			return fmt.Errorf("palette: palette #%d is empty", i)
		}
		for _, c := range p {
			if _, err := parse(c); err != nil {
				return fmt.Errorf("palette: palette #%d: %w", i, err)
			}
		}
	}
	return nil
}

// Lighten adds round(2.55*percent) to each RGB channel, clamps to [0,255],
// and returns the result as lowercase "#rrggbb". Negative percentages darken.
func Lighten(hex string, percent float64) (string, error) {
	c, err := parse(hex)
	if err != nil {
		return "", err
	}
	// Half-up rounding, so -0.5 goes to 0 rather than -1.
	amt := int(math.Floor(2.55*percent + 0.5))

	r, g, b := c.RGB255()
	return fmt.Sprintf("#%02x%02x%02x",
		clamp(int(r)+amt), clamp(int(g)+amt), clamp(int(b)+amt)), nil
}

func parse(hex string) (colorful.Color, error) {
	if len(hex) != 7 || hex[0] != '#' {
		return colorful.Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, hex)
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, hex)
	}
	return c, nil
}

func clamp(v int) int {
	return min(max(v, 0), 255)
}
