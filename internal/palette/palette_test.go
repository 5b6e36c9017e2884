package palette

import (
	"errors"
	"math/rand/v2"
	"testing"
)

func TestLighten(t *testing.T) {
	tests := []struct {
		in      string
		percent float64
		want    string
	}{
		{"#000000", 20, "#333333"},
		{"#FFFFFF", 20, "#ffffff"},
		{"#FF6B6B", 20, "#ff9e9e"},
		{"#4ECDC4", 20, "#81fff7"},
		{"#101010", -20, "#000000"},
		{"#808080", 0, "#808080"},
	}

	for _, tt := range tests {
		got, err := Lighten(tt.in, tt.percent)
		if err != nil {
			t.Fatalf("Lighten(%q, %v): %v", tt.in, tt.percent, err)
		}
		if got != tt.want {
			t.Errorf("Lighten(%q, %v): got %q, want %q", tt.in, tt.percent, got, tt.want)
		}
	}
}

func TestLighten_Invalid(t *testing.T) {
	for _, in := range []string{"", "000000", "#fff", "#GGGGGG", "#1234567"} {
		if _, err := Lighten(in, 20); !errors.Is(err, ErrInvalidColor) {
			t.Errorf("Lighten(%q): got %v, want ErrInvalidColor", in, err)
		}
	}
}

func TestAssigner_PickFromClosedSet(t *testing.T) {
	a, err := NewAssigner(Default, rand.NewPCG(1, 2))
	if err != nil {
		t.Fatalf("NewAssigner: %v", err)
	}

	seen := make(map[string]bool)
	for i := 0; i < 2000; i++ {
		c := a.Pick()
		if !a.Contains(c) {
			t.Fatalf("Pick returned %q outside the palette set", c)
		}
		seen[c] = true
	}

	// Default has 22 distinct colors (#85C1E2 and #6C5B7B appear twice).
	if len(seen) != 22 {
		t.Errorf("distinct colors: got %d, want 22", len(seen))
	}
}

func TestAssigner_Deterministic(t *testing.T) {
	a1, _ := NewAssigner(Default, rand.NewPCG(7, 7))
	a2, _ := NewAssigner(Default, rand.NewPCG(7, 7))
	for i := 0; i < 50; i++ {
		if c1, c2 := a1.Pick(), a2.Pick(); c1 != c2 {
			t.Fatalf("pick %d: %q != %q", i, c1, c2)
		}
	}
}

func TestAssigner_CopiesPalettes(t *testing.T) {
	ps := []Palette{{"#111111"}}
	a, err := NewAssigner(ps, nil)
	if err != nil {
		t.Fatalf("NewAssigner: %v", err)
	}
	ps[0][0] = "#222222"
	if got := a.Pick(); got != "#111111" {
		t.Errorf("Pick: got %q, want %q", got, "#111111")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		palettes []Palette
		wantErr  bool
	}{
		{"default", Default, false},
		{"none", nil, true},
		{"empty palette", []Palette{{}}, true},
		{"bad color", []Palette{{"#FF6B6B", "red"}}, true},
		{"short form", []Palette{{"#abc"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.palettes)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate: got %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
