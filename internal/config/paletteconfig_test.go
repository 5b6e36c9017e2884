package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "palettes.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadPaletteConfig_Valid(t *testing.T) {
	path := writeTempConfig(t, `{
		"palettes": [
			["#FF6B6B", "#4ECDC4", "#45B7D1"],
			["#112233"]
		]
	}`)

	pc, err := LoadPaletteConfig(path)
	if err != nil {
		t.Fatalf("LoadPaletteConfig: %v", err)
	}
	if len(pc.Palettes) != 2 {
		t.Fatalf("got %d palettes, want 2", len(pc.Palettes))
	}
	if pc.Palettes[0][1] != "#4ECDC4" {
		t.Errorf("got color %q, want %q", pc.Palettes[0][1], "#4ECDC4")
	}
	if len(pc.Palettes[1]) != 1 {
		t.Errorf("got %d colors in second palette, want 1", len(pc.Palettes[1]))
	}
}

func TestLoadPaletteConfig_FileNotFound(t *testing.T) {
	_, err := LoadPaletteConfig("/nonexistent/palettes.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "read palette config") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadPaletteConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"invalid json", `{not json`, "parse palette config"},
		{"no palettes", `{"palettes": []}`, "no palettes defined"},
		{"empty palette", `{"palettes": [["#FF6B6B"], []]}`, "palette #1 is empty"},
		{"short hex", `{"palettes": [["#FFF"]]}`, "invalid color"},
		{"not hex", `{"palettes": [["#GGGGGG"]]}`, "invalid color"},
		{"missing hash", `{"palettes": [["FF6B6B0"]]}`, "invalid color"},
		{"duplicate", `{"palettes": [["#ff6b6b", "#4ECDC4"], ["#FF6B6B", "#4ecdc4"]]}`, "duplicates palette #0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPaletteConfig(writeTempConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadPaletteConfig_SameColorsDifferentOrder(t *testing.T) {
	path := writeTempConfig(t, `{"palettes": [["#FF6B6B", "#4ECDC4"], ["#4ECDC4", "#FF6B6B"]]}`)
	if _, err := LoadPaletteConfig(path); err != nil {
		t.Errorf("reordered palette should be distinct: %v", err)
	}
}
