package api

import (
	"encoding/base64"
	"testing"
)

func TestCursor_EncodeDecode(t *testing.T) {
	tests := []struct {
		name string
		c    Cursor
	}{
		{
			name: "id and timestamp",
			c:    Cursor{After: "message-1700000000000", Timestamp: 1700000000000},
		},
		{
			name: "id only",
			c:    Cursor{After: "message-1"},
		},
		{
			name: "large timestamp",
			c:    Cursor{After: "message-x", Timestamp: 9223372036854775807},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := tt.c.Encode()
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			decoded, err := DecodeCursor(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			if decoded.After != tt.c.After {
				t.Errorf("After: got %q, want %q", decoded.After, tt.c.After)
			}
			if decoded.Timestamp != tt.c.Timestamp {
				t.Errorf("Timestamp: got %d, want %d", decoded.Timestamp, tt.c.Timestamp)
			}
		})
	}
}

func TestDecodeCursor_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "invalid base64",
			input: "!!!invalid!!!",
		},
		{
			name:  "invalid json",
			input: base64.URLEncoding.EncodeToString([]byte(`{"after":`)),
		},
		{
			name:  "missing position",
			input: base64.URLEncoding.EncodeToString([]byte(`{"ts":12}`)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCursor(tt.input)
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
