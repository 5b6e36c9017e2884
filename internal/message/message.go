package message

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/ryanbastic/pixelboard/internal/grid"
)

// Format holds the independent text style toggles of a message.
type Format struct {
	Bold      bool `json:"bold"`
	Italic    bool `json:"italic"`
	Underline bool `json:"underline"`
}

// Record is a message attached to a rectangular region of the board.
// Records are immutable once created.
type Record struct {
	ID        string        `json:"id"`
	Cells     []grid.CellID `json:"cells"`
	Content   string        `json:"content"`
	Format    Format        `json:"format"`
	Timestamp int64         `json:"timestamp"`
	Color     string        `json:"color"`
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	r.Cells = slices.Clone(r.Cells)
	return r
}

// Snapshot is the complete board state, oldest record first. Order matters:
// later records win contested cells.
type Snapshot []Record

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	if s == nil {
		return nil
	}
	out := make(Snapshot, len(s))
	for i, r := range s {
		out[i] = r.Clone()
	}
	return out
}

// Equal reports whether s and o hold the same records in the same order.
func (s Snapshot) Equal(o Snapshot) bool {
	return slices.EqualFunc(s, o, func(a, b Record) bool {
		return a.ID == b.ID &&
			a.Content == b.Content &&
			a.Format == b.Format &&
			a.Timestamp == b.Timestamp &&
			a.Color == b.Color &&
			slices.Equal(a.Cells, b.Cells)
	})
}

// document is the persisted form: {"messages": [...]}.
type document struct {
	Messages Snapshot `json:"messages"`
}

// MarshalDocument encodes a snapshot as a persisted board document.
func MarshalDocument(s Snapshot) ([]byte, error) {
	if s == nil {
		s = Snapshot{}
	}
	data, err := json.Marshal(document{Messages: s})
	if err != nil {
		return nil, fmt.Errorf("marshal board document: %w", err)
	}
	return data, nil
}

// UnmarshalDocument decodes a persisted board document. Empty input yields an
// empty snapshot. Records with a duplicate id keep their first position but
// take the later value.
func UnmarshalDocument(data []byte) (Snapshot, error) {
	if len(data) == 0 {
		return Snapshot{}, nil
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal board document: %w", err)
	}
	return dedupe(doc.Messages), nil
}

func dedupe(s Snapshot) Snapshot {
	out := make(Snapshot, 0, len(s))
	pos := make(map[string]int, len(s))
	for _, r := range s {
		if i, ok := pos[r.ID]; ok {
			out[i] = r
			continue
		}
		pos[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}
