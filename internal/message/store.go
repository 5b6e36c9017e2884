package message

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ryanbastic/pixelboard/internal/grid"
)

var (
	// ErrInvalidSubmission is the parent of every rejected create.
	ErrInvalidSubmission = errors.New("invalid submission")

	// ErrEmptyContent is returned when the content trims to nothing.
	ErrEmptyContent = fmt.Errorf("%w: empty content", ErrInvalidSubmission)

	// ErrEmptySelection is returned when no cells are given.
	ErrEmptySelection = fmt.Errorf("%w: empty selection", ErrInvalidSubmission)
)

// IDPrefix prefixes every generated record id.
const IDPrefix = "message-"

// ColorPicker supplies the color of a new record.
type ColorPicker interface {
	Pick() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the store's time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is the ordered mapping of record id to Record. It is not safe for
// concurrent use; callers serialize access.
type Store struct {
	records []Record
	index   map[string]int
	colors  ColorPicker
	now     func() time.Time
	lastID  int64
}

// NewStore creates an empty Store.
func NewStore(colors ColorPicker, opts ...Option) *Store {
	s := &Store{
		index:  make(map[string]int),
		colors: colors,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Create validates and stores a new record. Duplicate cells are collapsed;
// the stored cell set otherwise equals the input.
func (s *Store) Create(cells []grid.CellID, content string, format Format) (Record, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Record{}, ErrEmptyContent
	}
	set := uniqueCells(cells)
	if len(set) == 0 {
		return Record{}, ErrEmptySelection
	}

	now := s.now()
	r := Record{
		ID:        s.nextID(now),
		Cells:     set,
		Content:   content,
		Format:    format,
		Timestamp: now.UnixMilli(),
		Color:     s.colors.Pick(),
	}
	s.append(r)
	return r.Clone(), nil
}

// nextID derives a millisecond id that is unique within the store and
// strictly increasing within this process.
func (s *Store) nextID(now time.Time) string {
	ms := max(now.UnixMilli(), s.lastID+1)
	for {
		id := IDPrefix + strconv.FormatInt(ms, 10)
		if _, taken := s.index[id]; !taken {
			s.lastID = ms
			return id
		}
		ms++
	}
}

func (s *Store) append(r Record) {
	s.index[r.ID] = len(s.records)
	s.records = append(s.records, r)
}

// Owners maps every claimed cell to the id of its most recently added claimant.
func (s *Store) Owners() map[grid.CellID]string {
	owners := make(map[grid.CellID]string)
	for _, r := range s.records {
		for _, c := range r.Cells {
			owners[c] = r.ID
		}
	}
	return owners
}

// ResolveOverlaps removes every record that no longer owns any of its cells
// and returns the removed records, oldest first. Partially covered records
// are kept whole. The most recently added record is never removed.
func (s *Store) ResolveOverlaps() []Record {
	owners := s.Owners()

	var removed []Record
	kept := s.records[:0]
	for _, r := range s.records {
		if ownsAny(r, owners) {
			kept = append(kept, r)
			continue
		}
		removed = append(removed, r)
	}
	if len(removed) == 0 {
		return nil
	}

	clear(s.records[len(kept):])
	s.records = kept
	s.reindex()
	return removed
}

func ownsAny(r Record, owners map[grid.CellID]string) bool {
	for _, c := range r.Cells {
		if owners[c] == r.ID {
			return true
		}
	}
	return false
}

// Replace discards the store's contents and loads snap in order.
func (s *Store) Replace(snap Snapshot) {
	s.records = make([]Record, 0, len(snap))
	s.index = make(map[string]int, len(snap))
	for _, r := range dedupe(snap) {
		s.append(r.Clone())
	}
}

func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.records))
	for i, r := range s.records {
		s.index[r.ID] = i
	}
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (Record, bool) {
	i, ok := s.index[id]
	if !ok {
		return Record{}, false
	}
	return s.records[i].Clone(), true
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	return len(s.records)
}

// Snapshot returns a deep copy of the store, oldest first.
func (s *Store) Snapshot() Snapshot {
	return Snapshot(s.records).Clone()
}

func uniqueCells(cells []grid.CellID) []grid.CellID {
	seen := make(map[grid.CellID]struct{}, len(cells))
	out := make([]grid.CellID, 0, len(cells))
	for _, c := range cells {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return slices.Clip(out)
}
