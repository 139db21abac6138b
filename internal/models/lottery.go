package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is the single record describing the current lottery.
// It is what gets persisted, and what the lottery state mirrors in memory.
type Snapshot struct {
	ID               string
	Active           bool
	ScopeID          string
	StartedAt        time.Time
	EndTime          time.Time
	WinnersCount     int
	Prize            string
	Entries          map[string]int // participantID -> weight
	MultiplierRoleID string
	MultiplierWeight int
}

// MaxMultiplierWeight caps the tickets a single participant can hold.
const MaxMultiplierWeight = 1000

// DefaultSnapshot returns the idle snapshot used when nothing has been stored yet.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		Entries:          make(map[string]int),
		WinnersCount:     1,
		MultiplierWeight: 1,
	}
}

// Normalize fills in defaults for fields a stored document may have left out and
// clamps every weight to [1, MaxMultiplierWeight].
func (s *Snapshot) Normalize() {
	if s.Entries == nil {
		s.Entries = make(map[string]int)
	}
	if s.WinnersCount < 1 {
		s.WinnersCount = 1
	}
	s.MultiplierWeight = ClampWeight(s.MultiplierWeight)
	for id, w := range s.Entries {
		s.Entries[id] = ClampWeight(w)
	}
}

// ClampWeight bounds a ticket count to [1, MaxMultiplierWeight].
func ClampWeight(w int) int {
	return min(max(w, 1), MaxMultiplierWeight)
}

// snapshotDocument is the on-disk shape. Times are epoch milliseconds.
type snapshotDocument struct {
	ID               string         `json:"id,omitempty"`
	Active           bool           `json:"active"`
	ScopeID          string         `json:"scopeId"`
	StartedAt        int64          `json:"startedAt,omitempty"`
	EndTime          int64          `json:"endTime"`
	WinnersCount     int            `json:"winnersCount"`
	Prize            string         `json:"prizeDescription"`
	Entries          map[string]int `json:"entries"`
	MultiplierRoleID *string        `json:"multiplierRoleId"`
	MultiplierWeight int            `json:"multiplierWeight"`
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.UnixMilli(v).UTC()
}

// MarshalJSON encodes the snapshot in its persisted document shape.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	doc := snapshotDocument{
		ID:               s.ID,
		Active:           s.Active,
		ScopeID:          s.ScopeID,
		StartedAt:        toMillis(s.StartedAt),
		EndTime:          toMillis(s.EndTime),
		WinnersCount:     s.WinnersCount,
		Prize:            s.Prize,
		Entries:          s.Entries,
		MultiplierWeight: s.MultiplierWeight,
	}
	if doc.Entries == nil {
		doc.Entries = map[string]int{}
	}
	if s.MultiplierRoleID != "" {
		role := s.MultiplierRoleID
		doc.MultiplierRoleID = &role
	}
	return json.Marshal(doc)
}

// UnmarshalJSON decodes a persisted document.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var doc snapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*s = Snapshot{
		ID:               doc.ID,
		Active:           doc.Active,
		ScopeID:          doc.ScopeID,
		StartedAt:        fromMillis(doc.StartedAt),
		EndTime:          fromMillis(doc.EndTime),
		WinnersCount:     doc.WinnersCount,
		Prize:            doc.Prize,
		Entries:          doc.Entries,
		MultiplierWeight: doc.MultiplierWeight,
	}
	if doc.MultiplierRoleID != nil {
		s.MultiplierRoleID = *doc.MultiplierRoleID
	}
	return nil
}

// DecodeSnapshot parses a stored document. An empty document yields the default snapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	if len(data) == 0 {
		return DefaultSnapshot(), nil
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return DefaultSnapshot(), fmt.Errorf("decode snapshot: %w", err)
	}
	s.Normalize()
	return s, nil
}

// EncodeSnapshot renders a snapshot as a stored document.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}
