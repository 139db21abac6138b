package services

import (
	"fmt"
	"strings"
	"time"

	"giveaway/internal/models"

	"github.com/google/uuid"
)

// LotteryState is the idle/running state machine. It owns the in-memory snapshot and the
// entry ledger. It is not safe for concurrent use; LotteryService serializes access.
type LotteryState struct {
	snap   models.Snapshot // Entries is always nil here; the ledger holds them
	ledger *EntryLedger
	drawer *WeightedDrawer
}

// NewLotteryState seeds the state machine from a loaded snapshot.
func NewLotteryState(snap models.Snapshot, drawer *WeightedDrawer) *LotteryState {
	snap.Normalize()
	ledger := NewEntryLedger(snap.Entries)
	snap.Entries = nil
	if !snap.Active {
		ledger.Reset()
	} else if snap.ID == "" {
		snap.ID = uuid.New().String()
	}
	return &LotteryState{snap: snap, ledger: ledger, drawer: drawer}
}

// Running reports whether a lottery is in progress, expired or not.
func (s *LotteryState) Running() bool {
	return s.snap.Active
}

// Expired reports whether the running lottery's end time has passed.
func (s *LotteryState) Expired(now time.Time) bool {
	return s.snap.Active && !now.Before(s.snap.EndTime)
}

// ID is the running lottery's instance id, empty when idle.
func (s *LotteryState) ID() string {
	if !s.snap.Active {
		return ""
	}
	return s.snap.ID
}

// ScopeID is the scope the running lottery is bound to, empty when idle.
func (s *LotteryState) ScopeID() string {
	if !s.snap.Active {
		return ""
	}
	return s.snap.ScopeID
}

// EndTime is the running lottery's resolution time.
func (s *LotteryState) EndTime() time.Time {
	return s.snap.EndTime
}

// MultiplierRoleID is the role granting extra entries, empty if none.
func (s *LotteryState) MultiplierRoleID() string {
	return s.snap.MultiplierRoleID
}

// Participants is the number of unique participants entered so far.
func (s *LotteryState) Participants() int {
	return s.ledger.Len()
}

// Snapshot returns a copy of the current state suitable for persisting.
func (s *LotteryState) Snapshot() models.Snapshot {
	out := s.snap
	out.Entries = s.ledger.Weights()
	return out
}

func validateStart(opts models.StartOptions) error {
	switch {
	case strings.TrimSpace(opts.ScopeID) == "":
		return fmt.Errorf("%w: scope is required", ErrInvalidArgument)
	case opts.Duration <= 0:
		return fmt.Errorf("%w: duration must be positive", ErrInvalidArgument)
	case opts.WinnersCount < 1:
		return fmt.Errorf("%w: winners must be at least 1", ErrInvalidArgument)
	case opts.MultiplierWeight < 0 || opts.MultiplierWeight > models.MaxMultiplierWeight:
		return fmt.Errorf("%w: multiplier weight must be between 1 and %d", ErrInvalidArgument, models.MaxMultiplierWeight)
	}
	return nil
}

// Start opens a new lottery ending at now+duration with an empty ledger.
func (s *LotteryState) Start(now time.Time, opts models.StartOptions) (models.StartResult, error) {
	if err := validateStart(opts); err != nil {
		return models.StartResult{}, err
	}
	if s.snap.Active && now.Before(s.snap.EndTime) {
		return models.StartResult{}, ErrAlreadyRunning
	}

	weight := models.ClampWeight(opts.MultiplierWeight)
	s.snap = models.Snapshot{
		ID:               uuid.New().String(),
		Active:           true,
		ScopeID:          strings.TrimSpace(opts.ScopeID),
		StartedAt:        now.UTC(),
		EndTime:          now.Add(opts.Duration).UTC(),
		WinnersCount:     opts.WinnersCount,
		Prize:            opts.Prize,
		MultiplierRoleID: strings.TrimSpace(opts.MultiplierRoleID),
		MultiplierWeight: weight,
	}
	s.ledger.Reset()

	return models.StartResult{
		ID:           s.snap.ID,
		ScopeID:      s.snap.ScopeID,
		Prize:        s.snap.Prize,
		WinnersCount: s.snap.WinnersCount,
		EndTime:      s.snap.EndTime,
	}, nil
}

// RecordParticipant enters a participant. It reports whether the ledger changed; being idle
// or already entered is not an error.
func (s *LotteryState) RecordParticipant(participantID string, hasMultiplierRole bool) bool {
	if !s.snap.Active || participantID == "" {
		return false
	}
	weight := 1
	if hasMultiplierRole && s.snap.MultiplierRoleID != "" {
		weight = s.snap.MultiplierWeight
	}
	return s.ledger.Add(participantID, weight)
}

// Resolve draws the winners, clears the ledger and returns to idle.
func (s *LotteryState) Resolve(reason models.ResolveReason) (models.ResolveResult, error) {
	if !s.snap.Active {
		return models.ResolveResult{}, ErrNothingRunning
	}
	entries := s.ledger.Weights()
	res := models.ResolveResult{
		ID:               s.snap.ID,
		ScopeID:          s.snap.ScopeID,
		Prize:            s.snap.Prize,
		Winners:          s.drawer.Draw(entries, s.snap.WinnersCount),
		Reason:           reason,
		ParticipantCount: len(entries),
	}

	idle := models.DefaultSnapshot()
	idle.Entries = nil
	s.snap = idle
	s.ledger.Reset()
	return res, nil
}

// Reroll draws one winner from the running lottery without changing anything.
func (s *LotteryState) Reroll() (models.RerollResult, error) {
	if !s.snap.Active {
		return models.RerollResult{}, ErrNothingRunning
	}
	winner, ok := s.drawer.DrawOne(s.ledger.Weights())
	if !ok {
		return models.RerollResult{}, ErrNoParticipants
	}
	return models.RerollResult{ScopeID: s.snap.ScopeID, Winner: winner}, nil
}

// Info summarizes the running lottery.
func (s *LotteryState) Info(now time.Time) (models.InfoResult, error) {
	if !s.snap.Active {
		return models.InfoResult{}, ErrNothingRunning
	}
	remaining := s.snap.EndTime.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return models.InfoResult{
		ScopeID:      s.snap.ScopeID,
		Prize:        s.snap.Prize,
		WinnersCount: s.snap.WinnersCount,
		Participants: s.ledger.Len(),
		Entries:      s.ledger.Total(),
		EndTime:      s.snap.EndTime,
		Remaining:    remaining,
	}, nil
}
