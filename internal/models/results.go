package models

import "time"

// ResolveReason tells whether a lottery closed on its own or was ended by an operator.
type ResolveReason string

const (
	ResolveTimer  ResolveReason = "timer"
	ResolveManual ResolveReason = "manual"
)

// StartOptions are the parameters of the start command.
type StartOptions struct {
	ScopeID          string
	Duration         time.Duration
	WinnersCount     int
	Prize            string
	MultiplierRoleID string
	MultiplierWeight int // 0 means 1
}

// StartResult is what the caller announces once a lottery is running.
type StartResult struct {
	ID           string    `json:"id"`
	ScopeID      string    `json:"scopeId"`
	Prize        string    `json:"prize"`
	WinnersCount int       `json:"winnersCount"`
	EndTime      time.Time `json:"endTime"`
}

// ResolveResult describes a closed lottery.
// LockScope asks the collaborator to stop further participation in ScopeID.
type ResolveResult struct {
	ID               string        `json:"id"`
	ScopeID          string        `json:"scopeId"`
	Prize            string        `json:"prize"`
	Winners          []string      `json:"winners"`
	Reason           ResolveReason `json:"reason"`
	ParticipantCount int           `json:"participantCount"`
	LockScope        bool          `json:"lockScope"`
}

// RerollResult holds a single winner drawn from the running lottery.
type RerollResult struct {
	ScopeID string `json:"scopeId"`
	Winner  string `json:"winner"`
}

// InfoResult is a read-only view of the running lottery.
type InfoResult struct {
	ScopeID      string        `json:"scopeId"`
	Prize        string        `json:"prize"`
	WinnersCount int           `json:"winnersCount"`
	Participants int           `json:"participants"`
	Entries      int           `json:"entries"`
	EndTime      time.Time     `json:"endTime"`
	Remaining    time.Duration `json:"remaining"`
}

// MessageEvent is a chat message seen in a scope.
type MessageEvent struct {
	ScopeID       string
	ParticipantID string
	Bot           bool
	RoleIDs       []string
}
