package action

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Type identifies the handler responsible for an action. The set is open:
// applications register handlers for their own types.
type Type string

const (
	TypeWeatherRequest Type = "weather_request"
	TypeSubmitForm     Type = "submit_form"
	TypeSyncResult     Type = "sync_result"
	TypeSendEmail      Type = "send_email"
)

type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

// ParsePriority accepts high, medium or low. Empty means medium.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh, nil
	case "", "medium":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	}
	return PriorityMedium, fmt.Errorf("unknown action priority %q", s)
}

func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Action is a write captured while offline, waiting to be dispatched to its handler.
type Action struct {
	ID            string          `json:"id"`
	Seq           uint64          `json:"seq"`
	Type          Type            `json:"type"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Priority      Priority        `json:"priority"`
	CreatedAt     time.Time       `json:"created_at"`
	RetryCount    int             `json:"retry_count"`
	MaxRetries    int             `json:"max_retries"`
	OwnerID       string          `json:"owner_id,omitempty"`
	NextAttemptAt time.Time       `json:"next_attempt_at,omitempty"`
	LastError     string          `json:"last_error,omitempty"`
}

// Clone returns a deep copy so callers never share the queue's instance.
func (a *Action) Clone() *Action {
	c := *a
	if a.Payload != nil {
		c.Payload = append(json.RawMessage(nil), a.Payload...)
	}
	return &c
}

// RetriesExhausted reports whether one more failure must drop the action.
func (a *Action) RetriesExhausted() bool {
	return a.RetryCount >= a.MaxRetries
}

// Before orders actions for a drain pass: higher priority first, then oldest, then generation order.
func (a *Action) Before(b *Action) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.Seq < b.Seq
}

type EnqueueRequest struct {
	Type       Type     `json:"type" validate:"required"`
	Payload    any      `json:"payload,omitempty"`
	Priority   Priority `json:"priority"`
	MaxRetries *int     `json:"max_retries,omitempty" validate:"omitempty,min=0"`
	OwnerID    string   `json:"owner_id,omitempty"`
}

type PermanentFailure struct {
	ActionID string `json:"action_id"`
	Type     Type   `json:"type"`
	Reason   string `json:"reason"`
	Attempts int    `json:"attempts"`
}

// SyncResult summarizes one drain pass. FailedCount counts permanently dropped actions;
// transient failures that were re-queued are counted in RetriedCount.
type SyncResult struct {
	ProcessedCount    int                `json:"processed_count"`
	FailedCount       int                `json:"failed_count"`
	RetriedCount      int                `json:"retried_count"`
	PermanentFailures []PermanentFailure `json:"permanent_failures,omitempty"`
	Skipped           bool               `json:"skipped"`
	SkipReason        string             `json:"skip_reason,omitempty"`
	Interrupted       bool               `json:"interrupted"`
	StartedAt         time.Time          `json:"started_at"`
	FinishedAt        time.Time          `json:"finished_at"`
}
