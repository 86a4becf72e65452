package cache

import (
	"fmt"
	"strings"
	"time"
)

// Priority decides eviction precedence. Critical entries are evicted last.
type Priority int

const (
	PriorityStandard Priority = iota
	PriorityImportant
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityImportant:
		return "important"
	default:
		return "standard"
	}
}

// ParsePriority accepts the lowercase names produced by String. Empty means standard.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return PriorityStandard, nil
	case "important":
		return PriorityImportant, nil
	case "critical":
		return PriorityCritical, nil
	}
	return PriorityStandard, fmt.Errorf("unknown cache priority %q", s)
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

// Priorities lists every priority band from first-evicted to last-evicted.
func Priorities() []Priority {
	return []Priority{PriorityStandard, PriorityImportant, PriorityCritical}
}

type Entry struct {
	Key       string    `json:"key"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Priority  Priority  `json:"priority"`
	SizeBytes int64     `json:"size_bytes"`
}

// IsExpired reports whether the entry is logically absent at now.
func (e *Entry) IsExpired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// PutOptions controls how an entry is stored. A non-positive TTL selects the cache default.
type PutOptions struct {
	Priority Priority      `json:"priority"`
	TTL      time.Duration `json:"ttl"`
}

type Stats struct {
	ItemCount       int                `json:"item_count"`
	TotalBytes      int64              `json:"total_bytes"`
	MaxBytes        int64              `json:"max_bytes"`
	BytesByPriority map[Priority]int64 `json:"bytes_by_priority"`
	OverBudget      bool               `json:"over_budget"`
}
