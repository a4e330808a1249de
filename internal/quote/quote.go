// Package quote configures cabinets against the live catalog and rates and
// keeps immutable quote snapshots.
package quote

import (
	"errors"
	"fmt"

	"github.com/Simplici0/cabinetquote/internal/pricing"
)

var (
	ErrNotFound          = errors.New("quote not found")
	ErrInvalidTransition = errors.New("invalid quote status transition")
)

// ValidationError reports a request field that could not be accepted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Status is the lifecycle state of a quote.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusOrdered  Status = "ordered"
)

var transitions = map[Status][]Status{
	StatusDraft:    {StatusSent, StatusRejected},
	StatusSent:     {StatusAccepted, StatusRejected},
	StatusAccepted: {StatusOrdered},
}

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusDraft, StatusSent, StatusAccepted, StatusRejected, StatusOrdered:
		return s, nil
	default:
		return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown value %q", raw)}
	}
}

// CanTransitionTo reports whether a quote in s may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Item is the configured cabinet captured in a quote.
type Item struct {
	CabinetTypeID int64
	CabinetName   string
	WidthMm       int
	HeightMm      int
	DepthMm       int
	DoorStyle     string
	Finish        string
	Color         string
	Quantity      int
	Rates         pricing.RateSettings
	DoorRates     pricing.DoorRateComponents
}

// Snapshot is the stored pricing result. It is never recalculated.
type Snapshot struct {
	Breakdown pricing.PriceBreakdown `json:"breakdown"`
	Quantity  int                    `json:"quantity"`
	UnitTotal float64                `json:"unit_total"`
	Total     float64                `json:"total"`
}

// Quote is a persisted quote with its single item.
type Quote struct {
	ID            int64
	Reference     string
	Title         string
	Notes         string
	CustomerEmail string
	Status        Status
	Currency      string
	CreatedAt     string
	Item          Item
	Snapshot      Snapshot
}

// ListItem is the summary shown in quote listings.
type ListItem struct {
	ID        int64
	Reference string
	CreatedAt string
	Title     string
	Status    Status
	Total     float64
}
