package listing

import (
	"context"
	"errors"
	"strings"
	"time"

	"renthub/internal/domain/pricing"
	"renthub/internal/domain/shared/events"
)

var (
	ErrNotFound       = errors.New("listing: not found")
	ErrTitleRequired  = errors.New("listing: title is required")
	ErrOwnerRequired  = errors.New("listing: owner is required")
	ErrInvalidPricing = errors.New("listing: invalid pricing configuration")
)

type ListingID string

type State string

const (
	StateDraft     State = "DRAFT"
	StateActive    State = "ACTIVE"
	StateSuspended State = "SUSPENDED"
)

// CancellationPolicy is the listing-level refund policy. Evaluation of rich
// policy records happens in an external collaborator; the booking core only
// applies the resulting refund percentage. An empty PolicyID means the
// platform default time-banded rule applies.
type CancellationPolicy struct {
	PolicyID      string
	RefundPercent int
}

func (p CancellationPolicy) Configured() bool {
	return strings.TrimSpace(p.PolicyID) != ""
}

// Listing carries the pricing configuration read by the pricing engine and
// the owner identity checked by the booking state machine.
type Listing struct {
	ID           ListingID
	OwnerID      string
	Title        string
	Description  string
	State        State
	Pricing      pricing.Config
	Cancellation CancellationPolicy
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
}

type CreateParams struct {
	ID           ListingID
	OwnerID      string
	Title        string
	Description  string
	Pricing      pricing.Config
	Cancellation CancellationPolicy
	Now          time.Time
}

func New(params CreateParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("listing: id is required")
	}
	if strings.TrimSpace(params.OwnerID) == "" {
		return nil, ErrOwnerRequired
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if err := params.Pricing.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidPricing, err)
	}
	now := params.Now.UTC()
	return &Listing{
		ID:           params.ID,
		OwnerID:      params.OwnerID,
		Title:        strings.TrimSpace(params.Title),
		Description:  strings.TrimSpace(params.Description),
		State:        StateDraft,
		Pricing:      params.Pricing,
		Cancellation: params.Cancellation,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (l *Listing) Activate(now time.Time) {
	if l.State == StateActive {
		return
	}
	l.State = StateActive
	l.UpdatedAt = now.UTC()
}

func (l *Listing) UpdatePricing(cfg pricing.Config, now time.Time) error {
	if err := cfg.Validate(); err != nil {
		return errors.Join(ErrInvalidPricing, err)
	}
	l.Pricing = cfg
	l.UpdatedAt = now.UTC()
	return nil
}
