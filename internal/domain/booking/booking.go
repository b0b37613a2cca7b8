package booking

import (
	"context"
	"errors"
	"time"

	"renthub/internal/domain/listing"
	"renthub/internal/domain/pricing"
	"renthub/internal/domain/shared/daterange"
	"renthub/internal/domain/shared/events"
)

var (
	ErrNotFound          = errors.New("booking: not found")
	ErrInvalidTransition = errors.New("booking: invalid transition")
	ErrForbidden         = errors.New("booking: actor not permitted")
	ErrConflict          = errors.New("booking: concurrent update conflict")
	ErrRenterRequired    = errors.New("booking: renter id required")
	ErrOwnerRequired     = errors.New("booking: owner id required")
)

type BookingID string

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusDraft             Status = "DRAFT"
	StatusPendingApproval   Status = "PENDING_OWNER_APPROVAL"
	StatusPendingPayment    Status = "PENDING_PAYMENT"
	StatusConfirmed         Status = "CONFIRMED"
	StatusInProgress        Status = "IN_PROGRESS"
	StatusAwaitingReturn    Status = "AWAITING_RETURN_INSPECTION"
	StatusCompleted         Status = "COMPLETED"
	StatusSettled           Status = "SETTLED"
	StatusCancelled         Status = "CANCELLED"
	StatusDisputed          Status = "DISPUTED"
	StatusRefunded          Status = "REFUNDED"
)

// Role identifies who is acting on a booking.
type Role string

const (
	RoleRenter Role = "RENTER"
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleSystem Role = "SYSTEM"
)

func (r Role) Valid() bool {
	switch r {
	case RoleRenter, RoleOwner, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// HistoryEntry is one append-only record of a status change.
type HistoryEntry struct {
	Status   Status
	ActorID  string
	Role     Role
	Metadata map[string]string
	At       time.Time
}

// Booking is the mutable aggregate owned by the state machine. The price
// breakdown and cancellation policy are snapshots taken at creation time;
// later listing changes never retroactively affect an existing booking.
type Booking struct {
	ID        BookingID
	ListingID listing.ListingID
	RenterID  string
	OwnerID   string
	Range     daterange.DateRange
	Status    Status
	Price     pricing.Breakdown
	Policy    PolicySnapshot
	History   []HistoryEntry
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
	events.EventRecorder
}

// Repository is the persistence contract the state machine depends on.
// Save must be a conditional update on the version read at load time and
// fail with ErrConflict when it lost a concurrent race.
type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	FindByStatusUpdatedBefore(ctx context.Context, status Status, cutoff time.Time) ([]*Booking, error)
}

type CreateParams struct {
	ID        BookingID
	ListingID listing.ListingID
	RenterID  string
	OwnerID   string
	Range     daterange.DateRange
	Price     pricing.Breakdown
	Policy    PolicySnapshot
	CreatedAt time.Time
}

func New(params CreateParams) (*Booking, error) {
	if params.RenterID == "" {
		return nil, ErrRenterRequired
	}
	if params.OwnerID == "" {
		return nil, ErrOwnerRequired
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	if err := params.Price.Validate(); err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:        params.ID,
		ListingID: params.ListingID,
		RenterID:  params.RenterID,
		OwnerID:   params.OwnerID,
		Range:     params.Range,
		Status:    StatusDraft,
		Price:     params.Price.Copy(),
		Policy:    params.Policy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.History = append(b.History, HistoryEntry{
		Status:  StatusDraft,
		ActorID: params.RenterID,
		Role:    RoleRenter,
		At:      now,
	})
	b.Record(BookingRequested{
		BookingID: b.ID,
		ListingID: b.ListingID,
		RenterID:  b.RenterID,
		OwnerID:   b.OwnerID,
		Range:     b.Range,
		Total:     b.Price.Total,
		At:        now,
	})
	return b, nil
}
