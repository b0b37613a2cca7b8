package booking

import (
	"time"

	"renthub/internal/domain/listing"
	"renthub/internal/domain/shared/daterange"
	"renthub/internal/domain/shared/money"
)

type BookingRequested struct {
	BookingID BookingID
	ListingID listing.ListingID
	RenterID  string
	OwnerID   string
	Range     daterange.DateRange
	Total     money.Money
	At        time.Time
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return string(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

// BookingTransitioned is emitted for every successful lifecycle transition
// and carries everything the notification collaborator needs.
type BookingTransitioned struct {
	BookingID  BookingID
	Transition TransitionName
	From       Status
	To         Status
	RenterID   string
	OwnerID    string
	ListingID  listing.ListingID
	Metadata   map[string]string
	At         time.Time
}

func (e BookingTransitioned) EventName() string     { return "booking.transitioned" }
func (e BookingTransitioned) AggregateID() string   { return string(e.BookingID) }
func (e BookingTransitioned) OccurredAt() time.Time { return e.At }
