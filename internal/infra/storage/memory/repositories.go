package memory

import (
	"context"
	"sync"
	"time"

	domainbooking "renthub/internal/domain/booking"
	domainlisting "renthub/internal/domain/listing"
	"renthub/internal/domain/shared/events"
)

// ListingRepository is an in-memory implementation for dev mode and tests.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[domainlisting.ListingID]*domainlisting.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{
		items: make(map[domainlisting.ListingID]*domainlisting.Listing),
	}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlisting.ListingID) (*domainlisting.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.items[id]
	if !ok {
		return nil, domainlisting.ErrNotFound
	}
	clone := *l
	clone.EventRecorder = events.EventRecorder{}
	return &clone, nil
}

func (r *ListingRepository) Save(ctx context.Context, l *domainlisting.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *l
	clone.EventRecorder = events.EventRecorder{}
	r.items[l.ID] = &clone
	return nil
}

// BookingRepository stores bookings in memory with the same optimistic
// concurrency contract as the Mongo repository: Save only succeeds when the
// stored version still equals the version the caller loaded.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{items: make(map[domainbooking.BookingID]*domainbooking.Booking)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	return cloneBooking(b), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.items[b.ID]; ok && current.Version != b.Version {
		return domainbooking.ErrConflict
	}
	clone := cloneBooking(b)
	clone.Version = b.Version + 1
	r.items[b.ID] = clone
	b.Version = clone.Version
	return nil
}

func (r *BookingRepository) FindByStatusUpdatedBefore(ctx context.Context, status domainbooking.Status, cutoff time.Time) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainbooking.Booking
	for _, b := range r.items {
		if b.Status == status && b.UpdatedAt.Before(cutoff) {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	clone := *b
	clone.Price = b.Price.Copy()
	clone.History = append([]domainbooking.HistoryEntry(nil), b.History...)
	clone.EventRecorder = events.EventRecorder{}
	return &clone
}
