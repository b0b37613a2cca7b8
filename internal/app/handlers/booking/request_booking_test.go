package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbooking "renthub/internal/domain/booking"
	domainlisting "renthub/internal/domain/listing"
	domainpricing "renthub/internal/domain/pricing"
	"renthub/internal/domain/shared/daterange"
	"renthub/internal/domain/shared/money"
	"renthub/internal/infra/storage/memory"
)

type requestFixture struct {
	handler  *RequestBookingHandler
	listings *memory.ListingRepository
	bookings *memory.BookingRepository
	outbox   *memory.Outbox
}

func newRequestFixture(t *testing.T) *requestFixture {
	t.Helper()
	listings := memory.NewListingRepository()
	bookings := memory.NewBookingRepository()
	box := memory.NewOutbox()
	handler := &RequestBookingHandler{
		UoWFactory: memory.Factory{ListingsRepo: listings, BookingRepo: bookings},
		Pricing:    domainpricing.Engine{},
		Outbox:     box,
	}
	return &requestFixture{handler: handler, listings: listings, bookings: bookings, outbox: box}
}

func (f *requestFixture) seedListing(t *testing.T) {
	t.Helper()
	l, err := domainlisting.New(domainlisting.CreateParams{
		ID:      "lst-1",
		OwnerID: fixtureOwner,
		Title:   "Cordless drill",
		Pricing: domainpricing.Config{
			Currency:  "USD",
			Mode:      domainpricing.ModePerDay,
			DailyRate: money.Money{Amount: 10000, Currency: "USD"},
		},
		Cancellation: domainlisting.CancellationPolicy{PolicyID: "flex-75", RefundPercent: 75},
		Now:          time.Now(),
	})
	require.NoError(t, err)
	l.Activate(time.Now())
	require.NoError(t, f.listings.Save(context.Background(), l))
}

func TestRequestBookingSnapshotsPriceAndPolicy(t *testing.T) {
	f := newRequestFixture(t)
	f.seedListing(t)

	start := time.Now().UTC().Add(24 * time.Hour)
	res, err := f.handler.Handle(context.Background(), RequestBookingCommand{
		CommandID: "bk-1",
		ListingID: "lst-1",
		RenterID:  fixtureRenter,
		Start:     start,
		End:       start.Add(24 * time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, "bk-1", res.BookingID)
	assert.Equal(t, domainbooking.StatusDraft, res.Status)
	assert.Equal(t, int64(10000), res.Price.Subtotal.Amount)
	assert.Equal(t, int64(10500), res.Price.Total.Amount)

	stored, err := f.bookings.ByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, fixtureOwner, stored.OwnerID)
	assert.Equal(t, "flex-75", stored.Policy.PolicyID)
	assert.Equal(t, 75, stored.Policy.RefundPercent)
	require.Len(t, stored.History, 1)
	assert.Equal(t, domainbooking.StatusDraft, stored.History[0].Status)

	records := f.outbox.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "booking.requested", records[0].Name)
}

func TestRequestBookingPriceSurvivesListingChange(t *testing.T) {
	f := newRequestFixture(t)
	f.seedListing(t)

	start := time.Now().UTC().Add(24 * time.Hour)
	_, err := f.handler.Handle(context.Background(), RequestBookingCommand{
		CommandID: "bk-1",
		ListingID: "lst-1",
		RenterID:  fixtureRenter,
		Start:     start,
		End:       start.Add(24 * time.Hour),
	})
	require.NoError(t, err)

	l, err := f.listings.ByID(context.Background(), "lst-1")
	require.NoError(t, err)
	cfg := l.Pricing
	cfg.DailyRate = money.Money{Amount: 99900, Currency: "USD"}
	require.NoError(t, l.UpdatePricing(cfg, time.Now()))
	require.NoError(t, f.listings.Save(context.Background(), l))

	stored, err := f.bookings.ByID(context.Background(), "bk-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), stored.Price.Subtotal.Amount)
}

func TestRequestBookingRejectsInvalidRange(t *testing.T) {
	f := newRequestFixture(t)
	f.seedListing(t)

	start := time.Now().UTC()
	_, err := f.handler.Handle(context.Background(), RequestBookingCommand{
		CommandID: "bk-1",
		ListingID: "lst-1",
		RenterID:  fixtureRenter,
		Start:     start,
		End:       start,
	})
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)

	_, err = f.bookings.ByID(context.Background(), "bk-1")
	assert.ErrorIs(t, err, domainbooking.ErrNotFound)
}

func TestRequestBookingUnknownListing(t *testing.T) {
	f := newRequestFixture(t)

	start := time.Now().UTC()
	_, err := f.handler.Handle(context.Background(), RequestBookingCommand{
		CommandID: "bk-1",
		ListingID: "missing",
		RenterID:  fixtureRenter,
		Start:     start,
		End:       start.Add(24 * time.Hour),
	})
	assert.ErrorIs(t, err, domainlisting.ErrNotFound)
}
