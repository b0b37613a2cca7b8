package booking

import (
	"context"
	"errors"
	"time"

	"renthub/internal/app/commands"
	"renthub/internal/app/outbox"
	"renthub/internal/app/uow"
	domainbooking "renthub/internal/domain/booking"
	domainlisting "renthub/internal/domain/listing"
	domainpricing "renthub/internal/domain/pricing"
	domainrange "renthub/internal/domain/shared/daterange"
)

const requestBookingKey = "booking.request"

var ErrUnitOfWorkRequired = errors.New("booking: unit of work required")

type RequestBookingCommand struct {
	CommandID     string
	ListingID     string
	RenterID      string
	Start         time.Time
	End           time.Time
	PromoCode     string
	WithInsurance bool
}

func (c RequestBookingCommand) Key() string { return requestBookingKey }

type RequestBookingResult struct {
	BookingID string                  `json:"booking_id"`
	Status    domainbooking.Status    `json:"status"`
	Price     domainpricing.Breakdown `json:"price"`
}

// RequestBookingHandler quotes the listing, snapshots the price breakdown and
// cancellation policy onto a new DRAFT booking and persists it. The snapshot
// is final: later listing price changes never touch existing bookings.
type RequestBookingHandler struct {
	UoWFactory uow.UoWFactory
	Pricing    domainpricing.Calculator
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

func (h *RequestBookingHandler) Handle(ctx context.Context, cmd RequestBookingCommand) (*RequestBookingResult, error) {
	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		managed = true
	}
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	dr, err := domainrange.New(cmd.Start, cmd.End)
	if err != nil {
		return nil, err
	}

	l, err := unit.Listings().ByID(ctx, domainlisting.ListingID(cmd.ListingID))
	if err != nil {
		return nil, err
	}

	price, err := h.Pricing.Quote(ctx, domainpricing.QuoteInput{
		Config:        l.Pricing,
		Range:         dr,
		PromoCode:     cmd.PromoCode,
		WithInsurance: cmd.WithInsurance,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	b, err := domainbooking.New(domainbooking.CreateParams{
		ID:        domainbooking.BookingID(cmd.CommandID),
		ListingID: l.ID,
		RenterID:  cmd.RenterID,
		OwnerID:   l.OwnerID,
		Range:     dr,
		Price:     price,
		Policy: domainbooking.PolicySnapshot{
			PolicyID:      l.Cancellation.PolicyID,
			RefundPercent: l.Cancellation.RefundPercent,
		},
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}

	pending := b.PendingEvents()
	b.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), pending); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	return &RequestBookingResult{BookingID: string(b.ID), Status: b.Status, Price: b.Price}, nil
}

func (h *RequestBookingHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

var _ commands.Handler[RequestBookingCommand, *RequestBookingResult] = (*RequestBookingHandler)(nil)
