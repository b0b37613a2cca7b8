package pricing

import (
	"context"
	"time"

	handlersupport "renthub/internal/app/handlers/support"
	"renthub/internal/app/queries"
	"renthub/internal/app/uow"
	domainlisting "renthub/internal/domain/listing"
	domainpricing "renthub/internal/domain/pricing"
	domainrange "renthub/internal/domain/shared/daterange"
)

const quoteKey = "pricing.quote"

type QuoteQuery struct {
	ListingID     string
	Start         time.Time
	End           time.Time
	PromoCode     string
	WithInsurance bool
}

func (q QuoteQuery) Key() string { return quoteKey }

// QuoteHandler prices a prospective date range without creating a booking.
type QuoteHandler struct {
	UoWFactory uow.UoWFactory
	Pricing    domainpricing.Calculator
}

func (h *QuoteHandler) Handle(ctx context.Context, q QuoteQuery) (domainpricing.Breakdown, error) {
	dr, err := domainrange.New(q.Start, q.End)
	if err != nil {
		return domainpricing.Breakdown{}, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return domainpricing.Breakdown{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	l, err := unit.Listings().ByID(execCtx, domainlisting.ListingID(q.ListingID))
	if err != nil {
		return domainpricing.Breakdown{}, err
	}
	return h.Pricing.Quote(execCtx, domainpricing.QuoteInput{
		Config:        l.Pricing,
		Range:         dr,
		PromoCode:     q.PromoCode,
		WithInsurance: q.WithInsurance,
	})
}

var _ queries.Handler[QuoteQuery, domainpricing.Breakdown] = (*QuoteHandler)(nil)
