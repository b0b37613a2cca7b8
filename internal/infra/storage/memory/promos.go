package memory

import (
	"context"
	"sync"

	"renthub/internal/domain/pricing"
)

// PromoSource resolves promo codes from an in-memory table. Used by the
// memory storage mode and by tests.
type PromoSource struct {
	mu    sync.RWMutex
	codes map[string]int
}

func NewPromoSource() *PromoSource {
	return &PromoSource{codes: map[string]int{}}
}

// Set registers a promo code with its discount percent. A percent of zero
// removes the code.
func (p *PromoSource) Set(code string, percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if percent == 0 {
		delete(p.codes, code)
		return
	}
	p.codes[code] = percent
}

func (p *PromoSource) Percent(ctx context.Context, code string) (int, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pct, ok := p.codes[code]
	return pct, ok, nil
}

var _ pricing.PromoSource = (*PromoSource)(nil)
