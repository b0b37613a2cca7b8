package ginserver

import (
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	PricingApp "renthub/internal/app/handlers/pricing"
	"renthub/internal/app/queries"
	domainpricing "renthub/internal/domain/pricing"
)

type PricingHandler struct {
	Queries queries.Bus
}

func (h PricingHandler) Quote(c *gin.Context) {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be RFC3339"})
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be RFC3339"})
		return
	}
	q := PricingApp.QuoteQuery{
		ListingID:     c.Param("id"),
		Start:         start,
		End:           end,
		PromoCode:     c.Query("promo_code"),
		WithInsurance: c.Query("with_insurance") == "true",
	}
	breakdown, err := queries.Ask[PricingApp.QuoteQuery, domainpricing.Breakdown](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}

var _ PricingHTTP = PricingHandler{}
