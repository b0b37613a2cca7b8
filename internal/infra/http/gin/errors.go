package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	domainbooking "renthub/internal/domain/booking"
	domainlisting "renthub/internal/domain/listing"
	domainpricing "renthub/internal/domain/pricing"
	domainrange "renthub/internal/domain/shared/daterange"
)

// writeError maps domain errors to HTTP status codes. Unknowns become 500 so
// bugs are visible instead of masquerading as client mistakes.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainbooking.ErrNotFound), errors.Is(err, domainlisting.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domainbooking.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domainbooking.ErrInvalidTransition), errors.Is(err, domainbooking.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domainrange.ErrInvalidRange),
		errors.Is(err, domainpricing.ErrNoRate),
		errors.Is(err, domainpricing.ErrCurrencyUnset),
		errors.Is(err, domainpricing.ErrUnknownMode),
		errors.Is(err, domainlisting.ErrInvalidPricing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
