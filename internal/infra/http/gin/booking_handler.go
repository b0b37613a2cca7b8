package ginserver

import (
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"renthub/internal/app/commands"
	BookingApp "renthub/internal/app/handlers/booking"
	"renthub/internal/app/queries"
	domainbooking "renthub/internal/domain/booking"
)

// BookingHandler dispatches over two command buses: booking creation rides
// the transactional pipeline, while lifecycle transitions go through a plain
// bus because the transition handler manages its own transaction and runs
// side-effect hooks only after commit.
type BookingHandler struct {
	Requests    commands.Bus
	Transitions commands.Bus
	Queries     queries.Bus
}

type createBookingRequest struct {
	ListingID     string    `json:"listing_id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	PromoCode     string    `json:"promo_code"`
	WithInsurance bool      `json:"with_insurance"`
}

func (h BookingHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := BookingApp.RequestBookingCommand{
		CommandID:     generateCommandID(),
		ListingID:     req.ListingID,
		RenterID:      actor.ID,
		Start:         req.Start,
		End:           req.End,
		PromoCode:     req.PromoCode,
		WithInsurance: req.WithInsurance,
	}
	result, err := commands.Dispatch[BookingApp.RequestBookingCommand, *BookingApp.RequestBookingResult](c.Request.Context(), h.Requests, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type transitionRequest struct {
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata"`
}

func (h BookingHandler) Transition(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transition name is required"})
		return
	}
	cmd := BookingApp.TransitionCommand{
		BookingID: c.Param("id"),
		Name:      domainbooking.TransitionName(strings.ToUpper(req.Name)),
		ActorID:   actor.ID,
		Role:      actor.Role,
		Metadata:  req.Metadata,
	}
	result, err := commands.Dispatch[BookingApp.TransitionCommand, *BookingApp.TransitionResult](c.Request.Context(), h.Transitions, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) History(c *gin.Context) {
	q := BookingApp.StateHistoryQuery{BookingID: c.Param("id")}
	entries, err := queries.Ask[BookingApp.StateHistoryQuery, []domainbooking.HistoryEntry](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

func (h BookingHandler) Actions(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	q := BookingApp.AvailableActionsQuery{BookingID: c.Param("id"), Role: actor.Role}
	result, err := queries.Ask[BookingApp.AvailableActionsQuery, BookingApp.AvailableActionsResult](c.Request.Context(), h.Queries, q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type actor struct {
	ID   string
	Role domainbooking.Role
}

// requireActor reads the caller identity from the X-Actor-ID and X-Actor-Role
// headers. Authentication itself lives at the gateway; the service trusts the
// forwarded identity.
func requireActor(c *gin.Context) (actor, bool) {
	id := strings.TrimSpace(c.GetHeader("X-Actor-ID"))
	role := domainbooking.Role(strings.ToUpper(strings.TrimSpace(c.GetHeader("X-Actor-Role"))))
	if id == "" || !role.Valid() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "actor identity headers required"})
		return actor{}, false
	}
	return actor{ID: id, Role: role}, true
}

func generateCommandID() string {
	return uuid.NewString()
}

var _ BookingHTTP = BookingHandler{}
