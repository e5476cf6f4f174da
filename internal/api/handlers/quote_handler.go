package handlers

import (
	"net/http"
	"time"

	"example.com/merchkit/services/quotes/internal/lifecycle"
	"example.com/merchkit/services/quotes/internal/pricing"
	"example.com/merchkit/services/quotes/internal/repositories"
	"example.com/merchkit/services/quotes/internal/search"
	"example.com/merchkit/services/quotes/internal/services"
	"example.com/merchkit/services/quotes/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// QuoteHandler handles the vendor-facing quote endpoints.
type QuoteHandler struct {
	quoteService  *services.QuoteService
	elasticClient *search.ElasticClient
	tracer        tracing.Tracer
}

// NewQuoteHandler creates a new quote handler
func NewQuoteHandler(quoteService *services.QuoteService, elasticClient *search.ElasticClient, tracer tracing.Tracer) *QuoteHandler {
	return &QuoteHandler{
		quoteService:  quoteService,
		elasticClient: elasticClient,
		tracer:        tracer,
	}
}

// TransitionRequest asks for a lifecycle event to be applied.
type TransitionRequest struct {
	Event  string `json:"event" binding:"required"`
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

// ExpiryRequest moves the expiry date of an editable quote.
type ExpiryRequest struct {
	ExpiryDate time.Time `json:"expiry_date" binding:"required"`
}

// HandleCreateQuote creates a new quote from the request payload.
func (h *QuoteHandler) HandleCreateQuote(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-quote")
	defer h.tracer.EndTransaction(txn)

	var req services.CreateQuoteInput
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error().Err(err).Msg("Invalid create quote request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}

	h.tracer.AddAttribute(txn, "kind", string(req.Kind))

	quote, err := h.quoteService.CreateQuote(c, req)
	if err != nil {
		h.tracer.RecordError(txn, err)
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, quote)
}

// HandleGetQuote returns a quote with its lines.
func (h *QuoteHandler) HandleGetQuote(c *gin.Context) {
	id, ok := h.quoteID(c)
	if !ok {
		return
	}

	quote, err := h.quoteService.GetQuote(c, id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

// HandleRecalculate re-runs the totals calculation for an editable quote
// and returns the full breakdown.
func (h *QuoteHandler) HandleRecalculate(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-recalculate-quote")
	defer h.tracer.EndTransaction(txn)

	id, ok := h.quoteID(c)
	if !ok {
		return
	}

	breakdown, err := h.quoteService.Recalculate(c, id)
	if err != nil {
		h.tracer.RecordError(txn, err)
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, breakdown)
}

// HandleTransition applies a lifecycle event requested by the vendor.
func (h *QuoteHandler) HandleTransition(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-transition-quote")
	defer h.tracer.EndTransaction(txn)

	id, ok := h.quoteID(c)
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := lifecycle.ParseEvent(req.Event)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.tracer.AddAttribute(txn, "event", string(event))

	quote, err := h.quoteService.Transition(c, id, event, req.Actor, req.Reason)
	if err != nil {
		h.tracer.RecordError(txn, err)
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

// HandleSend is shorthand for the send transition.
func (h *QuoteHandler) HandleSend(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-send-quote")
	defer h.tracer.EndTransaction(txn)

	id, ok := h.quoteID(c)
	if !ok {
		return
	}

	quote, err := h.quoteService.Transition(c, id, lifecycle.EventSend, c.GetHeader("X-Actor"), "")
	if err != nil {
		h.tracer.RecordError(txn, err)
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

// HandleUpdateExpiry moves the expiry date of an editable quote.
func (h *QuoteHandler) HandleUpdateExpiry(c *gin.Context) {
	id, ok := h.quoteID(c)
	if !ok {
		return
	}

	var req ExpiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quote, err := h.quoteService.UpdateExpiryDate(c, id, req.ExpiryDate)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

// HandleSearch queries the quote index by number or client name.
func (h *QuoteHandler) HandleSearch(c *gin.Context) {
	if h.elasticClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search is not configured"})
		return
	}

	term := c.Query("q")
	if term == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  term,
				"fields": []string{"number", "client_name"},
			},
		},
	}

	docs, err := h.elasticClient.SearchQuotes(c, query)
	if err != nil {
		log.Error().Err(err).Str("term", term).Msg("Quote search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": docs})
}

func (h *QuoteHandler) quoteID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid quote id"})
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps service errors onto HTTP statuses for the vendor API.
// Vendors get specific errors; the public surface deliberately does not.
func (h *QuoteHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repositories.ErrQuoteNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "quote not found"})
	case errors.Is(err, lifecycle.ErrQuoteExpired):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, pricing.ErrNoMatchingTier),
		errors.Is(err, pricing.ErrOverlappingTiers),
		errors.Is(err, pricing.ErrZeroKits):
		// Rate-table misconfiguration. The vendor needs the specific
		// message to fix the table, not a generic failure.
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Msg("Unhandled quote API error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// RegisterRoutes registers the handler's routes
func (h *QuoteHandler) RegisterRoutes(router *gin.Engine) {
	quotes := router.Group("/api/v1/quotes")
	quotes.POST("", h.HandleCreateQuote)
	quotes.GET("/search", h.HandleSearch)
	quotes.GET("/:id", h.HandleGetQuote)
	quotes.POST("/:id/recalculate", h.HandleRecalculate)
	quotes.POST("/:id/transition", h.HandleTransition)
	quotes.POST("/:id/send", h.HandleSend)
	quotes.PUT("/:id/expiry", h.HandleUpdateExpiry)
}
