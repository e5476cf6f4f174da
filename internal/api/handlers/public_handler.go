package handlers

import (
	"net/http"

	"example.com/merchkit/services/quotes/internal/lifecycle"
	"example.com/merchkit/services/quotes/internal/models"
	"example.com/merchkit/services/quotes/internal/repositories"
	"example.com/merchkit/services/quotes/internal/services"
	"example.com/merchkit/services/quotes/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// PublicHandler serves the unauthenticated client-facing endpoints. The
// access token in the URL is the sole credential, and error responses are
// deliberately uniform so the surface leaks nothing about why a request
// failed.
type PublicHandler struct {
	quoteService *services.QuoteService
	tracer       tracing.Tracer
}

// NewPublicHandler creates a new public handler
func NewPublicHandler(quoteService *services.QuoteService, tracer tracing.Tracer) *PublicHandler {
	return &PublicHandler{
		quoteService: quoteService,
		tracer:       tracer,
	}
}

// RejectRequest optionally carries the client's reason for rejecting.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// PublicQuoteResponse is the client-facing projection of a quote. Internal
// fields (vendor id, sequence, snapshots) are not exposed.
type PublicQuoteResponse struct {
	Number     string              `json:"number"`
	Kind       models.QuoteKind    `json:"kind"`
	Status     lifecycle.Status    `json:"status"`
	ClientName string              `json:"client_name"`
	IssueDate  string              `json:"issue_date"`
	ExpiryDate string              `json:"expiry_date"`
	Subtotal   string              `json:"subtotal"`
	TaxAmount  string              `json:"tax_amount"`
	Total      string              `json:"total"`
	LineItems  []models.LineItem   `json:"line_items,omitempty"`
	Services   []models.ServiceLine `json:"service_lines,omitempty"`
	Boxes      []models.BoxLine    `json:"box_lines,omitempty"`
}

func publicView(quote *models.Quote) PublicQuoteResponse {
	resp := PublicQuoteResponse{
		Number:     quote.Number,
		Kind:       quote.Kind,
		Status:     quote.Status,
		ClientName: quote.Client.Name,
		IssueDate:  quote.IssueDate.Format("2006-01-02"),
		ExpiryDate: quote.ExpiryDate.Format("2006-01-02"),
		Subtotal:   quote.Subtotal.StringFixed(2),
		TaxAmount:  quote.TaxAmount.StringFixed(2),
		Total:      quote.Total.StringFixed(2),
		LineItems:  models.SelectedItems(quote.LineItems),
		Services:   quote.ServiceLines,
		Boxes:      quote.BoxLines,
	}
	return resp
}

// HandleViewQuote resolves the token and returns the quote. Viewing a sent
// quote moves it to in_review as a side effect; a repeat view is not a
// valid transition and is simply ignored.
func (h *PublicHandler) HandleViewQuote(c *gin.Context) {
	txn := h.tracer.StartTransaction("public-view-quote")
	defer h.tracer.EndTransaction(txn)

	quote, err := h.quoteService.ResolvePublicQuote(c, c.Param("token"))
	if err != nil {
		h.respondUnavailable(c, err)
		return
	}

	if quote.Status == lifecycle.StatusSent {
		reviewed, err := h.quoteService.Transition(c, quote.ID, lifecycle.EventReview, "client", "")
		if err == nil {
			quote = reviewed
		} else if !errors.Is(err, lifecycle.ErrInvalidTransition) && !errors.Is(err, lifecycle.ErrQuoteExpired) {
			log.Error().Err(err).Str("quote_id", quote.ID.String()).Msg("Failed to mark quote in review")
		}
	}

	c.JSON(http.StatusOK, publicView(quote))
}

// HandleApprove approves the quote behind the token.
func (h *PublicHandler) HandleApprove(c *gin.Context) {
	h.decide(c, lifecycle.EventApprove, "")
}

// HandleReject rejects the quote behind the token.
func (h *PublicHandler) HandleReject(c *gin.Context) {
	var req RejectRequest
	_ = c.ShouldBindJSON(&req)
	h.decide(c, lifecycle.EventReject, req.Reason)
}

func (h *PublicHandler) decide(c *gin.Context, event lifecycle.Event, reason string) {
	txn := h.tracer.StartTransaction("public-decide-quote")
	defer h.tracer.EndTransaction(txn)

	quote, err := h.quoteService.ResolvePublicQuote(c, c.Param("token"))
	if err != nil {
		h.respondUnavailable(c, err)
		return
	}

	decided, err := h.quoteService.Transition(c, quote.ID, event, "client", reason)
	if err != nil {
		h.tracer.RecordError(txn, err)
		h.respondUnavailable(c, err)
		return
	}

	c.JSON(http.StatusOK, publicView(decided))
}

// respondUnavailable collapses every failure into one of two uniform
// answers. Whether the token was unknown, the quote already decided, or
// the expiry date passed is not distinguishable from outside.
func (h *PublicHandler) respondUnavailable(c *gin.Context, err error) {
	if errors.Is(err, repositories.ErrQuoteNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "quote not found"})
		return
	}
	if errors.Is(err, lifecycle.ErrQuoteExpired) || errors.Is(err, lifecycle.ErrInvalidTransition) {
		c.JSON(http.StatusGone, gin.H{"error": "quote is no longer available"})
		return
	}

	log.Error().Err(err).Msg("Unhandled public API error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// RegisterRoutes registers the handler's routes
func (h *PublicHandler) RegisterRoutes(router *gin.Engine) {
	public := router.Group("/p/quotes")
	public.GET("/:token", h.HandleViewQuote)
	public.POST("/:token/approve", h.HandleApprove)
	public.POST("/:token/reject", h.HandleReject)
}
