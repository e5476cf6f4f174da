package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"example.com/merchkit/services/quotes/internal/lifecycle"
	"example.com/merchkit/services/quotes/internal/pricing"
	"example.com/merchkit/services/quotes/internal/repositories"
	"example.com/merchkit/services/quotes/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &QuoteHandler{}

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", errors.Wrap(services.ErrValidation, "client is required"), http.StatusBadRequest},
		{"not found", repositories.ErrQuoteNotFound, http.StatusNotFound},
		{"expired", errors.Wrap(lifecycle.ErrQuoteExpired, "quote MQ-2026-000001"), http.StatusGone},
		{"invalid transition", errors.Wrap(lifecycle.ErrInvalidTransition, "approve from unsent"), http.StatusConflict},
		{"no matching tier", errors.Wrap(pricing.ErrNoMatchingTier, "quantity 700"), http.StatusUnprocessableEntity},
		{"overlapping tiers", errors.Wrap(pricing.ErrOverlappingTiers, "rows 2 and 3"), http.StatusUnprocessableEntity},
		{"zero kits", errors.Wrap(pricing.ErrZeroKits, "kit count 0"), http.StatusUnprocessableEntity},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			h.respondError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
		})
	}
}
