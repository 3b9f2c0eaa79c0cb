package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"giftrank/gateway"
	"giftrank/models"
	"giftrank/service"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// SyncResponse is the body of a successful sync trigger
type SyncResponse struct {
	Success        bool      `json:"success"`
	SyncedPayments int       `json:"syncedPayments"`
	UpdatedStores  int       `json:"updatedStores"`
	LastSyncTime   time.Time `json:"lastSyncTime"`
}

// CheckoutRequest is the body of POST /api/checkout
type CheckoutRequest struct {
	TalentOrStoreID string `json:"talentOrStoreId"`
	OfferID         string `json:"offerId"`
}

// CheckoutResponse carries the resolved checkout link
type CheckoutResponse struct {
	URL string `json:"url"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSync handles POST /api/sync, the scheduler trigger
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	if s.opts.Production && !s.authorized(r) {
		respondError(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	s.runSync(w, r)
}

// handleManualSync handles GET /api/sync, a convenience trigger outside production
func (s *Server) handleManualSync(w http.ResponseWriter, r *http.Request) {
	if s.opts.Production {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}
	s.runSync(w, r)
}

func (s *Server) authorized(r *http.Request) bool {
	if s.opts.CronSecret == "" {
		return false
	}
	token := bearerToken(r)
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.CronSecret)) == 1
}

func (s *Server) runSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.sync.Run(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, gateway.ErrUnavailable) {
			status = http.StatusServiceUnavailable
		}
		respondError(w, status, "Sync failed", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, SyncResponse{
		Success:        true,
		SyncedPayments: result.SyncedPayments,
		UpdatedStores:  result.UpdatedStores,
		LastSyncTime:   result.LastSyncTime,
	})
}

// handleRanking handles GET /api/stores/{storeID}/ranking[?month=YYYY-MM]
func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	storeID := strings.TrimSpace(chi.URLParam(r, "storeID"))
	if storeID == "" {
		respondError(w, http.StatusBadRequest, "storeId is required", "")
		return
	}

	var (
		ranking *models.Ranking
		err     error
	)
	if month := r.URL.Query().Get("month"); month != "" {
		ranking, err = s.ranking.GetStoreRankingForMonth(r.Context(), storeID, month)
	} else {
		ranking, err = s.ranking.GetStoreRanking(r.Context(), storeID)
	}
	if err != nil {
		respondServiceError(w, err, "Failed to load ranking")
		return
	}

	respondJSON(w, http.StatusOK, ranking)
}

// handleCheckout handles POST /api/checkout
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodySize)

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "request body is required", "")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid JSON in request body", "")
		return
	}

	req.TalentOrStoreID = strings.TrimSpace(req.TalentOrStoreID)
	req.OfferID = strings.TrimSpace(req.OfferID)
	if req.TalentOrStoreID == "" || req.OfferID == "" {
		respondError(w, http.StatusBadRequest, "Missing required fields", "talentOrStoreId and offerId are required")
		return
	}

	url, err := s.checkout.Resolve(r.Context(), req.TalentOrStoreID, req.OfferID)
	if err != nil {
		respondServiceError(w, err, "Failed to create checkout link")
		return
	}

	respondJSON(w, http.StatusOK, CheckoutResponse{URL: url})
}

// respondServiceError maps service sentinels to status codes
func respondServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(w, http.StatusNotFound, "Not found", err.Error())
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, service.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, gateway.ErrUnavailable):
		respondError(w, http.StatusServiceUnavailable, "Payment provider unavailable", err.Error())
	default:
		log.WithError(err).Error(fallback)
		respondError(w, http.StatusInternalServerError, fallback, "")
	}
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

// respondError sends an error response with the given status code and message.
func respondError(w http.ResponseWriter, status int, message, detail string) {
	respondJSON(w, status, ErrorResponse{Error: message, Message: detail})
}
