package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"adwatch-rewards-go/internal/models"
	"adwatch-rewards-go/internal/store"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Server exposes the reward engine over JSON. Authentication of the acting
// user happens upstream (the bot layer); this surface trusts the user id in
// the body.
type Server struct {
	store store.RewardStore
}

func NewServer(st store.RewardStore) *Server {
	return &Server{store: st}
}

// Router wires the endpoint table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/users/ensure", s.ensureUser)
		r.Get("/users/{id}/balances", s.getBalances)
		r.Post("/sessions/start", s.startSession)
		r.Post("/sessions/complete", s.completeSession)
		r.Post("/convert", s.convert)
		r.Post("/withdraw", s.withdraw)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("Request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("Failed to encode response", zap.Error(err))
	}
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeErrorCode(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, models.ErrorResponse{Error: code})
}

// writeStoreError maps engine errors onto the wire taxonomy: validation and
// state conflicts and exhausted resources are 4xx, anything unrecognized is
// an infrastructure 5xx.
func writeStoreError(w http.ResponseWriter, err error) {
	var tooEarly *store.TooEarlyError
	if errors.As(err, &tooEarly) {
		writeJSON(w, http.StatusConflict, models.ErrorResponse{
			Error:     "too_early",
			Remaining: &tooEarly.Remaining,
		})
		return
	}
	var dailyLimit *store.DailyLimitError
	if errors.As(err, &dailyLimit) {
		writeJSON(w, http.StatusTooManyRequests, models.ErrorResponse{
			Error: "daily_limit",
			Limit: dailyLimit.Limit,
		})
		return
	}

	switch {
	case errors.Is(err, store.ErrDailyLimit):
		writeErrorCode(w, http.StatusTooManyRequests, "daily_limit")
	case errors.Is(err, store.ErrNoAd):
		writeErrorCode(w, http.StatusNotFound, "no_ad")
	case errors.Is(err, store.ErrSessionNotFound):
		writeErrorCode(w, http.StatusNotFound, "session_not_found")
	case errors.Is(err, store.ErrNotYourSession):
		writeErrorCode(w, http.StatusForbidden, "not_your_session")
	case errors.Is(err, store.ErrBadAmount):
		writeErrorCode(w, http.StatusBadRequest, "bad_amount")
	case errors.Is(err, store.ErrInvalidDirection):
		writeErrorCode(w, http.StatusBadRequest, "invalid_direction")
	case errors.Is(err, store.ErrMinWithdraw):
		writeErrorCode(w, http.StatusBadRequest, "min_withdraw")
	case errors.Is(err, store.ErrInsufficientFunds):
		writeErrorCode(w, http.StatusPaymentRequired, "insufficient_funds")
	case errors.Is(err, store.ErrInsufficientBalance):
		writeErrorCode(w, http.StatusPaymentRequired, "insufficient_balance")
	default:
		zap.L().Error("Request failed", zap.Error(err))
		writeErrorCode(w, http.StatusInternalServerError, "internal")
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC()})
}
