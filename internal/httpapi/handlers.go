package httpapi

import (
	"net/http"
	"strconv"

	"adwatch-rewards-go/internal/models"

	"github.com/go-chi/chi/v5"
)

func (s *Server) ensureUser(w http.ResponseWriter, r *http.Request) {
	var req models.EnsureUserRequest
	if err := decodeJSON(r, &req); err != nil || req.UserId <= 0 {
		writeErrorCode(w, http.StatusBadRequest, "bad_request")
		return
	}

	if err := s.store.EnsureUser(r.Context(), req.UserId, req.ReferrerId); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) getBalances(w http.ResponseWriter, r *http.Request) {
	userId, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || userId <= 0 {
		writeErrorCode(w, http.StatusBadRequest, "bad_request")
		return
	}

	balances, err := s.store.GetBalances(r.Context(), userId)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req models.StartSessionRequest
	if err := decodeJSON(r, &req); err != nil || req.UserId <= 0 {
		writeErrorCode(w, http.StatusBadRequest, "bad_request")
		return
	}

	result, err := s.store.StartSession(r.Context(), req.UserId, req.WantsVip)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.StartSessionResponse{
		SessionId: result.SessionId,
		Seconds:   result.Seconds,
		Reward:    result.Reward,
		Ad:        result.Ad,
		Seen:      result.Seen,
		Limit:     result.Limit,
	})
}

func (s *Server) completeSession(w http.ResponseWriter, r *http.Request) {
	var req models.CompleteSessionRequest
	if err := decodeJSON(r, &req); err != nil || req.UserId <= 0 || req.SessionId == "" {
		writeErrorCode(w, http.StatusBadRequest, "bad_request")
		return
	}

	result, err := s.store.CompleteSession(r.Context(), req.SessionId, req.UserId)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.CompleteSessionResponse{
		Already:  result.Already,
		Balances: result.Balances,
	})
}

func (s *Server) convert(w http.ResponseWriter, r *http.Request) {
	var req models.ConvertRequest
	if err := decodeJSON(r, &req); err != nil || req.UserId <= 0 {
		writeErrorCode(w, http.StatusBadRequest, "bad_request")
		return
	}

	balances, err := s.store.Convert(r.Context(), req.UserId, req.Amount, req.Direction)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.ConvertResponse{Balances: balances})
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	var req models.WithdrawRequestBody
	if err := decodeJSON(r, &req); err != nil || req.UserId <= 0 {
		writeErrorCode(w, http.StatusBadRequest, "bad_request")
		return
	}

	request, err := s.store.RequestWithdraw(r.Context(), req.UserId, req.Amount, req.Destination)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.WithdrawResponse{
		Id:          request.Id,
		Amount:      request.Amount,
		Destination: request.Destination,
		Status:      request.Status,
	})
}
