package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/mathbot/internal/api"
	"github.com/cloo-solutions/mathbot/internal/domain"
	"github.com/cloo-solutions/mathbot/internal/logger"
	"github.com/cloo-solutions/mathbot/internal/telemetry"
)

type Asker interface {
	Ask(ctx context.Context, question string) (*domain.AskResult, error)
}

type AskHandler struct {
	svc Asker
	log *logger.Logger
}

func NewAskHandler(svc Asker, log *logger.Logger) *AskHandler {
	return &AskHandler{svc: svc, log: log}
}

type AskRequest struct {
	Question string `json:"question"`
}

// Ask answers one question. Pipeline failures are reported inside the result with
// status 200; only validation and availability errors change the status.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.Ask(r.Context(), req.Question)
	if err != nil {
		if api.DomainErrorToHTTP(err) >= http.StatusInternalServerError && !errors.Is(err, domain.ErrGraphNotLoaded) {
			h.log.Error("ask failed", "error", err, "request_id", telemetry.RequestID(r.Context()))
			telemetry.CaptureError(r.Context(), err)
		}
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, result)
}

// decodeJSON reads a JSON body into dst and writes the error response itself when it
// cannot.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
