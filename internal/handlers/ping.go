package handlers

import (
	"net/http"

	"giveawaybot/internal/logger"
)

// PingResponse reports whether the giveaway row is readable
type PingResponse struct {
	Status   string `json:"status"`
	Giveaway string `json:"giveaway"`
}

// HandlePing is the liveness probe; it answers 503 when the store cannot be read
func (a *API) HandlePing(w http.ResponseWriter, r *http.Request) {
	if _, err := a.svc.Giveaway(r.Context()); err != nil {
		logger.Error(0, "ping_failed", err)
		respondWithJSON(w, http.StatusServiceUnavailable, PingResponse{Status: "unavailable", Giveaway: a.svc.Code()})
		return
	}
	respondWithJSON(w, http.StatusOK, PingResponse{Status: "ok", Giveaway: a.svc.Code()})
}
