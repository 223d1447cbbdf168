package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"giveawaybot/internal/auth"
	"giveawaybot/internal/logger"
	"giveawaybot/internal/service"
	"giveawaybot/internal/storage"
)

// API serves the giveaway over HTTP
type API struct {
	svc *service.GiveawayService
}

// NewAPI creates the HTTP handlers for svc
func NewAPI(svc *service.GiveawayService) *API {
	return &API{svc: svc}
}

// GiveawayResponse is the response for GET /api/giveaway
type GiveawayResponse struct {
	Code          string     `json:"code"`
	Status        string     `json:"status"`
	OrganizerLink string     `json:"organizer_link"`
	PrizeCount    int        `json:"prize_count"`
	PrizeLabel    string     `json:"prize_label"`
	CreatedAt     time.Time  `json:"created_at"`
	StartAt       *time.Time `json:"start_at,omitempty"`
	EndAt         *time.Time `json:"end_at,omitempty"`
	ResultsAt     *time.Time `json:"results_at,omitempty"`
	Participants  int        `json:"participants"`
	Participating bool       `json:"participating"`
	JoinedAt      *time.Time `json:"joined_at,omitempty"`
}

// HandleGiveaway handles GET /api/giveaway
func (a *API) HandleGiveaway(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		logger.Debug(0, "giveaway_unauthorized", "path="+r.URL.Path)
		respondWithError(w, "Unauthorized: user not in context", http.StatusUnauthorized)
		return
	}

	view, err := a.svc.View(r.Context(), userID)
	if errors.Is(err, service.ErrGiveawayNotFound) {
		respondWithError(w, "Giveaway not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Debug(userID, "giveaway_error", "error="+err.Error())
		respondWithError(w, "Failed to get giveaway", http.StatusInternalServerError)
		return
	}

	g := view.Giveaway
	response := GiveawayResponse{
		Code:          g.Code,
		Status:        string(view.Status),
		OrganizerLink: g.OrganizerLink,
		PrizeCount:    g.PrizeCount,
		PrizeLabel:    g.PrizeLabel,
		CreatedAt:     g.CreatedAt,
		StartAt:       g.StartAt,
		EndAt:         g.EndAt,
		ResultsAt:     g.ResultsAt,
		Participants:  view.Participants,
	}
	if view.Participant != nil {
		response.Participating = true
		response.JoinedAt = &view.Participant.JoinedAt
	}

	logger.Debug(userID, "giveaway_viewed", fmt.Sprintf("status=%s participating=%t", view.Status, response.Participating))
	respondWithJSON(w, http.StatusOK, response)
}

// WinnersResponse is the response for GET /api/admin/winners
type WinnersResponse struct {
	Code    string           `json:"code"`
	Winners []storage.Winner `json:"winners"`
}

// HandleWinners handles GET /api/admin/winners
func (a *API) HandleWinners(w http.ResponseWriter, r *http.Request) {
	winners, err := a.svc.Winners(r.Context())
	if err != nil {
		logger.Debug(0, "winners_error", "error="+err.Error())
		respondWithError(w, "Failed to list winners", http.StatusInternalServerError)
		return
	}
	if winners == nil {
		winners = []storage.Winner{}
	}
	respondWithJSON(w, http.StatusOK, WinnersResponse{Code: a.svc.Code(), Winners: winners})
}

// DeliveriesResponse is the response for GET /api/admin/deliveries
type DeliveriesResponse struct {
	BatchID    string             `json:"batch_id"`
	Total      int                `json:"total"`
	Sent       int                `json:"sent"`
	Failed     int                `json:"failed"`
	Deliveries []storage.Delivery `json:"deliveries"`
}

// HandleDeliveries handles GET /api/admin/deliveries?batch=<id>. Without a batch id
// the most recent batch is returned.
func (a *API) HandleDeliveries(w http.ResponseWriter, r *http.Request) {
	deliveries, batchID, err := a.svc.Deliveries(r.Context(), r.URL.Query().Get("batch"))
	if err != nil {
		logger.Debug(0, "deliveries_error", "error="+err.Error())
		respondWithError(w, "Failed to list deliveries", http.StatusInternalServerError)
		return
	}

	response := DeliveriesResponse{
		BatchID:    batchID,
		Total:      len(deliveries),
		Deliveries: deliveries,
	}
	if response.Deliveries == nil {
		response.Deliveries = []storage.Delivery{}
	}
	for _, d := range deliveries {
		if d.Status == storage.DeliveryStatusSent {
			response.Sent++
		} else {
			response.Failed++
		}
	}
	respondWithJSON(w, http.StatusOK, response)
}
