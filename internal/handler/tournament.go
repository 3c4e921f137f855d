package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"casino-tournaments/internal/game"
	"casino-tournaments/internal/model"
)

// Tournaments is the service surface the HTTP handlers call.
type Tournaments interface {
	Ping(ctx context.Context) error
	ListTournaments(ctx context.Context, status string) ([]*model.Tournament, error)
	GetTournament(ctx context.Context, id string) (*model.Tournament, error)
	Leaderboard(ctx context.Context, id string) ([]model.LeaderboardRow, error)
	Results(ctx context.Context, id string) ([]model.Result, error)
	GetEntry(ctx context.Context, id, wallet string) (*model.Entry, error)
	Join(ctx context.Context, id, wallet, username string, now time.Time) (*model.Entry, error)
	RecordRound(ctx context.Context, round model.Round, now time.Time) (*model.EntrySnapshot, error)
	Tick(ctx context.Context, now time.Time) (*model.TickResult, error)
	Finalize(ctx context.Context, id string, now time.Time) (*model.FinalizationResult, error)
	FinalizeOverdue(ctx context.Context, now time.Time) (*model.BatchFinalization, error)
}

// LiveFeed subscribes a websocket request to a tournament's events.
type LiveFeed interface {
	ServeWS(w http.ResponseWriter, r *http.Request, tournamentID string) error
}

// TournamentHandler handles the public and internal tournament routes.
type TournamentHandler struct {
	svc  Tournaments
	feed LiveFeed
	now  func() time.Time
}

// NewTournamentHandler creates a new TournamentHandler. feed may be nil, in
// which case the websocket route answers 404.
func NewTournamentHandler(svc Tournaments, feed LiveFeed, now func() time.Time) *TournamentHandler {
	if now == nil {
		now = time.Now
	}
	return &TournamentHandler{svc: svc, feed: feed, now: now}
}

type joinRequest struct {
	WalletAddress string `json:"wallet_address"`
	Username      string `json:"username"`
}

// Health handles GET /healthz.
func (h *TournamentHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		serviceErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// List handles GET /api/v1/tournaments.
func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	tournaments, err := h.svc.ListTournaments(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		serviceErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tournaments)
}

// Get handles GET /api/v1/tournaments/{id}.
func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.GetTournament(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		serviceErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Leaderboard handles GET /api/v1/tournaments/{id}/leaderboard.
func (h *TournamentHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Leaderboard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		serviceErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// Results handles GET /api/v1/tournaments/{id}/results.
func (h *TournamentHandler) Results(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.Results(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		serviceErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// Entry handles GET /api/v1/tournaments/{id}/entries/{wallet}.
func (h *TournamentHandler) Entry(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.GetEntry(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "wallet"))
	if err != nil {
		serviceErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// Join handles POST /api/v1/tournaments/{id}/join.
func (h *TournamentHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}

	e, err := h.svc.Join(r.Context(), chi.URLParam(r, "id"), req.WalletAddress, req.Username, h.now())
	if err != nil {
		serviceErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// RecordRound handles POST /api/v1/rounds with a settlement payload.
func (h *TournamentHandler) RecordRound(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	settlement, err := game.DecodeSettlement(body)
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	snap, err := h.svc.RecordRound(r.Context(), settlement.Round(), h.now())
	if err != nil {
		serviceErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// Tick handles POST /internal/tick.
func (h *TournamentHandler) Tick(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Tick(r.Context(), h.now())
	if err != nil {
		serviceErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// FinalizeOverdue handles POST /internal/finalize.
func (h *TournamentHandler) FinalizeOverdue(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.FinalizeOverdue(r.Context(), h.now())
	if err != nil {
		serviceErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Finalize handles POST /internal/tournaments/{id}/finalize.
func (h *TournamentHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Finalize(r.Context(), chi.URLParam(r, "id"), h.now())
	if err != nil {
		serviceErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Live handles GET /ws/tournaments/{id}.
func (h *TournamentHandler) Live(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		errorResponse(w, http.StatusNotFound, "not_found", "live feed is disabled")
		return
	}

	t, err := h.svc.GetTournament(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		serviceErrorResponse(w, r, err)
		return
	}

	// Upgrade writes its own error response.
	if err := h.feed.ServeWS(w, r, t.ID); err != nil {
		log.Debug().Err(err).Str("tournament_id", t.ID).Msg("Live feed subscription failed")
	}
}
