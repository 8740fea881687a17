// Package api exposes the engine over HTTP: parlay quotes at slip
// submission time and settled match odds for display.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tbreck/courtside/pkg/engine"
	"github.com/tbreck/courtside/pkg/engine/metrics"
	"github.com/tbreck/courtside/pkg/engine/parlay"
)

// TokenSource reads and spends safe-bet token balances.
type TokenSource interface {
	Balance(ctx context.Context, userID string) (int, error)
	Spend(ctx context.Context, userID string, cost int) (int, error)
}

// MatchSource fetches match records.
type MatchSource interface {
	Match(ctx context.Context, id string) (*engine.Match, error)
}

// SlipRecorder persists computed slips for the downstream grader.
type SlipRecorder interface {
	RecordParlay(ctx context.Context, slip *engine.ParlaySlip) error
}

// Broadcaster pushes computed slips to streaming clients.
type Broadcaster interface {
	BroadcastParlay(slip interface{})
}

// Handler contains dependencies for the HTTP handlers.
type Handler struct {
	calc    *parlay.Calculator
	tokens  TokenSource
	matches MatchSource
	slips   SlipRecorder
	hub     Broadcaster
	metrics *metrics.EngineMetrics
	now     func() time.Time
}

// NewHandler creates a handler. tokens, matches, slips and hub may be
// nil; the corresponding features degrade gracefully (no insurance, no
// odds endpoint data, no persistence, no streaming).
func NewHandler(calc *parlay.Calculator, tokens TokenSource, matches MatchSource, slips SlipRecorder, hub Broadcaster, em *metrics.EngineMetrics) *Handler {
	if calc == nil {
		calc = parlay.New(nil)
	}
	if em == nil {
		em = metrics.Default()
	}
	return &Handler{
		calc:    calc,
		tokens:  tokens,
		matches: matches,
		slips:   slips,
		hub:     hub,
		metrics: em,
		now:     time.Now,
	}
}

// HealthCheck returns service health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "courtside-engine",
	})
}

// quoteLeg is one leg in a quote request.
type quoteLeg struct {
	MatchID string          `json:"match_id"`
	Pick    string          `json:"pick"`
	Odds    decimal.Decimal `json:"odds"`
}

// quoteRequest is the slip-submission payload.
type quoteRequest struct {
	UserID  string          `json:"user_id"`
	Stake   decimal.Decimal `json:"stake"`
	SafeBet bool            `json:"safe_bet"`
	Legs    []quoteLeg      `json:"legs"`
}

// quoteResponse carries the computed slip back to the client.
type quoteResponse struct {
	SlipID            string          `json:"slip_id"`
	BaseOdds          decimal.Decimal `json:"base_odds"`
	BonusMultiplier   decimal.Decimal `json:"bonus_multiplier"`
	FinalOdds         decimal.Decimal `json:"final_odds"`
	PotentialWinnings decimal.Decimal `json:"potential_winnings"`
	IsSafeBet         bool            `json:"is_safe_bet"`
	SafeBetTokenCost  int             `json:"safe_bet_token_cost"`
	AppliedBonuses    []string        `json:"applied_bonuses"`
	TokensRemaining   *int            `json:"tokens_remaining,omitempty"`
}

// QuoteParlay computes a parlay slip from submitted legs. Validation
// failures come back as 400s with a specific reason so the client can
// correct the slip; insurance quietly degrades when tokens run short.
func (h *Handler) QuoteParlay(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.metrics.RecordRequest("parlay_quote", http.StatusBadRequest)
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	legs := make([]engine.PredictionLeg, 0, len(req.Legs))
	for i, l := range req.Legs {
		pick, err := parsePick(l.Pick)
		if err != nil {
			h.metrics.RecordRequest("parlay_quote", http.StatusBadRequest)
			respondError(w, http.StatusBadRequest, fmt.Sprintf("leg %d: %v", i, err))
			return
		}
		legs = append(legs, engine.PredictionLeg{MatchID: l.MatchID, Pick: pick, Odds: l.Odds})
	}

	availableTokens := 0
	if req.SafeBet && req.UserID != "" && h.tokens != nil {
		bal, err := h.tokens.Balance(r.Context(), req.UserID)
		if err != nil {
			// Insurance is best-effort; a balance read failure only
			// costs the user the upsell.
			log.Printf("[API] Token balance lookup failed for %s: %v", req.UserID, err)
		} else {
			availableTokens = bal
		}
	}

	res, err := h.calc.Compute(legs, req.Stake, req.SafeBet, availableTokens)
	if err != nil {
		h.metrics.RecordParlay("rejected", len(legs), false, 0)
		h.metrics.RecordRequest("parlay_quote", http.StatusBadRequest)
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var tokensRemaining *int
	if res.IsSafeBet && h.tokens != nil {
		remaining, err := h.tokens.Spend(r.Context(), req.UserID, res.SafeBetTokenCost)
		if err != nil {
			// Lost a race on the balance; degrade to an uninsured slip.
			log.Printf("[API] Token spend failed for %s: %v", req.UserID, err)
			res.IsSafeBet = false
			res.SafeBetTokenCost = 0
		} else {
			tokensRemaining = &remaining
		}
	}

	slip := &engine.ParlaySlip{
		ID:               uuid.New().String(),
		UserID:           req.UserID,
		Legs:             legs,
		Stake:            req.Stake,
		BaseOdds:         res.BaseOdds,
		BonusMultiplier:  res.BonusMultiplier,
		FinalOdds:        res.FinalOdds,
		IsSafeBet:        res.IsSafeBet,
		SafeBetTokenCost: res.SafeBetTokenCost,
		CreatedAt:        h.now(),
	}

	if h.slips != nil {
		if err := h.slips.RecordParlay(r.Context(), slip); err != nil {
			log.Printf("[API] Failed to record parlay %s: %v", slip.ID, err)
			h.metrics.RecordRequest("parlay_quote", http.StatusInternalServerError)
			respondError(w, http.StatusInternalServerError, "failed to record slip")
			return
		}
	}

	if h.hub != nil {
		h.hub.BroadcastParlay(slip)
	}

	h.metrics.RecordParlay("accepted", len(legs), res.IsSafeBet, res.SafeBetTokenCost)
	h.metrics.RecordRequest("parlay_quote", http.StatusOK)

	respondJSON(w, http.StatusOK, quoteResponse{
		SlipID:            slip.ID,
		BaseOdds:          res.BaseOdds,
		BonusMultiplier:   res.BonusMultiplier,
		FinalOdds:         res.FinalOdds,
		PotentialWinnings: res.PotentialWinnings,
		IsSafeBet:         res.IsSafeBet,
		SafeBetTokenCost:  res.SafeBetTokenCost,
		AppliedBonuses:    res.AppliedBonuses,
		TokensRemaining:   tokensRemaining,
	})
}

// MatchOdds returns the derived probabilities and points split for a
// settled match.
func (h *Handler) MatchOdds(w http.ResponseWriter, r *http.Request) {
	if h.matches == nil {
		respondError(w, http.StatusServiceUnavailable, "match data unavailable")
		return
	}

	id := chi.URLParam(r, "id")
	m, err := h.matches.Match(r.Context(), id)
	if err != nil {
		h.metrics.RecordRequest("match_odds", http.StatusNotFound)
		respondError(w, http.StatusNotFound, fmt.Sprintf("match %s not found", id))
		return
	}
	if !m.Processed {
		h.metrics.RecordRequest("match_odds", http.StatusConflict)
		respondError(w, http.StatusConflict, fmt.Sprintf("match %s is not settled yet", id))
		return
	}

	h.metrics.RecordRequest("match_odds", http.StatusOK)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"match_id":        m.ID,
		"status":          m.Status.String(),
		"prob_a":          m.ProbA,
		"prob_b":          m.ProbB,
		"points_favorite": m.PointsFavorite,
		"points_underdog": m.PointsUnderdog,
	})
}

func parsePick(s string) (engine.Pick, error) {
	switch s {
	case "player_a", "a":
		return engine.PickPlayerA, nil
	case "player_b", "b":
		return engine.PickPlayerB, nil
	default:
		return 0, errors.New(`pick must be "player_a" or "player_b"`)
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
