package api

import (
	"errors"
	"net/http"

	"github.com/mr-tron/base58"

	"ghostpool/internal/domain"
)

type openRequest struct {
	User   string `json:"user"`
	Amount int64  `json:"amount"`
	Level  int    `json:"level"`
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.Open(r.Context(), req.User, req.Amount, req.Level); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "opened"})
}

type stakeRequest struct {
	User   string `json:"user"`
	Amount int64  `json:"amount"`
}

func (s *Server) handleAddStake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.AddStake(r.Context(), req.User, req.Amount); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "added"})
}

type userRequest struct {
	User string `json:"user"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.Extract(r.Context(), req.User); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "extracted"})
}

type paidResponse struct {
	Paid int64 `json:"paid"`
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	paid, err := s.engine.ClaimRewards(r.Context(), req.User)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paidResponse{Paid: paid})
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	paid, err := s.engine.CollectDead(r.Context(), req.User)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paidResponse{Paid: paid})
}

func (s *Server) handleEmergencyWithdraw(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	paid, err := s.engine.EmergencyWithdraw(r.Context(), req.User)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paidResponse{Paid: paid})
}

// positionResponse is the full user view: the position, its pending rewards
// and any unexpired boosts.
type positionResponse struct {
	Position       *domain.Position `json:"position"`
	PendingRewards int64            `json:"pending_rewards"`
	Boosts         []domain.Boost   `json:"boosts,omitempty"`
}

func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing query parameter: user"))
		return
	}

	pos, err := s.engine.GetPosition(user)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	pending, err := s.engine.PendingRewards(user)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, positionResponse{
		Position:       pos,
		PendingRewards: pending,
		Boosts:         s.engine.ActiveBoosts(user),
	})
}

// levelResponse bundles a tier's configuration, live state and active scan.
type levelResponse struct {
	Config domain.LevelConfig `json:"config"`
	State  domain.LevelState  `json:"state"`
	Scan   *domain.Scan       `json:"scan,omitempty"`
}

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	levels := s.engine.Levels()
	out := make([]levelResponse, 0, len(levels))
	for _, level := range levels {
		resp, err := s.levelView(level)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLevel(w http.ResponseWriter, r *http.Request) {
	level, err := queryInt(r, "level")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.levelView(level)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) levelView(level int) (levelResponse, error) {
	cfg, err := s.engine.LevelConfigView(level)
	if err != nil {
		return levelResponse{}, err
	}
	state, err := s.engine.LevelStateView(level)
	if err != nil {
		return levelResponse{}, err
	}
	resp := levelResponse{Config: cfg, State: state}
	if scan, err := s.engine.ActiveScan(level); err == nil {
		resp.Scan = scan
	}
	return resp, nil
}

// resetResponse is the dead-man's-switch view plus the global TVL it would
// draw the penalty pool from.
type resetResponse struct {
	Reset            domain.SystemReset `json:"reset"`
	TotalValueLocked int64              `json:"total_value_locked"`
}

func (s *Server) handleResetView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, resetResponse{
		Reset:            s.engine.ResetView(),
		TotalValueLocked: s.engine.TotalValueLocked(),
	})
}

type levelRequest struct {
	Level int `json:"level"`
}

func (s *Server) handleExecuteScan(w http.ResponseWriter, r *http.Request) {
	var req levelRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	scan, err := s.engine.ExecuteScan(r.Context(), req.Level)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, scan)
}

type submitDeathsRequest struct {
	Level      int      `json:"level"`
	Candidates []string `json:"candidates"`
	Submitter  string   `json:"submitter"`
}

type submitDeathsResponse struct {
	Accepted int `json:"accepted"`
}

func (s *Server) handleSubmitDeaths(w http.ResponseWriter, r *http.Request) {
	var req submitDeathsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	accepted, err := s.engine.SubmitDeaths(r.Context(), req.Level, req.Candidates, req.Submitter)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitDeathsResponse{Accepted: accepted})
}

func (s *Server) handleFinalizeScan(w http.ResponseWriter, r *http.Request) {
	var req levelRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.FinalizeScan(r.Context(), req.Level); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "finalized"})
}

type triggerResetRequest struct {
	Caller string `json:"caller"`
}

func (s *Server) handleTriggerReset(w http.ResponseWriter, r *http.Request) {
	var req triggerResetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	event, err := s.engine.TriggerSystemReset(r.Context(), req.Caller)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// boostRequest carries a signed grant; the signature is base58 like the keys.
type boostRequest struct {
	User      string `json:"user"`
	Kind      string `json:"kind"`
	ValueBps  int64  `json:"value_bps"`
	ExpiryMs  int64  `json:"expiry_ms"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

func (s *Server) handleApplyBoost(w http.ResponseWriter, r *http.Request) {
	var req boostRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sig, err := base58.Decode(req.Signature)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("signature is not base58"))
		return
	}

	grant := &domain.BoostGrant{
		User:      req.User,
		Kind:      domain.BoostKind(req.Kind),
		ValueBps:  req.ValueBps,
		ExpiryMs:  req.ExpiryMs,
		Nonce:     req.Nonce,
		Signature: sig,
	}
	if err := s.engine.ApplyBoost(r.Context(), grant); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "applied"})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.engine.Pause()
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (s *Server) handleUnpause(w http.ResponseWriter, r *http.Request) {
	s.engine.Unpause()
	writeJSON(w, http.StatusOK, map[string]string{"status": "running"})
}

func (s *Server) handleUpdateLevelConfig(w http.ResponseWriter, r *http.Request) {
	var cfg domain.LevelConfig
	if err := decode(r, &cfg); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.UpdateLevelConfig(cfg); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type signerRequest struct {
	Signer string `json:"signer"`
}

func (s *Server) handleSetBoostSigner(w http.ResponseWriter, r *http.Request) {
	var req signerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.engine.SetBoostSigner(req.Signer); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rotated"})
}
