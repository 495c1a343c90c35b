package engine

import (
	"ghostpool/internal/authgate"
	"ghostpool/internal/domain"
)

// Pause engages the circuit breaker. While paused every value-moving entry
// point is blocked except EmergencyWithdraw, so users are never locked out
// of their own principal.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
}

// Unpause releases the circuit breaker.
func (e *Engine) Unpause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
}

// Paused reports the circuit breaker state.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// UpdateLevelConfig replaces one level's configuration. New levels get fresh
// state with their first scan one interval out; existing aggregate state is
// preserved.
func (e *Engine) UpdateLevelConfig(cfg domain.LevelConfig) error {
	if cfg.Level == domain.LevelNone {
		return ErrInvalidLevel
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.configs[cfg.Level]; !exists {
		e.states[cfg.Level] = &domain.LevelState{
			Level:          cfg.Level,
			NextScanTimeMs: e.now() + cfg.ScanIntervalMs,
		}
		e.arenas[cfg.Level] = newArena()
		if cfg.Level > e.maxLevel {
			e.maxLevel = cfg.Level
		}
	}
	e.configs[cfg.Level] = cfg
	return nil
}

// SetBoostSigner replaces the boost signer identity.
func (e *Engine) SetBoostSigner(signerB58 string) error {
	gate, err := authgate.New(signerB58)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.gate = gate
	return nil
}
