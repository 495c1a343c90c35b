package engine

import (
	"sort"

	"ghostpool/internal/domain"
)

// GetPosition returns a copy of a user's position.
func (e *Engine) GetPosition(user string) (*domain.Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, exists := e.positions[user]
	if !exists {
		return nil, ErrNoPositionExists
	}
	posCopy := *pos
	return &posCopy, nil
}

// PendingRewards returns the reward a claim would settle right now,
// before yield boosts.
func (e *Engine) PendingRewards(user string) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, exists := e.positions[user]
	if !exists {
		return 0, ErrNoPositionExists
	}
	if !pos.Alive {
		return pos.DeadRewards, nil
	}
	return pos.AccruedRewards + pendingLocked(pos, e.states[pos.Level]), nil
}

// LevelConfigView returns a copy of one level's configuration.
func (e *Engine) LevelConfigView(level int) (domain.LevelConfig, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, ok := e.configs[level]
	if !ok {
		return domain.LevelConfig{}, ErrInvalidLevel
	}
	return cfg, nil
}

// LevelStateView returns a copy of one level's aggregate state.
func (e *Engine) LevelStateView(level int) (domain.LevelState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.states[level]
	if !ok {
		return domain.LevelState{}, ErrInvalidLevel
	}
	return *state, nil
}

// Levels returns the configured level indices in ascending order.
func (e *Engine) Levels() []int {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]int, 0, len(e.configs))
	for level := range e.configs {
		out = append(out, level)
	}
	sort.Ints(out)
	return out
}

// ActiveScan returns a copy of the level's open scan, or ErrScanNotActive.
func (e *Engine) ActiveScan(level int) (*domain.Scan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	scan, active := e.scans[level]
	if !active {
		return nil, ErrScanNotActive
	}
	scanCopy := *scan
	return &scanCopy, nil
}

// ResetView returns a copy of the global reset record.
func (e *Engine) ResetView() domain.SystemReset {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reset
}

// TotalValueLocked sums staked value across all levels.
func (e *Engine) TotalValueLocked() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	var tvl int64
	for _, state := range e.states {
		tvl += state.TotalStaked
	}
	return tvl
}

// AlivePositions returns the alive users at a level. Order is unspecified.
func (e *Engine) AlivePositions(level int) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.arenas[level]
	if !ok {
		return nil, ErrInvalidLevel
	}
	return a.members(), nil
}
