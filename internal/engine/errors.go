package engine

import "errors"

// Settlement errors. Every failure aborts the whole call with no partial
// state change; the only silent skips are inside SubmitDeaths (see scan.go).
var (
	// ErrInvalidLevel is returned for a level outside the configured range.
	ErrInvalidLevel = errors.New("invalid level")

	// ErrInvalidAmount is returned for a zero or negative amount.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrBelowMinimumStake is returned when an opening stake is under the
	// level minimum.
	ErrBelowMinimumStake = errors.New("below minimum stake")

	// ErrPositionAlreadyExists is returned when the user already holds an
	// open position at any level.
	ErrPositionAlreadyExists = errors.New("position already exists")

	// ErrNoPositionExists is returned when the user has no position.
	ErrNoPositionExists = errors.New("no position exists")

	// ErrPositionDead is returned when the operation needs an alive position.
	ErrPositionDead = errors.New("position is dead")

	// ErrPositionLocked is returned when extraction is attempted inside the
	// lock window preceding the level's next scan.
	ErrPositionLocked = errors.New("position locked before scan")

	// ErrLevelAtCapacity is returned when a full level has no evictable
	// position. Unreachable while capacity > 0 implies entries exist.
	ErrLevelAtCapacity = errors.New("level at capacity")

	// ErrSystemResetNotReady is returned when the reset deadline has not
	// arrived.
	ErrSystemResetNotReady = errors.New("system reset not ready")

	// ErrScanNotReady is returned when the level's next scan time has not
	// arrived.
	ErrScanNotReady = errors.New("scan not ready")

	// ErrScanAlreadyActive is returned when a non-finalized scan exists.
	ErrScanAlreadyActive = errors.New("scan already active")

	// ErrScanNotActive is returned when no scan is open for the level.
	ErrScanNotActive = errors.New("scan not active")

	// ErrScanAlreadyFinalized is returned when the scan was finalized.
	ErrScanAlreadyFinalized = errors.New("scan already finalized")

	// ErrSubmissionWindowClosed is returned when deaths are submitted after
	// the window.
	ErrSubmissionWindowClosed = errors.New("submission window closed")

	// ErrSubmissionWindowNotClosed is returned when finalize is called
	// before the window ends.
	ErrSubmissionWindowNotClosed = errors.New("submission window not closed")

	// ErrBatchTooLarge is returned when a death batch exceeds the level cap.
	ErrBatchTooLarge = errors.New("batch too large")

	// ErrUserNotDead is returned when a submitted candidate's recomputed
	// roll proves survival. The whole batch fails.
	ErrUserNotDead = errors.New("user not dead")

	// ErrNonceAlreadyUsed is returned when a boost grant nonce is replayed.
	ErrNonceAlreadyUsed = errors.New("nonce already used")

	// ErrPaused is returned while the circuit breaker is engaged.
	ErrPaused = errors.New("system paused")

	// ErrNoBoostSigner is returned when no boost signer is configured.
	ErrNoBoostSigner = errors.New("no boost signer configured")
)
