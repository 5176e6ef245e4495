// Package lock serializes profiling runs against one MySQL dataset with advisory locks.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dbsmedya/goerd/internal/logger"
)

// ErrLockTimeout is returned when another run holds the lock past the timeout.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Lock wait timeouts in seconds. MySQL waits forever on a negative value.
const (
	TimeoutImmediate = 0
	TimeoutShort     = 1
)

// maxLockNameLength is MySQL's limit for GET_LOCK names.
const maxLockNameLength = 64

// AdvisoryLock is a named MySQL lock taken with GET_LOCK().
//
// MySQL ties the lock to the session that took it, so the lock pins one
// connection from the pool while held and returns it on release.
type AdvisoryLock struct {
	db       *sql.DB
	conn     *sql.Conn
	lockName string
	held     bool
	logger   *logger.Logger
}

// NewAdvisoryLock creates a lock with the given name. Nothing is acquired yet.
func NewAdvisoryLock(db *sql.DB, lockName string) *AdvisoryLock {
	return &AdvisoryLock{
		db:       db,
		lockName: lockName,
		logger:   logger.NewNop(),
	}
}

// SetLogger sets the logger used for release failures.
func (a *AdvisoryLock) SetLogger(log *logger.Logger) {
	if log != nil {
		a.logger = log
	}
}

// lockCall runs a GET_LOCK or RELEASE_LOCK style query on conn. MySQL
// answers 1 for success, 0 for "held by another session" and NULL on
// failure.
func (a *AdvisoryLock) lockCall(ctx context.Context, conn *sql.Conn, fn, query string, args ...interface{}) (bool, error) {
	var result sql.NullInt64
	if err := conn.QueryRowContext(ctx, query, args...).Scan(&result); err != nil {
		return false, fmt.Errorf("failed to execute %s: %w", fn, err)
	}
	if !result.Valid {
		return false, fmt.Errorf("%s returned NULL for lock %q", fn, a.lockName)
	}
	if result.Int64 != 0 && result.Int64 != 1 {
		return false, fmt.Errorf("unexpected %s return value: %d", fn, result.Int64)
	}
	return result.Int64 == 1, nil
}

// AcquireLock tries to take the lock, waiting up to timeoutSeconds.
// Returns false without error if another session holds it.
func (a *AdvisoryLock) AcquireLock(ctx context.Context, timeoutSeconds int) (bool, error) {
	if a.held {
		return true, nil
	}

	conn, err := a.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to get connection for lock %q: %w", a.lockName, err)
	}

	ok, err := a.lockCall(ctx, conn, "GET_LOCK", "SELECT GET_LOCK(?, ?)", a.lockName, timeoutSeconds)
	if err != nil || !ok {
		conn.Close()
		return false, err
	}
	a.conn = conn
	a.held = true
	return true, nil
}

// ReleaseLock releases the lock and returns its connection to the pool.
// Returns false if the lock was not held. The lock counts as released even
// when RELEASE_LOCK fails, since closing the session drops it too.
func (a *AdvisoryLock) ReleaseLock(ctx context.Context) (bool, error) {
	if !a.held {
		return false, nil
	}

	conn := a.conn
	a.conn = nil
	a.held = false
	defer conn.Close()

	return a.lockCall(ctx, conn, "RELEASE_LOCK", "SELECT RELEASE_LOCK(?)", a.lockName)
}

// IsHeld returns true if this instance holds the lock.
func (a *AdvisoryLock) IsHeld() bool {
	return a.held
}

// LockName returns the name of the advisory lock.
func (a *AdvisoryLock) LockName() string {
	return a.lockName
}

// TryAcquire attempts to acquire the lock without waiting.
func (a *AdvisoryLock) TryAcquire(ctx context.Context) (bool, error) {
	return a.AcquireLock(ctx, TimeoutImmediate)
}

// AcquireOrFail acquires the lock or returns ErrLockTimeout.
func (a *AdvisoryLock) AcquireOrFail(ctx context.Context, timeoutSeconds int) error {
	acquired, err := a.AcquireLock(ctx, timeoutSeconds)
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("%w: lock %q is held by another run", ErrLockTimeout, a.lockName)
	}
	return nil
}

// GenerateRunLockName returns the lock name for a dataset: "goerd:run:{dataset}".
// Characters outside [A-Za-z0-9_-] become underscores and the name is cut
// to MySQL's 64 character limit.
func GenerateRunLockName(dataset string) string {
	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, dataset)

	name := "goerd:run:" + sanitized
	if len(name) > maxLockNameLength {
		name = name[:maxLockNameLength]
	}
	return name
}

// NewRunLock creates the advisory lock guarding runs against a dataset.
//
// Example:
//
//	l := lock.NewRunLock(db, "shop")
//	if err := l.AcquireOrFail(ctx, lock.TimeoutShort); err != nil {
//	    return err
//	}
//	defer l.ReleaseLock(ctx)
func NewRunLock(db *sql.DB, dataset string) *AdvisoryLock {
	return NewAdvisoryLock(db, GenerateRunLockName(dataset))
}

// IsRunInProgress reports whether another session holds the dataset's lock.
// The check is not atomic; the answer can be stale by the time it returns.
func IsRunInProgress(ctx context.Context, db *sql.DB, dataset string) (bool, error) {
	l := NewRunLock(db, dataset)

	acquired, err := l.TryAcquire(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check if dataset %q is being profiled: %w", dataset, err)
	}
	if acquired {
		if _, err := l.ReleaseLock(ctx); err != nil {
			l.logger.Warnw("Failed to release probe lock", "lock", l.lockName, "error", err)
		}
		return false, nil
	}
	return true, nil
}

// WithLock runs fn while holding the lock. The lock is released when fn
// returns or panics.
func (a *AdvisoryLock) WithLock(ctx context.Context, timeoutSeconds int, fn func() error) error {
	acquired, err := a.AcquireLock(ctx, timeoutSeconds)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("%w: lock %q is held by another run", ErrLockTimeout, a.lockName)
	}

	defer func() {
		// ctx may already be cancelled; release on a fresh one.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, releaseErr := a.ReleaseLock(releaseCtx); releaseErr != nil {
			a.logger.Warnw("Failed to release advisory lock", "lock", a.lockName, "error", releaseErr)
		}
	}()

	return fn()
}

// WithRunLock runs fn while holding the dataset's run lock.
func WithRunLock(ctx context.Context, db *sql.DB, dataset string, timeoutSeconds int, log *logger.Logger, fn func() error) error {
	l := NewRunLock(db, dataset)
	l.SetLogger(log)
	return l.WithLock(ctx, timeoutSeconds, fn)
}
