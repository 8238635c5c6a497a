package service

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrOperationInFlight is returned when an auth operation for the same
// principal is already running.
var ErrOperationInFlight = errors.New("another authentication operation is in progress")

const (
	// Interval for cleaning up stale principal locks
	lockCleanupInterval = 10 * time.Minute

	// How long a lock must be unused before cleanup
	lockStaleThreshold = 10 * time.Minute
)

// AuthSerializer guarantees that at most one auth operation per
// principal (email) runs at a time. A second login, register or reset
// for the same email while one is pending is rejected instead of
// queued, which keeps the persisted session snapshot single-writer.
type AuthSerializer struct {
	log *logrus.Logger

	// Per-principal lock, keyed by lowercase email
	locks sync.Map // map[string]*lockWithTimestamp

	// Graceful shutdown
	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// lockWithTimestamp tracks lock usage for cleanup
type lockWithTimestamp struct {
	mu       sync.Mutex
	lastUsed atomic.Int64 // Unix timestamp
}

// NewAuthSerializer creates an AuthSerializer and starts the background
// cleanup goroutine. Call Stop() during graceful shutdown.
func NewAuthSerializer(log *logrus.Logger) *AuthSerializer {
	s := &AuthSerializer{
		log:      log,
		stopChan: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

// Acquire takes the lock for the principal. It returns a release
// function on success and ErrOperationInFlight when an operation for
// the same principal is already pending.
func (s *AuthSerializer) Acquire(principal string) (func(), error) {
	lt := s.getLock(strings.ToLower(strings.TrimSpace(principal)))
	if !lt.mu.TryLock() {
		return nil, ErrOperationInFlight
	}
	return func() {
		lt.lastUsed.Store(time.Now().Unix())
		lt.mu.Unlock()
	}, nil
}

// Stop gracefully shuts down the cleanup goroutine.
// Safe to call multiple times.
func (s *AuthSerializer) Stop() {
	if s.stopped.CompareAndSwap(false, true) {
		close(s.stopChan)
		s.wg.Wait()
		s.log.Info("AuthSerializer stopped")
	}
}

func (s *AuthSerializer) getLock(principal string) *lockWithTimestamp {
	lt, _ := s.locks.LoadOrStore(principal, &lockWithTimestamp{})
	result := lt.(*lockWithTimestamp)
	result.lastUsed.Store(time.Now().Unix())
	return result
}

func (s *AuthSerializer) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(lockCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanupStaleLocks()
		}
	}
}

// cleanupStaleLocks removes unused locks using TryLock for safety.
// The lastUsed check happens inside the lock so a concurrent Acquire
// cannot be raced.
func (s *AuthSerializer) cleanupStaleLocks() {
	cutoff := time.Now().Add(-lockStaleThreshold).Unix()
	var cleaned int

	s.locks.Range(func(key, value any) bool {
		principal, ok := key.(string)
		if !ok {
			return true
		}

		lt, ok := value.(*lockWithTimestamp)
		if !ok {
			return true
		}

		if lt.mu.TryLock() {
			if lt.lastUsed.Load() < cutoff {
				s.locks.Delete(principal)
				cleaned++
			}
			lt.mu.Unlock()
		}
		return true
	})

	if cleaned > 0 {
		s.log.Debugf("Cleaned up %d stale auth locks", cleaned)
	}
}
