// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"modle-server/internal/config"
	"modle-server/internal/model"
	"modle-server/internal/pkg/lock"
	"modle-server/internal/streak"
)

// Common errors for streak operations.
var (
	// ErrInvalidLanguage is returned for empty or reserved language keys.
	ErrInvalidLanguage = errors.New("invalid language key")
)

// ErrAlreadyPlayed mirrors the engine's reject signal so callers only
// depend on this package.
var ErrAlreadyPlayed = streak.ErrAlreadyPlayed

// UserStore is the persistence surface the service needs. SaveModle merges
// by language key so stored entries absent from the saved map survive;
// ReplaceModle overwrites the mapping wholesale. Implemented by
// repository.StreakRepository.
type UserStore interface {
	GetModle(ctx context.Context, userID string) (model.Modle, error)
	SaveModle(ctx context.Context, userID string, modle model.Modle) error
	ReplaceModle(ctx context.Context, userID string, modle model.Modle) error
}

// SubmitOutcome carries the post-submission language and global states.
// On an ErrAlreadyPlayed reject it carries the unchanged current states.
type SubmitOutcome struct {
	Language *model.StreakState `json:"language"`
	Global   *model.StreakState `json:"global"`
}

// StreakService owns the per-user streak lifecycle: status reads with the
// display correction, scored submissions, and administrative resets.
type StreakService struct {
	store       UserStore
	locks       *lock.UserLock
	defaultLang string
	languages   []string
	lockTimeout time.Duration
	now         func() time.Time
}

// NewStreakService creates a new StreakService instance.
func NewStreakService(store UserStore, locks *lock.UserLock, cfg *config.GameConfig) *StreakService {
	return &StreakService{
		store:       store,
		locks:       locks,
		defaultLang: cfg.DefaultLanguage,
		languages:   cfg.Languages,
		lockTimeout: cfg.LockTimeout,
		now:         time.Now,
	}
}

// Status returns the streak state for one language key, defaulting to the
// configured language. "global" (case-insensitive) selects the
// cross-language aggregate.
//
// If the user last played before yesterday, the returned streak is forced
// to 0 so a missed day never shows a stale run; the stored value is only
// corrected by the next submission.
func (s *StreakService) Status(ctx context.Context, userID, language string) (*model.StreakState, error) {
	key, err := s.resolveStatusKey(language)
	if err != nil {
		return nil, err
	}

	modle, err := s.store.GetModle(ctx, userID)
	if err != nil {
		return nil, err
	}

	state := modle[key]
	if state == nil {
		return model.NewStreakState(), nil
	}

	return s.displayState(state), nil
}

// displayState applies the read-time zeroing without touching the stored
// state.
func (s *StreakService) displayState(state *model.StreakState) *model.StreakState {
	if state.LastPlayed == nil {
		return state
	}

	today := streak.DayKey(s.now())
	yesterday, err := streak.PreviousDay(today)
	if err != nil {
		return state
	}

	if *state.LastPlayed == today || *state.LastPlayed == yesterday {
		return state
	}

	display := *state
	display.Streak = 0
	return &display
}

// Submit records one scored attempt for today, recomputes the language and
// global streaks, and persists both in a single write. "Today" is always
// server-computed UTC; client-supplied dates are never consulted.
//
// When a correct entry already exists for today the returned error is
// ErrAlreadyPlayed and the outcome carries the unchanged current states.
func (s *StreakService) Submit(ctx context.Context, userID, language string, correct bool, guesses []string) (*SubmitOutcome, error) {
	lang, err := s.submitLanguage(language)
	if err != nil {
		return nil, err
	}

	var outcome *SubmitOutcome
	lockErr := s.locks.WithLockContext(ctx, userID, s.lockTimeout, func() error {
		// Compute today inside the critical section: a submission
		// that waited on the lock across midnight scores on the day
		// it actually runs.
		today := streak.DayKey(s.now())

		modle, err := s.store.GetModle(ctx, userID)
		if err != nil {
			return err
		}

		state := modle[lang]
		if state == nil {
			state = model.NewStreakState()
		}

		if err := streak.RecordAttempt(state, today, correct, guesses); err != nil {
			outcome = &SubmitOutcome{
				Language: state,
				Global:   s.currentGlobal(modle),
			}
			return err
		}

		modle[lang] = state
		modle[model.GlobalKey] = streak.RecomputeGlobal(modle, today)

		if err := s.store.SaveModle(ctx, userID, modle); err != nil {
			return fmt.Errorf("failed to persist submission: %w", err)
		}

		log.Info().
			Str("user_id", userID).
			Str("language", lang).
			Str("date", today).
			Bool("correct", correct).
			Int("streak", state.Streak).
			Int("global_streak", modle[model.GlobalKey].Streak).
			Msg("Attempt recorded")

		outcome = &SubmitOutcome{
			Language: state,
			Global:   modle[model.GlobalKey],
		}
		return nil
	})

	return outcome, lockErr
}

// Reset clears a user's entire mapping to the zero-state shape for every
// configured language plus the global aggregate. Unlike submissions this
// replaces the stored mapping wholesale, so stale or undecodable entries
// are wiped too.
func (s *StreakService) Reset(ctx context.Context, userID string) (model.Modle, error) {
	var zero model.Modle
	err := s.locks.WithLockContext(ctx, userID, s.lockTimeout, func() error {
		if _, err := s.store.GetModle(ctx, userID); err != nil {
			return err
		}

		zero = model.ZeroModle(s.languages)
		if err := s.store.ReplaceModle(ctx, userID, zero); err != nil {
			return fmt.Errorf("failed to persist reset: %w", err)
		}

		log.Info().Str("user_id", userID).Msg("Modle state reset")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return zero, nil
}

// currentGlobal returns the stored aggregate, or the zero state if the user
// has never played.
func (s *StreakService) currentGlobal(modle model.Modle) *model.StreakState {
	if global := modle[model.GlobalKey]; global != nil {
		return global
	}
	return model.NewStreakState()
}

// resolveStatusKey maps a status-query language to its storage key.
func (s *StreakService) resolveStatusKey(language string) (string, error) {
	language = strings.TrimSpace(language)
	if language == "" {
		return s.defaultLang, nil
	}
	if strings.EqualFold(language, "global") {
		return model.GlobalKey, nil
	}
	if strings.HasPrefix(language, "_") {
		return "", fmt.Errorf("%w: %q", ErrInvalidLanguage, language)
	}
	return language, nil
}

// submitLanguage validates a submission target. Reserved keys and the
// global alias are read-only.
func (s *StreakService) submitLanguage(language string) (string, error) {
	language = strings.TrimSpace(language)
	if language == "" {
		return s.defaultLang, nil
	}
	if strings.HasPrefix(language, "_") || strings.EqualFold(language, "global") {
		return "", fmt.Errorf("%w: %q", ErrInvalidLanguage, language)
	}
	return language, nil
}
