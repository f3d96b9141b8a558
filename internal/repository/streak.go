// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"modle-server/internal/model"
)

// Common errors for repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
)

// StreakRepository persists the per-user modle mapping. The whole mapping
// lives in one JSONB column, so a save is a single-statement update: the
// language state and the global state always commit together.
type StreakRepository struct {
	pool *pgxpool.Pool
}

// NewStreakRepository creates a new StreakRepository instance.
func NewStreakRepository(pool *pgxpool.Pool) *StreakRepository {
	return &StreakRepository{pool: pool}
}

// Create inserts a user record with an empty modle mapping.
// The surrounding application normally owns user creation; this exists for
// provisioning and tests.
func (r *StreakRepository) Create(ctx context.Context, userID, username string) (*model.User, error) {
	const query = `
		INSERT INTO users (id, username, modle, created_at, updated_at)
		VALUES ($1, $2, '{}'::jsonb, NOW(), NOW())
		RETURNING id, username, created_at, updated_at
	`

	var user model.User
	err := r.pool.QueryRow(ctx, query, userID, username).Scan(
		&user.ID,
		&user.Username,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user.Modle = model.Modle{}
	return &user, nil
}

// GetModle loads a user's full modle mapping.
// Returns ErrUserNotFound if the user does not exist.
func (r *StreakRepository) GetModle(ctx context.Context, userID string) (model.Modle, error) {
	const query = `
		SELECT modle
		FROM users
		WHERE id = $1
	`

	var raw []byte
	err := r.pool.QueryRow(ctx, query, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get modle state: %w", err)
	}

	return decodeModle(userID, raw)
}

// SaveModle writes the mapping back in one statement, merging by language
// key. Keys in modle overwrite their stored counterparts; stored keys
// absent from modle — such as legacy entries that failed to decode — are
// left in place, so history is never erased by an unrelated submission.
// Returns ErrUserNotFound if the user does not exist.
func (r *StreakRepository) SaveModle(ctx context.Context, userID string, modle model.Modle) error {
	data, err := json.Marshal(modle)
	if err != nil {
		return fmt.Errorf("failed to encode modle state: %w", err)
	}

	const query = `
		UPDATE users
		SET modle = modle || $2::jsonb, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, userID, data)
	if err != nil {
		return fmt.Errorf("failed to save modle state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// ReplaceModle overwrites the stored mapping wholesale, dropping every key
// not present in modle. Only administrative resets use this path.
// Returns ErrUserNotFound if the user does not exist.
func (r *StreakRepository) ReplaceModle(ctx context.Context, userID string, modle model.Modle) error {
	data, err := json.Marshal(modle)
	if err != nil {
		return fmt.Errorf("failed to encode modle state: %w", err)
	}

	const query = `
		UPDATE users
		SET modle = $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, userID, data)
	if err != nil {
		return fmt.Errorf("failed to replace modle state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// decodeModle unmarshals the stored mapping one language at a time so a
// single malformed entry degrades to a skipped language instead of failing
// the whole read.
func decodeModle(userID string, raw []byte) (model.Modle, error) {
	if len(raw) == 0 {
		return model.Modle{}, nil
	}

	var partial map[string]json.RawMessage
	if err := json.Unmarshal(raw, &partial); err != nil {
		return nil, fmt.Errorf("failed to decode modle state: %w", err)
	}

	modle := make(model.Modle, len(partial))
	for key, rawState := range partial {
		var state model.StreakState
		if err := json.Unmarshal(rawState, &state); err != nil {
			log.Warn().
				Str("user_id", userID).
				Str("language", key).
				Err(err).
				Msg("Skipping malformed language state")
			continue
		}
		if state.History == nil {
			state.History = make(map[string]model.DayEntry)
		}
		modle[key] = &state
	}

	return modle, nil
}
