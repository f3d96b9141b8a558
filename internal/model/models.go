// Package model defines the data models for the Modle streak service.
package model

import "time"

// GlobalKey is the reserved language key holding the cross-language
// aggregate. It is derived from the per-language histories and rebuilt on
// every write; it is never a submission target.
const GlobalKey = "_global"

// DayEntry records the outcome of one calendar day for one language key.
type DayEntry struct {
	// Date is the UTC calendar-day key (YYYY-MM-DD), redundant with the
	// history map key.
	Date string `json:"date"`
	// Correct reports whether a correct solve is recorded for the day.
	// It can only move false to true within a day, never back.
	Correct bool `json:"correct"`
	// Guesses holds the distinct guess strings submitted that day, in
	// order of first appearance.
	Guesses []string `json:"guesses"`
	// Played marks a day with any activity in any language. Only set on
	// entries under GlobalKey.
	Played bool `json:"played,omitempty"`
}

// StreakState is the per-language (or global) streak record for one user.
type StreakState struct {
	// LastPlayed is the most recent day key with a recorded attempt, or
	// nil if the user has never played this language.
	LastPlayed *string `json:"lastPlayed"`
	// Streak counts consecutive UTC days ending at LastPlayed, each with
	// a correct attempt. Always recomputed from History, never
	// incremented in place.
	Streak int `json:"streak"`
	// History maps day keys to their entries. Days are never deleted by
	// normal play, only upgraded.
	History map[string]DayEntry `json:"history"`
}

// NewStreakState returns the zero state written on first submission and by
// administrative resets.
func NewStreakState() *StreakState {
	return &StreakState{
		LastPlayed: nil,
		Streak:     0,
		History:    make(map[string]DayEntry),
	}
}

// Modle maps language keys (plus GlobalKey) to streak states. This is the
// value persisted in the users table's modle column.
type Modle map[string]*StreakState

// ZeroModle builds the all-zero mapping for the given languages plus
// GlobalKey. Administrative resets must write exactly this shape.
func ZeroModle(languages []string) Modle {
	m := make(Modle, len(languages)+1)
	for _, lang := range languages {
		m[lang] = NewStreakState()
	}
	m[GlobalKey] = NewStreakState()
	return m
}

// User represents a user record as stored in the users table. The service
// only ever touches the Modle field; the rest belongs to the surrounding
// application.
type User struct {
	ID        string    `db:"id"`
	Username  string    `db:"username"`
	Modle     Modle     `db:"modle"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
