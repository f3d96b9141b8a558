package streak

import (
	"errors"

	"modle-server/internal/model"
)

// ErrAlreadyPlayed is returned when a correct entry already exists for the
// submission day. The attempt must not alter history, streak or lastPlayed.
var ErrAlreadyPlayed = errors.New("already played today")

// RecordAttempt applies one scored attempt for a single language on the
// given day, mutating state in place:
//
//   - today already correct: rejected with ErrAlreadyPlayed
//   - today exists but incorrect: guesses are unioned and the entry is
//     upgraded to correct if this attempt is correct
//   - no entry for today: a new entry is created
//
// On acceptance the streak is recomputed from history and lastPlayed is set
// to today.
func RecordAttempt(state *model.StreakState, today string, correct bool, guesses []string) error {
	if state.History == nil {
		state.History = make(map[string]model.DayEntry)
	}

	if entry, ok := state.History[today]; ok {
		if entry.Correct {
			return ErrAlreadyPlayed
		}
		entry.Correct = correct
		entry.Guesses = unionGuesses(entry.Guesses, guesses)
		state.History[today] = entry
	} else {
		state.History[today] = model.DayEntry{
			Date:    today,
			Correct: correct,
			Guesses: unionGuesses(nil, guesses),
		}
	}

	state.Streak = Recompute(state.History, today)
	last := today
	state.LastPlayed = &last
	return nil
}

// Recompute counts consecutive correct days walking backward from day.
// The walk always starts at day itself: if day is missing or incorrect the
// result is 0 regardless of earlier history.
func Recompute(history map[string]model.DayEntry, day string) int {
	count := 0
	for {
		entry, ok := history[day]
		if !ok || !entry.Correct {
			return count
		}
		count++
		prev, err := PreviousDay(day)
		if err != nil {
			// A malformed key cannot have a predecessor; the chain
			// ends here.
			return count
		}
		day = prev
	}
}

// unionGuesses appends the guesses from add that are not already present in
// existing, preserving order of first appearance.
func unionGuesses(existing, add []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(add))
	out := make([]string, 0, len(existing)+len(add))
	for _, g := range existing {
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	for _, g := range add {
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}
