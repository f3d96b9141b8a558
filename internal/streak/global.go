package streak

import "modle-server/internal/model"

// RecomputeGlobal rebuilds the cross-language aggregate from every
// per-language history. The result replaces the GlobalKey entry wholesale:
// a day is correct globally iff any language recorded it correct, and the
// global streak is walked backward from today, so a day with no activity at
// all breaks it just like an incorrect day.
//
// Entries under unparseable day keys are skipped; one bad language entry
// must never abort the aggregation.
func RecomputeGlobal(modle model.Modle, today string) *model.StreakState {
	union := make(map[string]model.DayEntry)

	for key, state := range modle {
		if key == model.GlobalKey || state == nil {
			continue
		}
		for date, entry := range state.History {
			if !ValidDayKey(date) {
				continue
			}
			day, ok := union[date]
			if !ok {
				// First language seen for this date seeds the
				// entry; later languages only OR in correctness.
				day = model.DayEntry{
					Date:    date,
					Played:  true,
					Guesses: unionGuesses(nil, entry.Guesses),
				}
			}
			day.Correct = day.Correct || entry.Correct
			union[date] = day
		}
	}

	var lastPlayed *string
	for date := range union {
		if lastPlayed == nil || date > *lastPlayed {
			d := date
			lastPlayed = &d
		}
	}

	return &model.StreakState{
		LastPlayed: lastPlayed,
		Streak:     Recompute(union, today),
		History:    union,
	}
}
