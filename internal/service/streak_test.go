package service

import (
	"context"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modle-server/internal/config"
	"modle-server/internal/model"
	"modle-server/internal/pkg/lock"
	"modle-server/internal/repository"
)

// memStore is an in-memory UserStore mirroring the repository's contract:
// mappings are kept as raw JSON per language key, reads decode each key
// leniently, saves merge by key, and replaces overwrite wholesale. The
// round trip through JSON also means tests observe stored state, not
// shared pointers.
type memStore struct {
	mu    sync.Mutex
	users map[string]map[string]json.RawMessage
}

func newMemStore(userIDs ...string) *memStore {
	s := &memStore{users: make(map[string]map[string]json.RawMessage)}
	for _, id := range userIDs {
		s.users[id] = make(map[string]json.RawMessage)
	}
	return s
}

// seedRaw plants a raw JSON value under one language key, letting tests
// stage entries that do not decode into a streak state.
func (s *memStore) seedRaw(userID, key string, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID][key] = raw
}

// rawEntry returns the stored JSON for one language key.
func (s *memStore) rawEntry(userID, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.users[userID][key]
	return raw, ok
}

func (s *memStore) GetModle(_ context.Context, userID string) (model.Modle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, ok := s.users[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	modle := make(model.Modle, len(entries))
	for key, raw := range entries {
		var state model.StreakState
		if err := json.Unmarshal(raw, &state); err != nil {
			continue
		}
		modle[key] = &state
	}
	return modle, nil
}

func (s *memStore) SaveModle(_ context.Context, userID string, modle model.Modle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, ok := s.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	for key, state := range modle {
		raw, err := json.Marshal(state)
		if err != nil {
			return err
		}
		entries[key] = raw
	}
	return nil
}

func (s *memStore) ReplaceModle(_ context.Context, userID string, modle model.Modle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return repository.ErrUserNotFound
	}
	entries := make(map[string]json.RawMessage, len(modle))
	for key, state := range modle {
		raw, err := json.Marshal(state)
		if err != nil {
			return err
		}
		entries[key] = raw
	}
	s.users[userID] = entries
	return nil
}

// testReporter is the subset of *testing.T and *rapid.T the store helpers
// need, so both unit and property tests can read stored state.
type testReporter interface {
	Helper()
	Fatalf(format string, args ...any)
}

// storedState reads a language state straight out of the store, bypassing
// the service's display correction.
func (s *memStore) storedState(t testReporter, userID, key string) *model.StreakState {
	t.Helper()
	modle, err := s.GetModle(context.Background(), userID)
	if err != nil {
		t.Fatalf("failed to read stored state for %s: %v", userID, err)
	}
	return modle[key]
}

func gameConfig() *config.GameConfig {
	return &config.GameConfig{
		DefaultLanguage: "English",
		Languages:       []string{"English", "Hindi", "Tamil", "Telugu", "Kannada", "Malayalam"},
		LockTimeout:     5 * time.Second,
	}
}

func newTestService(store UserStore, day string) *StreakService {
	svc := NewStreakService(store, lock.NewUserLock(), gameConfig())
	svc.now = fixedDay(day)
	return svc
}

func fixedDay(day string) func() time.Time {
	t, err := time.ParseInLocation("2006-01-02", day, time.UTC)
	if err != nil {
		panic(err)
	}
	moment := t.Add(12 * time.Hour)
	return func() time.Time { return moment }
}

// TestSubmit_FirstDay walks the first-submission path end to end.
func TestSubmit_FirstDay(t *testing.T) {
	store := newMemStore("u1")
	svc := newTestService(store, "2024-06-10")

	outcome, err := svc.Submit(context.Background(), "u1", "English", true, []string{"AVATAR"})
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.Language.Streak)
	require.NotNil(t, outcome.Language.LastPlayed)
	assert.Equal(t, "2024-06-10", *outcome.Language.LastPlayed)

	entry := outcome.Language.History["2024-06-10"]
	assert.Equal(t, "2024-06-10", entry.Date)
	assert.True(t, entry.Correct)
	assert.Equal(t, []string{"AVATAR"}, entry.Guesses)

	assert.Equal(t, 1, outcome.Global.Streak)
	assert.Equal(t, "2024-06-10", *outcome.Global.LastPlayed)
	assert.True(t, store.storedState(t, "u1", model.GlobalKey).History["2024-06-10"].Played)
}

// TestSubmit_RejectSameDay tests that a repeat correct-day submission is a
// conflict and changes nothing.
func TestSubmit_RejectSameDay(t *testing.T) {
	store := newMemStore("u1")
	svc := newTestService(store, "2024-06-10")

	_, err := svc.Submit(context.Background(), "u1", "English", true, []string{"AVATAR"})
	require.NoError(t, err)

	outcome, err := svc.Submit(context.Background(), "u1", "English", true, []string{"TITANIC"})
	assert.ErrorIs(t, err, ErrAlreadyPlayed)
	require.NotNil(t, outcome, "conflict still reports current state")
	assert.Equal(t, 1, outcome.Language.Streak)
	assert.Equal(t, []string{"AVATAR"}, outcome.Language.History["2024-06-10"].Guesses)
	assert.Equal(t, 1, outcome.Global.Streak)

	stored := store.storedState(t, "u1", "English")
	assert.Equal(t, []string{"AVATAR"}, stored.History["2024-06-10"].Guesses)
	assert.Equal(t, 1, stored.Streak)
}

// TestSubmit_UpgradeMerge tests the incorrect-then-correct same-day path.
func TestSubmit_UpgradeMerge(t *testing.T) {
	store := newMemStore("u1")
	svc := newTestService(store, "2024-06-10")

	_, err := svc.Submit(context.Background(), "u1", "English", false, []string{"ALIEN", "JAWS"})
	require.NoError(t, err)

	outcome, err := svc.Submit(context.Background(), "u1", "English", true, []string{"JAWS", "AVATAR"})
	require.NoError(t, err)

	entry := outcome.Language.History["2024-06-10"]
	assert.True(t, entry.Correct)
	assert.Equal(t, []string{"ALIEN", "JAWS", "AVATAR"}, entry.Guesses)
	assert.Equal(t, 1, outcome.Language.Streak)
	assert.Equal(t, 1, outcome.Global.Streak)
}

// TestSubmit_CrossLanguageGlobal follows the two-day two-language scenario:
// English correct on day one, Hindi correct on day two, global streak 2.
func TestSubmit_CrossLanguageGlobal(t *testing.T) {
	store := newMemStore("u1")
	svc := newTestService(store, "2024-06-10")

	_, err := svc.Submit(context.Background(), "u1", "English", true, []string{"AVATAR"})
	require.NoError(t, err)

	svc.now = fixedDay("2024-06-11")
	outcome, err := svc.Submit(context.Background(), "u1", "Hindi", true, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.Language.Streak)
	assert.Equal(t, 2, outcome.Global.Streak)
	require.NotNil(t, outcome.Global.LastPlayed)
	assert.Equal(t, "2024-06-11", *outcome.Global.LastPlayed)
}

// TestSubmit_DefaultsAndValidation tests language defaulting and reserved
// key rejection.
func TestSubmit_DefaultsAndValidation(t *testing.T) {
	store := newMemStore("u1")
	svc := newTestService(store, "2024-06-10")

	outcome, err := svc.Submit(context.Background(), "u1", "", true, nil)
	require.NoError(t, err)
	assert.NotNil(t, store.storedState(t, "u1", "English"), "empty language falls back to the default")
	assert.Equal(t, 1, outcome.Language.Streak)

	for _, lang := range []string{"global", "GLOBAL", "_global", "_anything"} {
		_, err := svc.Submit(context.Background(), "u1", lang, true, nil)
		assert.ErrorIs(t, err, ErrInvalidLanguage, "language %q", lang)
	}
}

// TestSubmit_UnknownUser tests not-found propagation.
func TestSubmit_UnknownUser(t *testing.T) {
	svc := newTestService(newMemStore(), "2024-06-10")

	_, err := svc.Submit(context.Background(), "ghost", "English", true, nil)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	_, err = svc.Status(context.Background(), "ghost", "English")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

// TestStatus_DisplayZeroing tests that a missed day shows streak 0 without
// rewriting the stored value.
func TestStatus_DisplayZeroing(t *testing.T) {
	store := newMemStore("u1")
	svc := newTestService(store, "2024-06-10")

	_, err := svc.Submit(context.Background(), "u1", "English", true, []string{"AVATAR"})
	require.NoError(t, err)

	// Yesterday still shows the run.
	svc.now = fixedDay("2024-06-11")
	state, err := svc.Status(context.Background(), "u1", "English")
	require.NoError(t, err)
	assert.Equal(t, 1, state.Streak)

	// Two days later the display drops to zero...
	svc.now = fixedDay("2024-06-12")
	state, err = svc.Status(context.Background(), "u1", "English")
	require.NoError(t, err)
	assert.Equal(t, 0, state.Streak)
	assert.Equal(t, "2024-06-10", *state.LastPlayed)

	// ...while the stored value is untouched until the next write.
	assert.Equal(t, 1, store.storedState(t, "u1", "English").Streak)

	// The global view gets the same correction.
	global, err := svc.Status(context.Background(), "u1", "Global")
	require.NoError(t, err)
	assert.Equal(t, 0, global.Streak)
	assert.Equal(t, 1, store.storedState(t, "u1", model.GlobalKey).Streak)
}

// TestStatus_DefaultsAndAliases tests language defaulting and the global
// alias.
func TestStatus_DefaultsAndAliases(t *testing.T) {
	store := newMemStore("u1")
	svc := newTestService(store, "2024-06-10")

	_, err := svc.Submit(context.Background(), "u1", "English", true, nil)
	require.NoError(t, err)

	state, err := svc.Status(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, state.Streak, "empty language reads the default")

	for _, alias := range []string{"global", "Global", "GLOBAL"} {
		state, err := svc.Status(context.Background(), "u1", alias)
		require.NoError(t, err)
		assert.Equal(t, 1, state.Streak, "alias %q", alias)
	}

	// A language never played reads as the zero state.
	state, err = svc.Status(context.Background(), "u1", "Tamil")
	require.NoError(t, err)
	assert.Nil(t, state.LastPlayed)
	assert.Equal(t, 0, state.Streak)
	assert.Empty(t, state.History)

	// Reserved keys are not readable directly.
	_, err = svc.Status(context.Background(), "u1", "_global")
	assert.ErrorIs(t, err, ErrInvalidLanguage)
}

// TestReset tests that reset writes exactly the zero shape for every
// configured language plus the aggregate.
func TestReset(t *testing.T) {
	store := newMemStore("u1")
	svc := newTestService(store, "2024-06-10")

	_, err := svc.Submit(context.Background(), "u1", "English", true, []string{"AVATAR"})
	require.NoError(t, err)

	zero, err := svc.Reset(context.Background(), "u1")
	require.NoError(t, err)

	assert.Len(t, zero, 7) // six languages plus the aggregate
	for key, state := range zero {
		assert.Nil(t, state.LastPlayed, "key %q", key)
		assert.Equal(t, 0, state.Streak, "key %q", key)
		assert.Empty(t, state.History, "key %q", key)
	}
	assert.Contains(t, zero, model.GlobalKey)

	stored := store.storedState(t, "u1", "English")
	require.NotNil(t, stored)
	assert.Empty(t, stored.History)

	_, err = svc.Reset(context.Background(), "ghost")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

// TestSubmit_PreservesUndecodableLanguages submits against a mapping that
// carries a stored entry the decoder cannot read. The unrelated submission
// must leave that entry on disk untouched.
func TestSubmit_PreservesUndecodableLanguages(t *testing.T) {
	store := newMemStore("u1")
	store.seedRaw("u1", "Hindi", []byte(`42`))
	svc := newTestService(store, "2024-06-10")

	outcome, err := svc.Submit(context.Background(), "u1", "Tamil", true, []string{"NAYAKAN"})
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Language.Streak)

	raw, ok := store.rawEntry("u1", "Hindi")
	require.True(t, ok, "undecodable entry must survive an unrelated save")
	assert.JSONEq(t, `42`, string(raw))

	tamil, ok := store.rawEntry("u1", "Tamil")
	require.True(t, ok)
	assert.Contains(t, string(tamil), "2024-06-10")
}

// TestReset_DropsUndecodableLanguages verifies a reset is the one path that
// wipes entries the decoder skips.
func TestReset_DropsUndecodableLanguages(t *testing.T) {
	store := newMemStore("u1")
	store.seedRaw("u1", "Hindi", []byte(`42`))
	svc := newTestService(store, "2024-06-10")

	zero, err := svc.Reset(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, zero, 7)

	raw, ok := store.rawEntry("u1", "Hindi")
	require.True(t, ok, "reset reseeds every configured language")
	var state model.StreakState
	require.NoError(t, json.Unmarshal(raw, &state))
	assert.Equal(t, 0, state.Streak)
	assert.Nil(t, state.LastPlayed)
}
