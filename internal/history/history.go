// Package history keeps the bounded, newest-first record of solved
// riddles, plus the player's persisted streak. Storage trouble is never
// fatal here: reads that fail come back empty, writes that fail are
// logged and the caller still gets a usable in-memory list.
package history

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	constants "enigmo/internal/constants"
	models "enigmo/internal/models"
	storage "enigmo/internal/storage"
	util "enigmo/internal/util"
)

// Store is bound to one player's namespace in the KV substrate.
type Store struct {
	kv         storage.KV
	historyKey string
	streakKey  string
	max        int
}

func NewStore(kv storage.KV, playerID string) *Store {
	return &Store{
		kv:         kv,
		historyKey: constants.HistoryKeyPrefix + playerID,
		streakKey:  constants.StreakKeyPrefix + playerID,
		max:        constants.MaxHistoryEntries,
	}
}

// List returns the persisted entries, newest first. Missing or
// unreadable data is an empty list, not an error.
func (s *Store) List() []models.HistoryEntry {
	raw, ok, err := s.kv.Get(s.historyKey)
	if err != nil {
		util.LogWarn("Failed to read history %s: %v", s.historyKey, err)
		return []models.HistoryEntry{}
	}
	if !ok || raw == "" {
		return []models.HistoryEntry{}
	}
	var entries []models.HistoryEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		util.LogWarn("Unreadable history %s, treating as empty: %v", s.historyKey, err)
		return []models.HistoryEntry{}
	}
	if len(entries) > s.max {
		entries = entries[:s.max]
	}
	return entries
}

// Record adds a solved riddle to the front of the history. A riddle
// whose question is already present is a no-op: the first solve wins.
// The returned list is always safe to render even when persistence
// ultimately failed.
func (s *Store) Record(riddle *models.RiddleRecord, imageURL string) []models.HistoryEntry {
	entries := s.List()
	if lo.SomeBy(entries, func(e models.HistoryEntry) bool {
		return e.Question == riddle.Question
	}) {
		return entries
	}

	answer := ""
	if riddle.AnswerIndex >= 0 && riddle.AnswerIndex < len(riddle.Choices) {
		answer = riddle.Choices[riddle.AnswerIndex]
	}

	entry := models.HistoryEntry{
		ID:         uuid.NewString(),
		Timestamp:  time.Now(),
		Topic:      riddle.Topic,
		Question:   riddle.Question,
		Answer:     answer,
		FunFact:    riddle.FunFact,
		ImageURL:   imageURL,
		Difficulty: riddle.Difficulty,
	}

	entries = append([]models.HistoryEntry{entry}, entries...)
	if len(entries) > s.max {
		entries = entries[:s.max]
	}
	return s.persistWithEviction(entries)
}

// persistWithEviction writes the list, dropping the oldest entry and
// retrying whenever the substrate rejects the write. If nothing is
// left to evict it gives up and returns whatever survived in memory.
func (s *Store) persistWithEviction(entries []models.HistoryEntry) []models.HistoryEntry {
	for {
		b, err := json.Marshal(entries)
		if err != nil {
			util.LogWarn("Failed to encode history %s: %v", s.historyKey, err)
			return entries
		}
		if err := s.kv.Set(s.historyKey, string(b)); err == nil {
			return entries
		} else if len(entries) == 0 {
			util.LogWarn("History persistence gave up for %s: %v", s.historyKey, err)
			return entries
		} else {
			util.LogWarn("History persistence failed for %s, evicting oldest of %d: %v",
				s.historyKey, len(entries), err)
			entries = entries[:len(entries)-1]
		}
	}
}

// Clear erases all persisted entries unconditionally.
func (s *Store) Clear() []models.HistoryEntry {
	if err := s.kv.Delete(s.historyKey); err != nil {
		util.LogWarn("Failed to clear history %s: %v", s.historyKey, err)
	}
	return []models.HistoryEntry{}
}

// Streak returns the persisted streak counter, zero when absent or
// unreadable.
func (s *Store) Streak() int {
	raw, ok, err := s.kv.Get(s.streakKey)
	if err != nil || !ok {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (s *Store) SaveStreak(n int) {
	if err := s.kv.Set(s.streakKey, strconv.Itoa(n)); err != nil {
		util.LogWarn("Failed to persist streak %s: %v", s.streakKey, err)
	}
}
