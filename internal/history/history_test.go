package history_test

import (
	"encoding/json"
	"fmt"
	"testing"

	constants "enigmo/internal/constants"
	history "enigmo/internal/history"
	models "enigmo/internal/models"
	storage "enigmo/internal/storage"
)

func riddleWithQuestion(q string) *models.RiddleRecord {
	return &models.RiddleRecord{
		Question:    q,
		Choices:     []string{"a", "b", "c", "d"},
		AnswerIndex: 1,
		Topic:       "testing",
		FunFact:     "fact",
	}
}

func TestRecordAndList(t *testing.T) {
	store := history.NewStore(storage.NewMemoryStore(0), "p1")

	entries := store.Record(riddleWithQuestion("q1"), "data:,img1")
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	if entries[0].Answer != "b" {
		t.Errorf("Answer = %q, want choice text %q", entries[0].Answer, "b")
	}

	entries = store.Record(riddleWithQuestion("q2"), "data:,img2")
	if len(entries) != 2 || entries[0].Question != "q2" {
		t.Errorf("Newest entry must come first, got %v", entries)
	}

	loaded := store.List()
	if len(loaded) != 2 || loaded[0].Question != "q2" || loaded[1].Question != "q1" {
		t.Errorf("List does not round-trip newest-first, got %v", loaded)
	}
}

func TestRecordIdempotentOnQuestion(t *testing.T) {
	store := history.NewStore(storage.NewMemoryStore(0), "p1")

	store.Record(riddleWithQuestion("same"), "data:,one")
	entries := store.Record(riddleWithQuestion("same"), "data:,two")

	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry after duplicate record, got %d", len(entries))
	}
	if entries[0].ImageURL != "data:,one" {
		t.Error("First solve must win; entry was replaced")
	}
}

func TestRecordCapsAtMaximum(t *testing.T) {
	store := history.NewStore(storage.NewMemoryStore(0), "p1")

	for i := 0; i < constants.MaxHistoryEntries+5; i++ {
		store.Record(riddleWithQuestion(fmt.Sprintf("q%d", i)), "")
	}

	entries := store.List()
	if len(entries) != constants.MaxHistoryEntries {
		t.Fatalf("Expected %d entries, got %d", constants.MaxHistoryEntries, len(entries))
	}
	newest := fmt.Sprintf("q%d", constants.MaxHistoryEntries+4)
	if entries[0].Question != newest {
		t.Errorf("Newest entry = %q, want %q", entries[0].Question, newest)
	}
}

// cappedKV simulates quota pressure: writes fail until the encoded list
// is down to maxEntries.
type cappedKV struct {
	storage.KV
	maxEntries int
}

func (c *cappedKV) Set(key, value string) error {
	var entries []models.HistoryEntry
	if err := json.Unmarshal([]byte(value), &entries); err == nil && len(entries) > c.maxEntries {
		return storage.ErrCapacityExceeded
	}
	return c.KV.Set(key, value)
}

func TestEvictionUnderQuotaPressure(t *testing.T) {
	kv := &cappedKV{KV: storage.NewMemoryStore(0), maxEntries: 2}
	store := history.NewStore(kv, "p1")

	for i := 0; i < 5; i++ {
		entries := store.Record(riddleWithQuestion(fmt.Sprintf("q%d", i)), "")
		if len(entries) > 2 {
			t.Fatalf("Returned list exceeds quota-constrained size: %d", len(entries))
		}
	}

	entries := store.List()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 persisted entries, got %d", len(entries))
	}
	if entries[0].Question != "q4" {
		t.Errorf("Newest entry = %q, want q4", entries[0].Question)
	}
}

func TestRecordSurvivesHopelessStorage(t *testing.T) {
	kv := &cappedKV{KV: storage.NewMemoryStore(0), maxEntries: -1}
	store := history.NewStore(kv, "p1")

	entries := store.Record(riddleWithQuestion("q1"), "")
	if entries == nil {
		t.Fatal("Record must return a usable list even when persistence is impossible")
	}
}

func TestCorruptDataReadsAsEmpty(t *testing.T) {
	kv := storage.NewMemoryStore(0)
	if err := kv.Set(constants.HistoryKeyPrefix+"p1", "{not json"); err != nil {
		t.Fatal(err)
	}
	store := history.NewStore(kv, "p1")
	if entries := store.List(); len(entries) != 0 {
		t.Errorf("Corrupt history must read as empty, got %v", entries)
	}
}

func TestClear(t *testing.T) {
	kv := storage.NewMemoryStore(0)
	store := history.NewStore(kv, "p1")
	store.Record(riddleWithQuestion("q1"), "")

	if entries := store.Clear(); len(entries) != 0 {
		t.Errorf("Clear must return an empty list, got %v", entries)
	}
	if entries := store.List(); len(entries) != 0 {
		t.Errorf("Entries survived Clear: %v", entries)
	}
}

func TestStreakRoundTrip(t *testing.T) {
	kv := storage.NewMemoryStore(0)
	store := history.NewStore(kv, "p1")

	if store.Streak() != 0 {
		t.Error("Missing streak must read as 0")
	}
	store.SaveStreak(9)
	if store.Streak() != 9 {
		t.Errorf("Streak = %d, want 9", store.Streak())
	}

	if err := kv.Set(constants.StreakKeyPrefix+"p1", "garbage"); err != nil {
		t.Fatal(err)
	}
	if store.Streak() != 0 {
		t.Error("Unreadable streak must read as 0")
	}
}

func TestPlayersAreIsolated(t *testing.T) {
	kv := storage.NewMemoryStore(0)
	history.NewStore(kv, "p1").Record(riddleWithQuestion("q1"), "")

	if entries := history.NewStore(kv, "p2").List(); len(entries) != 0 {
		t.Errorf("Player p2 sees p1's history: %v", entries)
	}
}
