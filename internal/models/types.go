package models

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	storage "enigmo/internal/storage"
)

// RiddleRecord is one generated puzzle. Produced once per round by the
// generation client and immutable afterwards. The image prompt is input
// for the image model and is never shown to the player.
type RiddleRecord struct {
	ImagePrompt string   `json:"imagePrompt"`
	Question    string   `json:"question"`
	Choices     []string `json:"choices"`
	AnswerIndex int      `json:"answerIndex"`
	Hints       []string `json:"hints"`
	FunFact     string   `json:"funFact"`
	Topic       string   `json:"topic,omitempty"`
	Difficulty  string   `json:"difficulty,omitempty"`
}

// HistoryEntry records one correctly solved riddle. Answer holds the
// chosen choice text rather than its index, so stored history stays
// meaningful even if choice ordering ever changes.
type HistoryEntry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Topic      string    `json:"topic"`
	Question   string    `json:"question"`
	Answer     string    `json:"answer"`
	FunFact    string    `json:"funFact"`
	ImageURL   string    `json:"imageUrl"`
	Difficulty string    `json:"difficulty,omitempty"`
}

// SessionState is the single mutable object describing one in-progress
// round. All mutation happens under App.SessionMutex.
type SessionState struct {
	Phase           string        `json:"phase"`
	Riddle          *RiddleRecord `json:"riddle,omitempty"`
	ImageURL        string        `json:"imageUrl,omitempty"`
	SelectedChoice  int           `json:"selectedChoice"` // -1 until an answer is chosen
	HintsRevealed   int           `json:"hintsRevealed"`
	ErrorMessage    string        `json:"errorMessage,omitempty"`
	Score           int           `json:"score"`
	Streak          int           `json:"streak"`
	Difficulty      string        `json:"difficulty"`
	Category        string        `json:"category,omitempty"`
	GenerationToken string        `json:"-"`
	PlayerID        string        `json:"-"`
	LastAccessTime  time.Time     `json:"lastAccessTime"`
}

// Generator is the riddle pipeline's view of the generative service.
// The concrete client lives in internal/genclient; tests inject fakes.
type Generator interface {
	FetchTrendingTopic(ctx context.Context, category string) (string, error)
	GenerateRiddle(ctx context.Context, topic, difficulty string) (*RiddleRecord, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

type RateLimiterWithTime struct {
	Limiter    *rate.Limiter
	LastAccess time.Time
}

type App struct {
	Generator          Generator
	Storage            storage.KV
	GameSessions       map[string]*SessionState
	SessionMutex       sync.RWMutex
	LimiterMap         map[string]*RateLimiterWithTime
	LimiterMutex       sync.RWMutex
	IsProduction       bool
	StartTime          time.Time
	CookieMaxAge       time.Duration
	PlayerCookieMaxAge time.Duration
	StaticCacheAge     time.Duration
	RateLimitRPS       int
	RateLimitBurst     int
	RateLimiterTTL     time.Duration
	SessionTTL         time.Duration
}
