// Package game owns the per-session state machine: which phase the
// round is in, the active riddle, and every transition a player intent
// or pipeline event can trigger. All state mutation happens under
// App.SessionMutex so handlers and the pipeline goroutine never race.
package game

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	constants "enigmo/internal/constants"
	history "enigmo/internal/history"
	models "enigmo/internal/models"
	util "enigmo/internal/util"
)

func NewSession(app *models.App, playerID string) *models.SessionState {
	store := history.NewStore(app.Storage, playerID)
	return &models.SessionState{
		Phase:          constants.PhaseIdle,
		SelectedChoice: -1,
		Streak:         store.Streak(),
		Difficulty:     constants.DifficultyMedium,
		PlayerID:       playerID,
		LastAccessTime: time.Now(),
	}
}

func SetDifficulty(app *models.App, s *models.SessionState, difficulty string) {
	switch difficulty {
	case constants.DifficultyEasy, constants.DifficultyMedium, constants.DifficultyHard:
	default:
		return
	}
	app.SessionMutex.Lock()
	s.Difficulty = difficulty
	app.SessionMutex.Unlock()
}

func SetCategory(app *models.App, s *models.SessionState, category string) {
	app.SessionMutex.Lock()
	s.Category = category
	app.SessionMutex.Unlock()
}

// StartSearch kicks off the trending-topic pipeline. Only one pipeline
// runs per session; anything but the idle phase rejects the intent.
func StartSearch(app *models.App, s *models.SessionState) error {
	app.SessionMutex.Lock()
	if s.Phase != constants.PhaseIdle {
		app.SessionMutex.Unlock()
		return errors.New(constants.ErrorCodeBusyPipeline)
	}
	s.ErrorMessage = ""
	s.Phase = constants.PhaseSearching
	token := uuid.NewString()
	s.GenerationToken = token
	category, difficulty := s.Category, s.Difficulty
	app.SessionMutex.Unlock()

	go RunPipeline(app, s, token, "", category, difficulty)
	return nil
}

// StartManual skips topic discovery and generates straight from the
// player's own topic text.
func StartManual(app *models.App, s *models.SessionState, topic string) error {
	if topic == "" {
		return errors.New(constants.ErrorCodeEmptyTopic)
	}
	app.SessionMutex.Lock()
	if s.Phase != constants.PhaseIdle {
		app.SessionMutex.Unlock()
		return errors.New(constants.ErrorCodeBusyPipeline)
	}
	s.ErrorMessage = ""
	s.Phase = constants.PhaseGeneratingRiddle
	token := uuid.NewString()
	s.GenerationToken = token
	difficulty := s.Difficulty
	app.SessionMutex.Unlock()

	go RunPipeline(app, s, token, topic, "", difficulty)
	return nil
}

// RunPipeline executes topic -> riddle -> image strictly in sequence.
// Each committed step re-checks the generation token, so a session that
// reset mid-flight silently discards late results. There is no
// cancellation and no retry; the call's own timeout governs latency.
func RunPipeline(app *models.App, s *models.SessionState, token, topic, category, difficulty string) {
	ctx := context.Background()

	if topic == "" {
		found, err := app.Generator.FetchTrendingTopic(ctx, category)
		if err != nil {
			ApplyFailure(app, s, token, err)
			return
		}
		if !ApplyTopic(app, s, token) {
			return
		}
		topic = found
	}

	riddle, err := app.Generator.GenerateRiddle(ctx, topic, difficulty)
	if err != nil {
		ApplyFailure(app, s, token, err)
		return
	}
	if !ApplyRiddle(app, s, token, riddle) {
		return
	}

	imageURL, err := app.Generator.GenerateImage(ctx, riddle.ImagePrompt)
	if err != nil {
		ApplyFailure(app, s, token, err)
		return
	}
	ApplyImage(app, s, token, imageURL)
}

// ApplyTopic moves searching -> generatingRiddle once a topic resolves.
func ApplyTopic(app *models.App, s *models.SessionState, token string) bool {
	app.SessionMutex.Lock()
	defer app.SessionMutex.Unlock()
	if s.GenerationToken != token {
		util.LogInfo("Discarding stale topic result for abandoned pipeline")
		return false
	}
	s.Phase = constants.PhaseGeneratingRiddle
	return true
}

// ApplyRiddle stores the generated record and moves on to the image.
func ApplyRiddle(app *models.App, s *models.SessionState, token string, riddle *models.RiddleRecord) bool {
	app.SessionMutex.Lock()
	defer app.SessionMutex.Unlock()
	if s.GenerationToken != token {
		util.LogInfo("Discarding stale riddle result for abandoned pipeline")
		return false
	}
	s.Riddle = riddle
	s.Phase = constants.PhaseGeneratingImage
	return true
}

// ApplyImage completes the pipeline; the round becomes playable.
func ApplyImage(app *models.App, s *models.SessionState, token, imageURL string) bool {
	app.SessionMutex.Lock()
	defer app.SessionMutex.Unlock()
	if s.GenerationToken != token {
		util.LogInfo("Discarding stale image result for abandoned pipeline")
		return false
	}
	s.ImageURL = imageURL
	s.Phase = constants.PhasePlaying
	s.SelectedChoice = -1
	s.HintsRevealed = 0
	return true
}

// ApplyFailure jumps any generating phase straight to the error screen.
// No partial state survives.
func ApplyFailure(app *models.App, s *models.SessionState, token string, err error) bool {
	app.SessionMutex.Lock()
	defer app.SessionMutex.Unlock()
	if s.GenerationToken != token {
		util.LogInfo("Discarding stale failure for abandoned pipeline: %v", err)
		return false
	}
	util.LogWarn("Generation pipeline failed: %v", err)
	s.Riddle = nil
	s.ImageURL = ""
	s.SelectedChoice = -1
	s.HintsRevealed = 0
	s.ErrorMessage = err.Error()
	s.Phase = constants.PhaseError
	return true
}

// SelectAnswer commits the player's choice. The first selection wins;
// later ones are ignored until the next reset. A correct answer bumps
// streak and score and records the solve; a wrong one zeroes the
// streak and leaves history untouched.
func SelectAnswer(app *models.App, s *models.SessionState, index int) error {
	app.SessionMutex.Lock()
	if s.Phase != constants.PhasePlaying || s.Riddle == nil {
		app.SessionMutex.Unlock()
		return errors.New(constants.ErrorCodeNotPlaying)
	}
	if s.SelectedChoice >= 0 {
		app.SessionMutex.Unlock()
		return nil
	}
	if index < 0 || index >= len(s.Riddle.Choices) {
		app.SessionMutex.Unlock()
		return errors.New(constants.ErrorCodeBadChoice)
	}

	s.SelectedChoice = index
	correct := index == s.Riddle.AnswerIndex
	if correct {
		s.Streak++
		s.Score++
	} else {
		s.Streak = 0
	}
	streak := s.Streak
	riddle := s.Riddle
	imageURL := s.ImageURL
	playerID := s.PlayerID
	app.SessionMutex.Unlock()

	store := history.NewStore(app.Storage, playerID)
	store.SaveStreak(streak)
	if correct {
		store.Record(riddle, imageURL)
	}
	return nil
}

// RevealHint uncovers at most one more hint per call, capped at the
// hint count, and is disabled once an answer is in.
func RevealHint(app *models.App, s *models.SessionState) {
	app.SessionMutex.Lock()
	defer app.SessionMutex.Unlock()
	if s.Phase != constants.PhasePlaying || s.Riddle == nil || s.SelectedChoice >= 0 {
		return
	}
	if s.HintsRevealed < len(s.Riddle.Hints) {
		s.HintsRevealed++
	}
}

// Reset returns the session to idle from any phase. Streak, score and
// recorded history survive; everything round-specific is cleared, and
// the token change orphans any still-running pipeline.
func Reset(app *models.App, s *models.SessionState) {
	app.SessionMutex.Lock()
	defer app.SessionMutex.Unlock()
	s.Phase = constants.PhaseIdle
	s.Riddle = nil
	s.ImageURL = ""
	s.SelectedChoice = -1
	s.HintsRevealed = 0
	s.ErrorMessage = ""
	s.GenerationToken = ""
}

func OpenHistory(app *models.App, s *models.SessionState) error {
	app.SessionMutex.Lock()
	defer app.SessionMutex.Unlock()
	if s.Phase != constants.PhaseIdle {
		return errors.New(constants.ErrorCodeBusyPipeline)
	}
	s.Phase = constants.PhaseHistory
	return nil
}

func CloseHistory(app *models.App, s *models.SessionState) {
	app.SessionMutex.Lock()
	defer app.SessionMutex.Unlock()
	if s.Phase == constants.PhaseHistory {
		s.Phase = constants.PhaseIdle
	}
}

// IsSolved and IsFailed derive the terminal sub-states of playing.
func IsSolved(s *models.SessionState) bool {
	return s.Phase == constants.PhasePlaying && s.Riddle != nil &&
		s.SelectedChoice >= 0 && s.SelectedChoice == s.Riddle.AnswerIndex
}

func IsFailed(s *models.SessionState) bool {
	return s.Phase == constants.PhasePlaying && s.Riddle != nil &&
		s.SelectedChoice >= 0 && s.SelectedChoice != s.Riddle.AnswerIndex
}

func IsGenerating(s *models.SessionState) bool {
	switch s.Phase {
	case constants.PhaseSearching, constants.PhaseGeneratingRiddle, constants.PhaseGeneratingImage:
		return true
	}
	return false
}
