package handlers

import (
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	constants "enigmo/internal/constants"
	game "enigmo/internal/game"
	history "enigmo/internal/history"
	models "enigmo/internal/models"
	session "enigmo/internal/session"
	util "enigmo/internal/util"
)

const pageTitle = "Enigmo - News Riddles"

// snapshot flattens the session state into template data. The correct
// answer index is only exposed once an answer is locked in, so a page
// source peek cannot spoil the round.
func snapshot(app *models.App, c *gin.Context, state *models.SessionState) gin.H {
	app.SessionMutex.RLock()
	defer app.SessionMutex.RUnlock()

	csrfToken, _ := c.Cookie("csrf_token")
	data := gin.H{
		"title":      pageTitle,
		"phase":      state.Phase,
		"score":      state.Score,
		"streak":     state.Streak,
		"difficulty": state.Difficulty,
		"category":   state.Category,
		"error":      state.ErrorMessage,
		"generating": game.IsGenerating(state),
		"solved":     game.IsSolved(state),
		"failed":     game.IsFailed(state),
		"answered":   state.SelectedChoice >= 0,
		"selected":   state.SelectedChoice,
		"csrf_token": csrfToken,
	}

	if state.Riddle != nil {
		data["question"] = state.Riddle.Question
		data["choices"] = state.Riddle.Choices
		data["topic"] = state.Riddle.Topic
		data["imageUrl"] = state.ImageURL
		data["hints"] = state.Riddle.Hints[:state.HintsRevealed]
		data["hintsLeft"] = len(state.Riddle.Hints) - state.HintsRevealed
		if state.SelectedChoice >= 0 {
			data["correctIndex"] = state.Riddle.AnswerIndex
			data["funFact"] = state.Riddle.FunFact
		}
	}

	if state.Phase == constants.PhaseHistory {
		store := history.NewStore(app.Storage, state.PlayerID)
		data["entries"] = store.List()
	}

	return data
}

func render(app *models.App, c *gin.Context, state *models.SessionState) {
	data := snapshot(app, c, state)
	if c.GetHeader("HX-Request") == "true" {
		c.HTML(http.StatusOK, "game-content", data)
		return
	}
	if c.Request.Method != http.MethodGet {
		c.Redirect(http.StatusSeeOther, constants.RouteHome)
		return
	}
	c.HTML(http.StatusOK, "index.html", data)
}

func stateFor(app *models.App, c *gin.Context) *models.SessionState {
	playerID := session.GetOrCreatePlayer(app, c)
	sessionID := session.GetOrCreateSession(app, c)
	return session.GetState(app, sessionID, playerID)
}

func HomeHandler(app *models.App, c *gin.Context) {
	render(app, c, stateFor(app, c))
}

// SearchHandler starts the trending-topic pipeline.
func SearchHandler(app *models.App, c *gin.Context) {
	state := stateFor(app, c)
	game.SetDifficulty(app, state, c.PostForm("difficulty"))
	game.SetCategory(app, state, strings.TrimSpace(c.PostForm("category")))
	if err := game.StartSearch(app, state); err != nil {
		util.LogWarn("Search intent rejected: %v", err)
	}
	render(app, c, state)
}

// RiddleHandler starts the pipeline from a player-supplied topic.
func RiddleHandler(app *models.App, c *gin.Context) {
	state := stateFor(app, c)
	game.SetDifficulty(app, state, c.PostForm("difficulty"))
	topic := strings.TrimSpace(c.PostForm("topic"))
	if err := game.StartManual(app, state, topic); err != nil {
		util.LogWarn("Manual topic intent rejected: %v", err)
		data := snapshot(app, c, state)
		data["error_code"] = err.Error()
		if c.GetHeader("HX-Request") == "true" {
			c.HTML(http.StatusOK, "game-content", data)
		} else {
			c.Redirect(http.StatusSeeOther, constants.RouteHome)
		}
		return
	}
	render(app, c, state)
}

// GameStateHandler serves the polling target while a pipeline runs and
// the generic partial refresh otherwise.
func GameStateHandler(app *models.App, c *gin.Context) {
	render(app, c, stateFor(app, c))
}

func AnswerHandler(app *models.App, c *gin.Context) {
	state := stateFor(app, c)
	index, err := strconv.Atoi(c.PostForm("choice"))
	if err != nil {
		util.LogWarn("Malformed choice index %q: %v", c.PostForm("choice"), err)
		render(app, c, state)
		return
	}
	if err := game.SelectAnswer(app, state, index); err != nil {
		util.LogWarn("Answer intent rejected: %v", err)
	}
	render(app, c, state)
}

func HintHandler(app *models.App, c *gin.Context) {
	state := stateFor(app, c)
	game.RevealHint(app, state)
	render(app, c, state)
}

func ResetHandler(app *models.App, c *gin.Context) {
	state := stateFor(app, c)
	game.Reset(app, state)
	render(app, c, state)
}

func HistoryHandler(app *models.App, c *gin.Context) {
	state := stateFor(app, c)
	if err := game.OpenHistory(app, state); err != nil {
		util.LogWarn("History intent rejected: %v", err)
	}
	render(app, c, state)
}

func HistoryClearHandler(app *models.App, c *gin.Context) {
	state := stateFor(app, c)
	store := history.NewStore(app.Storage, state.PlayerID)
	store.Clear()
	render(app, c, state)
}

func HistoryCloseHandler(app *models.App, c *gin.Context) {
	state := stateFor(app, c)
	game.CloseHistory(app, state)
	render(app, c, state)
}

func HealthzHandler(app *models.App, c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(app.StartTime)

	app.SessionMutex.RLock()
	sessionCount := len(app.GameSessions)
	app.SessionMutex.RUnlock()

	app.LimiterMutex.RLock()
	limiterCount := len(app.LimiterMap)
	app.LimiterMutex.RUnlock()

	storedKeys, err := app.Storage.Len()
	if err != nil {
		util.LogWarn("Failed to count stored keys: %v", err)
		storedKeys = -1
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"env":             map[bool]string{true: "production", false: "development"}[app.IsProduction],
		"active_sessions": sessionCount,
		"active_limiters": limiterCount,
		"stored_keys":     storedKeys,
		"memory_alloc_mb": m.Alloc / 1024 / 1024,
		"memory_sys_mb":   m.Sys / 1024 / 1024,
		"memory_gc_count": m.NumGC,
		"uptime":          util.FormatUptime(uptime),
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}
