package session

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	constants "enigmo/internal/constants"
	game "enigmo/internal/game"
	models "enigmo/internal/models"
	util "enigmo/internal/util"
)

func GetOrCreateSession(app *models.App, c *gin.Context) string {
	sessionID, err := c.Cookie(constants.SessionCookieName)
	if err != nil || len(sessionID) < 10 {
		sessionID = uuid.NewString()
		c.SetSameSite(http.SameSiteStrictMode)
		secure := app.IsProduction
		c.SetCookie(constants.SessionCookieName, sessionID, int(app.CookieMaxAge.Seconds()), "/", "", secure, true)
		util.LogInfo("Created new session: %s", sessionID)
	}
	return sessionID
}

// GetOrCreatePlayer issues the long-lived identity cookie that
// namespaces persisted history and streak, the per-browser analogue of
// local storage.
func GetOrCreatePlayer(app *models.App, c *gin.Context) string {
	playerID, err := c.Cookie(constants.PlayerCookieName)
	if err != nil || len(playerID) < 10 {
		playerID = uuid.NewString()
		c.SetSameSite(http.SameSiteStrictMode)
		secure := app.IsProduction
		c.SetCookie(constants.PlayerCookieName, playerID, int(app.PlayerCookieMaxAge.Seconds()), "/", "", secure, true)
		util.LogInfo("Created new player identity: %s", playerID)
	}
	return playerID
}

func GetState(app *models.App, sessionID, playerID string) *models.SessionState {
	app.SessionMutex.RLock()
	state, exists := app.GameSessions[sessionID]
	app.SessionMutex.RUnlock()
	if exists {
		app.SessionMutex.Lock()
		state.LastAccessTime = time.Now()
		app.SessionMutex.Unlock()
		return state
	}

	util.LogInfo("Creating new game session for: %s", sessionID)
	state = game.NewSession(app, playerID)
	app.SessionMutex.Lock()
	app.GameSessions[sessionID] = state
	app.SessionMutex.Unlock()
	return state
}

func CleanupExpiredSessions(app *models.App) {
	app.SessionMutex.Lock()
	defer app.SessionMutex.Unlock()

	now := time.Now()
	expiredCount := 0
	for sessionID, state := range app.GameSessions {
		if now.Sub(state.LastAccessTime) > app.SessionTTL {
			delete(app.GameSessions, sessionID)
			expiredCount++
		}
	}

	if expiredCount > 0 {
		util.LogInfo("Cleaned up %d expired sessions", expiredCount)
	}
}

func StartSessionCleanup(app *models.App) {
	ticker := time.NewTicker(10 * time.Minute)
	go func() {
		defer ticker.Stop()
		for range ticker.C {
			CleanupExpiredSessions(app)
		}
	}()
	util.LogInfo("Started session cleanup goroutine")
}
