package constants

type ContextKey string

const (
	ChoiceCount       = 4
	MaxHistoryEntries = 12
)

// Game phases. Solved/failed are derived from the selected choice while
// in PhasePlaying, not separate phases.
const (
	PhaseIdle             = "idle"
	PhaseSearching        = "searching"
	PhaseGeneratingRiddle = "generating_riddle"
	PhaseGeneratingImage  = "generating_image"
	PhasePlaying          = "playing"
	PhaseError            = "error"
	PhaseHistory          = "history"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

const (
	SessionCookieName = "session_id"
	PlayerCookieName  = "player_id"
)

const (
	RouteHome         = "/"
	RouteSearch       = "/search"
	RouteRiddle       = "/riddle"
	RouteGameState    = "/game-state"
	RouteAnswer       = "/answer"
	RouteHint         = "/hint"
	RouteReset        = "/reset"
	RouteHistory      = "/history"
	RouteHistoryClear = "/history/clear"
	RouteHistoryClose = "/history/close"
)

const (
	ErrorCodeEmptyTopic    = "empty_topic"
	ErrorCodeBusyPipeline  = "pipeline_in_flight"
	ErrorCodeNotPlaying    = "not_playing"
	ErrorCodeAlreadyChosen = "already_answered"
	ErrorCodeBadChoice     = "bad_choice_index"
)

// Storage key prefixes; the full key is prefix + player ID so each
// browser keeps its own history and streak.
const (
	HistoryKeyPrefix = "history:"
	StreakKeyPrefix  = "streak:"
)

const (
	RequestIDKey ContextKey = "request_id"
)
