package game

import "polyculture/internal/rooms"

// Outbound event types. Every event carries its type tag so clients can
// demultiplex on a single field.
const (
	EventRoomCreated  = "ROOM_CREATED"
	EventRoomJoined   = "ROOM_JOINED"
	EventPlayerJoined = "PLAYER_JOINED"
	EventPlayerLeft   = "PLAYER_LEFT"
	EventGameStarted  = "GAME_STARTED"
	EventNewQuestion  = "NEW_QUESTION"
	EventRoundEnded   = "ROUND_ENDED"
	EventGameEnded    = "GAME_ENDED"
	EventError        = "ERROR"
)

// Broadcaster fans an event out to every open connection in a room. The hub
// implements it; sessions depend only on this.
type Broadcaster interface {
	Broadcast(roomCode string, v any)
}

type RoomCreatedEvent struct {
	Type string     `json:"type"`
	Room rooms.Info `json:"room"`
}

type RoomJoinedEvent struct {
	Type string     `json:"type"`
	Room rooms.Info `json:"room"`
}

type PlayerJoinedEvent struct {
	Type    string         `json:"type"`
	Players []rooms.Player `json:"players"`
}

type PlayerLeftEvent struct {
	Type    string         `json:"type"`
	Players []rooms.Player `json:"players"`
	NewHost string         `json:"newHost"`
}

type GameStartedEvent struct {
	Type   string         `json:"type"`
	Scores map[string]int `json:"scores"`
}

// QuestionView is the client-visible part of a question. The answer never
// leaves the server before grading.
type QuestionView struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Theme    string `json:"theme"`
}

type NewQuestionEvent struct {
	Type        string       `json:"type"`
	Question    QuestionView `json:"question"`
	Round       int          `json:"round"` // 1-based
	TimeLimit   int          `json:"timeLimit"`
	TotalRounds int          `json:"totalRounds"`
}

type PlayerResult struct {
	PlayerID  string `json:"playerId"`
	Username  string `json:"username"`
	Answer    string `json:"answer"`
	IsCorrect bool   `json:"isCorrect"`
	Points    int    `json:"points"`
	Time      string `json:"time"` // seconds, one decimal
}

type RoundResults struct {
	CorrectAnswer string         `json:"correctAnswer"`
	PlayerResults []PlayerResult `json:"playerResults"`
}

type RoundEndedEvent struct {
	Type    string         `json:"type"`
	Results RoundResults   `json:"results"`
	Scores  map[string]int `json:"scores"`
}

type GameEndedEvent struct {
	Type        string         `json:"type"`
	FinalScores map[string]int `json:"finalScores"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// RelayEvent is the broadcast form of the buzz/question/answer messages.
type RelayEvent struct {
	Type     string `json:"type"`
	Owner    string `json:"owner"`
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer,omitempty"`
}
