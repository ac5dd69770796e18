package rooms

import (
	"sync"
	"time"
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

type Player struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Ready    bool   `json:"ready"`
}

// Info is the JSON view of a room sent in ROOM_CREATED / ROOM_JOINED events.
type Info struct {
	Code           string         `json:"code"`
	Host           string         `json:"host"`
	Players        []Player       `json:"players"`
	SelectedThemes []string       `json:"selectedThemes"`
	PoolID         int            `json:"poolId,omitempty"`
	Status         Status         `json:"status"`
	Scores         map[string]int `json:"scores"`
	TotalRounds    int            `json:"totalRounds,omitempty"`
}

// Room is one joinable unit of play. The player list keeps insertion order:
// host transfer picks the first remaining player.
type Room struct {
	mu             sync.Mutex
	code           string
	host           string
	players        []Player
	status         Status
	selectedThemes []string
	poolID         int
	totalRounds    int
	scores         map[string]int
	createdAt      time.Time
}

func newRoom(code, hostID, hostName string) *Room {
	return &Room{
		code:      code,
		host:      hostID,
		players:   []Player{{ID: hostID, Username: hostName}},
		status:    StatusWaiting,
		scores:    make(map[string]int),
		createdAt: time.Now(),
	}
}

func (r *Room) Code() string {
	return r.code
}

func (r *Room) Host() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.host
}

func (r *Room) IsHost(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.host == userID
}

func (r *Room) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Room) SetStatus(s Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = s
}

// AddPlayer appends the player unless the id is already present, and reports
// whether the list changed.
func (r *Room) AddPlayer(userID, username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		if p.ID == userID {
			return false
		}
	}
	r.players = append(r.players, Player{ID: userID, Username: username})
	return true
}

// RemovePlayer drops the player and reassigns the host to the first
// remaining player when the host left. remaining is the player count after
// removal.
func (r *Room) RemovePlayer(userID string) (remaining int, newHost string, hostChanged bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.players {
		if p.ID == userID {
			r.players = append(r.players[:i], r.players[i+1:]...)
			break
		}
	}
	if len(r.players) > 0 && r.host == userID {
		r.host = r.players[0].ID
		hostChanged = true
	}
	return len(r.players), r.host, hostChanged
}

func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

func (r *Room) Players() []Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Player(nil), r.players...)
}

// Prepare moves the room into playing state with fresh scores and the game
// settings chosen by the host.
func (r *Room) Prepare(themes []string, poolID, totalRounds int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = StatusPlaying
	r.selectedThemes = themes
	r.poolID = poolID
	r.totalRounds = totalRounds
	r.scores = make(map[string]int)
}

func (r *Room) Settings() (poolID int, themes []string, totalRounds int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.poolID, append([]string(nil), r.selectedThemes...), r.totalRounds
}

func (r *Room) AddScore(userID string, points int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scores[userID] += points
}

func (r *Room) Scores() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	scores := make(map[string]int, len(r.scores))
	for id, s := range r.scores {
		scores[id] = s
	}
	return scores
}

func (r *Room) Snapshot() Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	scores := make(map[string]int, len(r.scores))
	for id, s := range r.scores {
		scores[id] = s
	}
	return Info{
		Code:           r.code,
		Host:           r.host,
		Players:        append([]Player(nil), r.players...),
		SelectedThemes: append([]string(nil), r.selectedThemes...),
		PoolID:         r.poolID,
		Status:         r.status,
		Scores:         scores,
		TotalRounds:    r.totalRounds,
	}
}
