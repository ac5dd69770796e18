package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"polyculture/internal/game"
	"polyculture/internal/leaderboard"
	"polyculture/internal/questions"
	"polyculture/internal/rooms"
	"polyculture/internal/wshub"
)

type Server struct {
	Rooms   *rooms.Store
	Games   *game.Manager
	Hub     *wshub.Hub
	Source  questions.Source
	GameCfg game.Config
	DB      *sql.DB                 // nil if no database configured
	Board   *leaderboard.Repository // nil if no redis configured
	Log     *slog.Logger
}

// handleWS upgrades the connection and runs its read loop. Every message is
// a JSON ClientMessage; the write side is the client's Send channel pump.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.Log.Error("websocket accept", "error", err)
		return
	}
	defer conn.CloseNow()

	client := &wshub.Client{
		ID:   uuid.New().String(),
		Conn: conn,
		Send: make(chan []byte, 32),
	}
	s.Hub.Register(client)
	defer s.disconnect(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go client.WritePump(ctx)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var msg wshub.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.Log.Warn("unreadable message", "error", err)
			continue
		}
		s.dispatch(client, msg)
	}
}

func (s *Server) dispatch(c *wshub.Client, msg wshub.ClientMessage) {
	switch msg.Type {
	case wshub.MsgCreateRoom:
		s.createRoom(c, msg)
	case wshub.MsgJoinRoom:
		s.joinRoom(c, msg)
	case wshub.MsgStartGame:
		s.startGame(c, msg)
	case wshub.MsgSubmitAnswer:
		s.submitAnswer(c, msg)
	case wshub.MsgLeaveRoom:
		// Leaving is the close path; clients just drop the connection.
	case wshub.MsgBuzz, wshub.MsgQuestion, wshub.MsgAnswer:
		s.relay(msg)
	default:
		s.Log.Debug("unknown message type", "type", msg.Type)
	}
}

func (s *Server) createRoom(c *wshub.Client, msg wshub.ClientMessage) {
	if msg.UserID == "" || msg.Username == "" {
		s.sendError(c, "userId and username are required")
		return
	}
	room, err := s.Rooms.Create(msg.UserID, msg.Username)
	if err != nil {
		s.Log.Error("create room", "error", err)
		s.sendError(c, "Failed to create room")
		return
	}
	s.Hub.Attach(c.ID, msg.UserID, msg.Username, room.Code())
	s.Hub.SendTo(c, game.RoomCreatedEvent{Type: game.EventRoomCreated, Room: room.Snapshot()})
	s.Log.Info("room created", "code", room.Code(), "host", msg.UserID)
}

func (s *Server) joinRoom(c *wshub.Client, msg wshub.ClientMessage) {
	room := s.Rooms.Get(msg.RoomCode)
	if room == nil || room.Status() != rooms.StatusWaiting {
		s.sendError(c, "Room not found or game in progress")
		return
	}
	room.AddPlayer(msg.UserID, msg.Username)
	s.Hub.Attach(c.ID, msg.UserID, msg.Username, room.Code())
	s.Hub.SendTo(c, game.RoomJoinedEvent{Type: game.EventRoomJoined, Room: room.Snapshot()})
	s.Hub.Broadcast(room.Code(), game.PlayerJoinedEvent{Type: game.EventPlayerJoined, Players: room.Players()})
	s.Log.Info("player joined", "code", room.Code(), "user", msg.UserID)
}

func (s *Server) startGame(c *wshub.Client, msg wshub.ClientMessage) {
	room := s.Rooms.Get(msg.RoomCode)
	if room == nil || !room.IsHost(c.UserID) {
		s.sendError(c, "Room not found or you're not the host")
		return
	}
	rounds := msg.TotalRounds
	if rounds <= 0 {
		rounds = s.GameCfg.DefaultRounds
	}
	room.Prepare(msg.Themes, msg.PoolID, rounds)
	s.Hub.Broadcast(room.Code(), game.GameStartedEvent{Type: game.EventGameStarted, Scores: room.Scores()})

	// The session outlives this request.
	s.Games.Start(context.Background(), room, s.Source, s.Hub, s.GameCfg, s.recorder())
	s.Log.Info("game started", "code", room.Code(), "rounds", rounds, "themes", msg.Themes, "pool", msg.PoolID)
}

func (s *Server) submitAnswer(c *wshub.Client, msg wshub.ClientMessage) {
	if msg.RoomCode == "" || msg.UserID == "" || msg.Answer == "" {
		return
	}
	sess := s.Games.Get(msg.RoomCode)
	if sess == nil {
		return
	}
	username := msg.Username
	if username == "" {
		username = c.Username
	}
	sess.SubmitAnswer(msg.UserID, username, msg.Answer, msg.Timestamp)
}

// relay rebroadcasts the lightweight buzz/question/answer messages to every
// open connection without interpreting them.
func (s *Server) relay(msg wshub.ClientMessage) {
	s.Hub.BroadcastAll(game.RelayEvent{
		Type:     msg.Type,
		Owner:    msg.Data.Name,
		Question: msg.Data.Question,
		Answer:   msg.Data.Answer,
	})
}

// disconnect runs leave semantics for a closed connection: remove the player
// from their room, transfer host or destroy the room, and tell the others.
func (s *Server) disconnect(c *wshub.Client) {
	removed := s.Hub.Unregister(c.ID)
	if removed == nil || removed.RoomCode == "" {
		return
	}
	room := s.Rooms.Get(removed.RoomCode)
	if room == nil {
		return
	}
	remaining, newHost, _ := room.RemovePlayer(removed.UserID)
	if remaining == 0 {
		s.Games.Stop(room.Code())
		s.Rooms.Delete(room.Code())
		s.Log.Info("room closed", "code", room.Code())
		return
	}
	s.Hub.Broadcast(room.Code(), game.PlayerLeftEvent{
		Type:    game.EventPlayerLeft,
		Players: room.Players(),
		NewHost: newHost,
	})
	s.Log.Info("player left", "code", room.Code(), "user", removed.UserID, "newHost", newHost)
}

func (s *Server) sendError(c *wshub.Client, message string) {
	s.Hub.SendTo(c, game.ErrorEvent{Type: game.EventError, Message: message})
}

// boardRecorder feeds final game scores into the redis leaderboard. Errors
// are logged and absorbed; the game outcome never depends on redis.
type boardRecorder struct {
	board *leaderboard.Repository
	log   *slog.Logger
}

func (b boardRecorder) Record(username string, points int) {
	if err := b.board.AddPoints(username, points); err != nil {
		b.log.Error("record score", "user", username, "error", err)
	}
}

func (s *Server) recorder() game.ScoreRecorder {
	if s.Board == nil {
		return nil
	}
	return boardRecorder{board: s.Board, log: s.Log}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.DB != nil {
		if err := s.DB.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "db_error", "error": err.Error()})
			return
		}
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.Board == nil {
		http.Error(w, "leaderboard not configured", http.StatusNotFound)
		return
	}
	if user := r.URL.Query().Get("user"); user != "" {
		rank, err := s.Board.UserRank(user)
		if err != nil {
			s.Log.Error("leaderboard rank query", "user", user, "error", err)
			http.Error(w, "leaderboard unavailable", http.StatusInternalServerError)
			return
		}
		if rank == 0 {
			http.Error(w, "player not ranked", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{"username": user, "rank": rank}); err != nil {
			s.Log.Error("encode leaderboard rank", "error", err)
		}
		return
	}
	limit := int64(10)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := s.Board.Top(limit)
	if err != nil {
		s.Log.Error("leaderboard query", "error", err)
		http.Error(w, "leaderboard unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		s.Log.Error("encode leaderboard", "error", err)
	}
}
