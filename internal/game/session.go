package game

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"polyculture/internal/metrics"
	"polyculture/internal/questions"
	"polyculture/internal/rooms"
)

type sessionState int

const (
	stateInitializing sessionState = iota
	stateRoundActive
	stateGrading
	stateFinished
)

// answerEntry is one player's submission for the current round. The first
// submission wins; later ones from the same player are dropped.
type answerEntry struct {
	username  string
	answer    string
	timestamp int64 // client epoch millis
}

// ScoreRecorder receives final per-player totals when a game ends.
type ScoreRecorder interface {
	Record(username string, points int)
}

// Session drives one room through its rounds: question broadcast, timed
// answer collection, grading and ranking, then the next round or game end.
// All transitions run under the session mutex; timers are generation-checked
// so a countdown that lost the race to an early finish is a no-op.
type Session struct {
	mu       sync.Mutex
	room     *rooms.Room
	source   questions.Source
	bc       Broadcaster
	cfg      Config
	log      *slog.Logger
	recorder ScoreRecorder
	onDone   func()

	state      sessionState
	questions  []questions.Question
	idx        int
	entries    map[string]answerEntry
	order      []string // submission-arrival order, the timestamp tie-break
	names      map[string]string
	roundStart time.Time
	timer      *time.Timer
	gen        int
}

func NewSession(room *rooms.Room, source questions.Source, bc Broadcaster, cfg Config, log *slog.Logger) *Session {
	if cfg.Match == nil {
		cfg.Match = DefaultConfig().Match
	}
	return &Session{
		room:    room,
		source:  source,
		bc:      bc,
		cfg:     cfg,
		log:     log,
		entries: make(map[string]answerEntry),
		names:   make(map[string]string),
	}
}

// Start fetches the question sequence and opens the first round. An empty
// fetch is fatal for this session: the room is told and nothing advances
// until the host starts a new game.
func (s *Session) Start(ctx context.Context) {
	poolID, themes, rounds := s.room.Settings()
	if rounds <= 0 {
		rounds = s.cfg.DefaultRounds
	}
	qs := s.source.Fetch(ctx, questions.Criteria{PoolID: poolID, Themes: themes}, rounds)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateInitializing {
		return // stopped while fetching
	}
	if len(qs) == 0 {
		s.log.Error("no questions for game", "room", s.room.Code(), "pool_id", poolID, "themes", themes)
		s.bc.Broadcast(s.room.Code(), ErrorEvent{
			Type:    EventError,
			Message: "Aucune question trouvée. Veuillez choisir un autre thème ou pool.",
		})
		return
	}

	for _, p := range s.room.Players() {
		s.names[p.ID] = p.Username
	}
	s.questions = qs
	s.state = stateRoundActive
	s.startRound()
}

// startRound is called with the mutex held and state == stateRoundActive.
func (s *Session) startRound() {
	q := s.questions[s.idx]
	s.entries = make(map[string]answerEntry)
	s.order = s.order[:0]
	s.roundStart = time.Now()

	s.bc.Broadcast(s.room.Code(), NewQuestionEvent{
		Type:        EventNewQuestion,
		Question:    QuestionView{ID: q.ID, Question: q.Prompt, Theme: q.Theme},
		Round:       s.idx + 1,
		TimeLimit:   int(s.cfg.QuestionTime / time.Second),
		TotalRounds: len(s.questions),
	})

	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(s.cfg.QuestionTime, func() { s.timeUp(gen) })
}

func (s *Session) timeUp(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.state != stateRoundActive {
		return // round already graded
	}
	s.grade()
}

// SubmitAnswer records a player's answer for the current round. Submissions
// outside an active round, and second submissions from the same player, are
// silently ignored. When every current room member has answered, grading
// starts immediately.
func (s *Session) SubmitAnswer(playerID, username, answer string, timestamp int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateRoundActive {
		return
	}
	if _, dup := s.entries[playerID]; dup {
		return
	}
	s.entries[playerID] = answerEntry{username: username, answer: answer, timestamp: timestamp}
	s.order = append(s.order, playerID)
	s.names[playerID] = username
	metrics.AnswersSubmitted.Inc()

	if len(s.entries) >= s.room.PlayerCount() {
		s.grade()
	}
}

func pointsForRank(rank int) int {
	switch rank {
	case 0:
		return 10
	case 1:
		return 8
	case 2:
		return 6
	default:
		return 5
	}
}

// grade is called with the mutex held. It closes the round: cancels the
// countdown, ranks correct answers by client timestamp (arrival order breaks
// ties), accumulates points and broadcasts the results, then arms the
// advance delay.
func (s *Session) grade() {
	s.state = stateGrading
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	q := s.questions[s.idx]

	type ranked struct {
		playerID  string
		timestamp int64
	}
	var correct []ranked
	for _, id := range s.order {
		e := s.entries[id]
		if s.cfg.Match(e.answer, q.Answer) {
			correct = append(correct, ranked{playerID: id, timestamp: e.timestamp})
		}
	}
	sort.SliceStable(correct, func(i, j int) bool {
		return correct[i].timestamp < correct[j].timestamp
	})

	rankOf := make(map[string]int, len(correct))
	for i, c := range correct {
		rankOf[c.playerID] = i
		s.room.AddScore(c.playerID, pointsForRank(i))
	}

	startMs := s.roundStart.UnixMilli()
	results := make([]PlayerResult, 0, len(s.order))
	for _, id := range s.order {
		e := s.entries[id]
		points := 0
		rank, isCorrect := rankOf[id]
		if isCorrect {
			points = pointsForRank(rank)
		}
		results = append(results, PlayerResult{
			PlayerID:  id,
			Username:  e.username,
			Answer:    e.answer,
			IsCorrect: isCorrect,
			Points:    points,
			Time:      fmt.Sprintf("%.1f", float64(e.timestamp-startMs)/1000),
		})
	}

	s.bc.Broadcast(s.room.Code(), RoundEndedEvent{
		Type:    EventRoundEnded,
		Results: RoundResults{CorrectAnswer: q.Answer, PlayerResults: results},
		Scores:  s.room.Scores(),
	})

	gen := s.gen
	s.timer = time.AfterFunc(s.cfg.AdvanceDelay, func() { s.advance(gen) })
}

func (s *Session) advance(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.state != stateGrading {
		return
	}
	s.idx++
	if s.idx < len(s.questions) {
		s.state = stateRoundActive
		s.startRound()
		return
	}
	s.finish()
}

// finish is called with the mutex held.
func (s *Session) finish() {
	s.state = stateFinished
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}

	finalScores := s.room.Scores()
	s.bc.Broadcast(s.room.Code(), GameEndedEvent{Type: EventGameEnded, FinalScores: finalScores})
	s.room.SetStatus(rooms.StatusFinished)
	metrics.GamesCompleted.Inc()

	if s.recorder != nil {
		names := make(map[string]string, len(s.names))
		for id, n := range s.names {
			names[id] = n
		}
		rec := s.recorder
		go func() {
			for id, points := range finalScores {
				name := names[id]
				if name == "" {
					name = id
				}
				rec.Record(name, points)
			}
		}()
	}

	if s.onDone != nil {
		s.onDone()
	}
}

// Stop tears the session down: any pending countdown is cancelled and all
// further submissions and timer firings become no-ops. Safe to call more
// than once.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateFinished {
		return
	}
	s.state = stateFinished
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Finished reports whether the session has ended (or was stopped).
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateFinished
}
