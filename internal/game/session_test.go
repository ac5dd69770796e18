package game

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"polyculture/internal/questions"
	"polyculture/internal/rooms"
)

type fakeBroadcaster struct {
	ch chan any
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{ch: make(chan any, 64)}
}

func (b *fakeBroadcaster) Broadcast(_ string, v any) {
	b.ch <- v
}

func (b *fakeBroadcaster) next(t *testing.T, timeout time.Duration) any {
	t.Helper()
	select {
	case v := <-b.ch:
		return v
	case <-time.After(timeout):
		t.Fatal("timed out waiting for broadcast")
		return nil
	}
}

func (b *fakeBroadcaster) expectNone(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case v := <-b.ch:
		t.Fatalf("unexpected broadcast: %+v", v)
	case <-time.After(wait):
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.QuestionTime = 150 * time.Millisecond
	cfg.AdvanceDelay = 40 * time.Millisecond
	return cfg
}

func testRoomWith(t *testing.T, playerIDs ...string) *rooms.Room {
	t.Helper()
	store := rooms.NewStore()
	room, err := store.Create(playerIDs[0], "Player-"+playerIDs[0])
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range playerIDs[1:] {
		room.AddPlayer(id, "Player-"+id)
	}
	room.Prepare(nil, 0, 0)
	return room
}

func startSession(t *testing.T, room *rooms.Room, qs []questions.Question, cfg Config) (*Session, *fakeBroadcaster) {
	t.Helper()
	bc := newFakeBroadcaster()
	s := NewSession(room, questions.StaticSource(qs), bc, cfg, testLogger())
	s.Start(context.Background())
	return s, bc
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}

var twoQuestions = []questions.Question{
	{ID: "q1", Prompt: "Capital of France?", Answer: "Paris", Theme: "Geography"},
	{ID: "q2", Prompt: "Capital of Japan?", Answer: "Tokyo", Theme: "Geography"},
}

func TestSession_StartBroadcastsFirstQuestion(t *testing.T) {
	room := testRoomWith(t, "a")
	_, bc := startSession(t, room, twoQuestions, testConfig())

	ev, ok := bc.next(t, time.Second).(NewQuestionEvent)
	if !ok {
		t.Fatal("first broadcast should be NEW_QUESTION")
	}
	if ev.Type != EventNewQuestion {
		t.Errorf("Type = %q", ev.Type)
	}
	if ev.Round != 1 || ev.TotalRounds != 2 {
		t.Errorf("Round = %d, TotalRounds = %d, want 1 and 2", ev.Round, ev.TotalRounds)
	}
	if ev.Question.ID != "q1" || ev.Question.Question != "Capital of France?" {
		t.Errorf("unexpected question: %+v", ev.Question)
	}
	if ev.Question.Theme != "Geography" {
		t.Errorf("Theme = %q", ev.Question.Theme)
	}
}

func TestSession_EmptySourceEmitsError(t *testing.T) {
	room := testRoomWith(t, "a")
	s, bc := startSession(t, room, nil, testConfig())

	ev, ok := bc.next(t, time.Second).(ErrorEvent)
	if !ok {
		t.Fatal("empty question fetch should broadcast ERROR")
	}
	if ev.Type != EventError {
		t.Errorf("Type = %q", ev.Type)
	}

	// The session stays inert: submissions do nothing, no round ever opens.
	s.SubmitAnswer("a", "Player-a", "Paris", nowMs())
	bc.expectNone(t, 250*time.Millisecond)
}

func TestSession_AllAnsweredFinishesEarly(t *testing.T) {
	room := testRoomWith(t, "a", "b")
	s, bc := startSession(t, room, twoQuestions, testConfig())
	bc.next(t, time.Second) // NEW_QUESTION

	base := nowMs()
	s.SubmitAnswer("a", "Alice", "paris", base+100)
	s.SubmitAnswer("b", "Bob", "London", base+200)

	// Grading should begin immediately, well before the 150ms time limit.
	ev, ok := bc.next(t, 50*time.Millisecond).(RoundEndedEvent)
	if !ok {
		t.Fatal("expected ROUND_ENDED right after all players answered")
	}
	if ev.Results.CorrectAnswer != "Paris" {
		t.Errorf("CorrectAnswer = %q", ev.Results.CorrectAnswer)
	}
	if len(ev.Results.PlayerResults) != 2 {
		t.Fatalf("got %d player results, want 2", len(ev.Results.PlayerResults))
	}

	byPlayer := make(map[string]PlayerResult)
	for _, r := range ev.Results.PlayerResults {
		byPlayer[r.PlayerID] = r
	}
	if r := byPlayer["a"]; !r.IsCorrect || r.Points != 10 {
		t.Errorf("a: %+v, want correct with 10 points", r)
	}
	if r := byPlayer["b"]; r.IsCorrect || r.Points != 0 {
		t.Errorf("b: %+v, want incorrect with 0 points", r)
	}
	if ev.Scores["a"] != 10 || ev.Scores["b"] != 0 {
		t.Errorf("Scores = %v", ev.Scores)
	}

	// The cancelled countdown must never produce a second grading.
	next := bc.next(t, time.Second)
	if _, again := next.(RoundEndedEvent); again {
		t.Fatal("round graded twice: countdown fired after early finish")
	}
	if _, ok := next.(NewQuestionEvent); !ok {
		t.Fatalf("expected next NEW_QUESTION, got %+v", next)
	}
}

func TestSession_DuplicateSubmissionKeepsFirst(t *testing.T) {
	room := testRoomWith(t, "a", "b")
	s, bc := startSession(t, room, twoQuestions, testConfig())
	bc.next(t, time.Second)

	base := nowMs()
	s.SubmitAnswer("a", "Alice", "Paris", base+100)
	s.SubmitAnswer("a", "Alice", "changed my mind", base+150)
	s.SubmitAnswer("b", "Bob", "Paris", base+200)

	ev := bc.next(t, time.Second).(RoundEndedEvent)
	for _, r := range ev.Results.PlayerResults {
		if r.PlayerID == "a" && r.Answer != "Paris" {
			t.Errorf("a's scored answer = %q, want the first submission", r.Answer)
		}
	}
}

func TestSession_TimeoutGradesPartialAnswers(t *testing.T) {
	room := testRoomWith(t, "a", "b")
	s, bc := startSession(t, room, twoQuestions, testConfig())
	bc.next(t, time.Second)

	s.SubmitAnswer("a", "Alice", "Paris", nowMs())
	// b never answers; the countdown must close the round.

	ev, ok := bc.next(t, time.Second).(RoundEndedEvent)
	if !ok {
		t.Fatal("expected ROUND_ENDED from the countdown")
	}
	if len(ev.Results.PlayerResults) != 1 {
		t.Fatalf("got %d player results, want only the submitter", len(ev.Results.PlayerResults))
	}
	if ev.Scores["a"] != 10 {
		t.Errorf("Scores = %v, want a:10", ev.Scores)
	}
}

func TestSession_RankingByTimestamp(t *testing.T) {
	room := testRoomWith(t, "a", "b", "c", "d", "e")
	s, bc := startSession(t, room, twoQuestions, testConfig())
	bc.next(t, time.Second)

	base := nowMs()
	// Submission order differs from timestamp order on purpose.
	s.SubmitAnswer("b", "Bob", "Paris", base+300)
	s.SubmitAnswer("a", "Alice", "Paris", base+100)
	s.SubmitAnswer("c", "Carol", "Paris", base+500)
	s.SubmitAnswer("d", "Dave", "Paris", base+700)
	s.SubmitAnswer("e", "Eve", "Paris", base+900)

	ev := bc.next(t, time.Second).(RoundEndedEvent)
	wantPoints := map[string]int{"a": 10, "b": 8, "c": 6, "d": 5, "e": 5}
	for _, r := range ev.Results.PlayerResults {
		if r.Points != wantPoints[r.PlayerID] {
			t.Errorf("%s: points = %d, want %d", r.PlayerID, r.Points, wantPoints[r.PlayerID])
		}
	}
}

func TestSession_TimestampTieBreaksByArrival(t *testing.T) {
	room := testRoomWith(t, "a", "b")
	s, bc := startSession(t, room, twoQuestions, testConfig())
	bc.next(t, time.Second)

	ts := nowMs() + 100
	s.SubmitAnswer("b", "Bob", "Paris", ts)
	s.SubmitAnswer("a", "Alice", "Paris", ts)

	ev := bc.next(t, time.Second).(RoundEndedEvent)
	byPlayer := make(map[string]PlayerResult)
	for _, r := range ev.Results.PlayerResults {
		byPlayer[r.PlayerID] = r
	}
	// b submitted first, so with equal timestamps b takes rank 0.
	if byPlayer["b"].Points != 10 || byPlayer["a"].Points != 8 {
		t.Errorf("tie-break: b=%d a=%d, want 10 and 8", byPlayer["b"].Points, byPlayer["a"].Points)
	}
}

func TestSession_LateSubmissionIgnored(t *testing.T) {
	room := testRoomWith(t, "a", "b")
	s, bc := startSession(t, room, twoQuestions, testConfig())
	bc.next(t, time.Second)

	base := nowMs()
	s.SubmitAnswer("a", "Alice", "Paris", base+100)
	s.SubmitAnswer("b", "Bob", "Paris", base+200)
	bc.next(t, time.Second) // ROUND_ENDED

	// Round is now grading; this arrives too late.
	s.SubmitAnswer("a", "Alice", "Tokyo", base+300)

	ev, ok := bc.next(t, time.Second).(NewQuestionEvent)
	if !ok || ev.Round != 2 {
		t.Fatalf("expected round 2, got %+v", ev)
	}
}

func TestSession_FullGame(t *testing.T) {
	room := testRoomWith(t, "a")
	s, bc := startSession(t, room, twoQuestions, testConfig())

	// Round 1
	q1 := bc.next(t, time.Second).(NewQuestionEvent)
	if q1.Round != 1 {
		t.Fatalf("Round = %d, want 1", q1.Round)
	}
	s.SubmitAnswer("a", "Alice", "Paris", nowMs())
	r1 := bc.next(t, time.Second).(RoundEndedEvent)
	if r1.Scores["a"] != 10 {
		t.Errorf("round 1 scores = %v", r1.Scores)
	}

	// Round 2
	q2 := bc.next(t, time.Second).(NewQuestionEvent)
	if q2.Round != 2 || q2.Question.ID != "q2" {
		t.Fatalf("unexpected round 2 question: %+v", q2)
	}
	s.SubmitAnswer("a", "Alice", "Tokyo", nowMs())
	r2 := bc.next(t, time.Second).(RoundEndedEvent)
	if r2.Scores["a"] != 20 {
		t.Errorf("scores should accumulate: %v", r2.Scores)
	}

	// Game end
	end, ok := bc.next(t, time.Second).(GameEndedEvent)
	if !ok {
		t.Fatal("expected GAME_ENDED after the last round")
	}
	if end.FinalScores["a"] != 20 {
		t.Errorf("FinalScores = %v", end.FinalScores)
	}
	if room.Status() != rooms.StatusFinished {
		t.Errorf("room status = %q, want finished", room.Status())
	}
	if !s.Finished() {
		t.Error("session should report finished")
	}
}

func TestSession_DisconnectedPlayersAnswerStillScored(t *testing.T) {
	room := testRoomWith(t, "a", "b")
	s, bc := startSession(t, room, twoQuestions, testConfig())
	bc.next(t, time.Second)

	base := nowMs()
	s.SubmitAnswer("b", "Bob", "Paris", base+100)
	room.RemovePlayer("b") // b disconnects after answering
	s.SubmitAnswer("a", "Alice", "Paris", base+200)

	ev := bc.next(t, time.Second).(RoundEndedEvent)
	byPlayer := make(map[string]PlayerResult)
	for _, r := range ev.Results.PlayerResults {
		byPlayer[r.PlayerID] = r
	}
	if r, ok := byPlayer["b"]; !ok || !r.IsCorrect || r.Points != 10 {
		t.Errorf("departed player's answer should still be scored: %+v", r)
	}
	if ev.Scores["b"] != 10 {
		t.Errorf("Scores = %v, want b:10", ev.Scores)
	}
}

func TestSession_StopCancelsCountdown(t *testing.T) {
	room := testRoomWith(t, "a")
	s, bc := startSession(t, room, twoQuestions, testConfig())
	bc.next(t, time.Second)

	s.Stop()
	s.Stop() // idempotent

	bc.expectNone(t, 300*time.Millisecond)
	s.SubmitAnswer("a", "Alice", "Paris", nowMs())
	bc.expectNone(t, 100*time.Millisecond)
}

func TestPointsForRank(t *testing.T) {
	want := []int{10, 8, 6, 5, 5, 5}
	for rank, points := range want {
		if got := pointsForRank(rank); got != points {
			t.Errorf("pointsForRank(%d) = %d, want %d", rank, got, points)
		}
	}
}
