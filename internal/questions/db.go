package questions

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"polyculture/internal/metrics"
)

// DBSource fetches questions from PostgreSQL, by pool or by themes. Query
// failures fall back to the built-in set; only a failed theme scan yields an
// empty result, matching the documented halt-and-report path.
type DBSource struct {
	db  *sql.DB
	log *slog.Logger
}

func NewDBSource(db *sql.DB, log *slog.Logger) *DBSource {
	return &DBSource{db: db, log: log}
}

func Connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return db, nil
}

func (s *DBSource) Fetch(ctx context.Context, c Criteria, count int) []Question {
	if c.PoolID > 0 {
		return s.fetchByPool(ctx, c.PoolID, count)
	}
	return s.fetchByThemes(ctx, c.Themes, count)
}

func (s *DBSource) fetchByPool(ctx context.Context, poolID, count int) []Question {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.question, q.answer, COALESCE(t.name, 'Général'),
		       COALESCE(q.question_type, 'text'), COALESCE(q.media, '')
		FROM QuestionPool_Questions pqq
		JOIN Questions q ON pqq.question_id = q.id
		LEFT JOIN Subthemes s ON q.subtheme_id = s.id
		LEFT JOIN Themes t ON s.theme_id = t.id
		WHERE pqq.pool_id = $1
		ORDER BY RANDOM()
		LIMIT $2
	`, poolID, count)
	if err != nil {
		s.log.Error("pool query failed, using fallback questions", "pool_id", poolID, "error", err)
		metrics.QuestionFallbacks.Inc()
		return Fallback(count)
	}
	defer rows.Close()

	qs, err := scanQuestions(rows)
	if err != nil {
		s.log.Error("pool scan failed, using fallback questions", "pool_id", poolID, "error", err)
		metrics.QuestionFallbacks.Inc()
		return Fallback(count)
	}
	return qs
}

func (s *DBSource) fetchByThemes(ctx context.Context, themes []string, count int) []Question {
	query := `
		SELECT q.id, q.question, q.answer, COALESCE(t.name, 'Général'),
		       COALESCE(q.question_type, 'text'), COALESCE(q.media, '')
		FROM Questions q
		LEFT JOIN Subthemes s ON q.subtheme_id = s.id
		LEFT JOIN Themes t ON s.theme_id = t.id
	`
	args := []any{}
	if len(themes) > 0 {
		query += " WHERE t.name = ANY($1)"
		args = append(args, pq.Array(themes))
	}
	query += fmt.Sprintf(" ORDER BY RANDOM() LIMIT $%d", len(args)+1)
	args = append(args, count)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.log.Error("theme query failed", "themes", themes, "error", err)
		return nil
	}
	defer rows.Close()

	qs, err := scanQuestions(rows)
	if err != nil {
		s.log.Error("theme scan failed", "themes", themes, "error", err)
		return nil
	}
	if len(qs) == 0 {
		s.log.Warn("no questions found for themes, using fallback", "themes", themes)
		metrics.QuestionFallbacks.Inc()
		return Fallback(count)
	}
	return qs
}

func scanQuestions(rows *sql.Rows) ([]Question, error) {
	var qs []Question
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.Prompt, &q.Answer, &q.Theme, &q.Type, &q.Media); err != nil {
			return nil, fmt.Errorf("scanning question: %w", err)
		}
		qs = append(qs, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating questions: %w", err)
	}
	return qs, nil
}
