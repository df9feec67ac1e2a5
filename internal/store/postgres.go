package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spigell/cv-matcher/internal/pipeline"
)

const schema = `CREATE TABLE IF NOT EXISTS match_history (
	match_id           TEXT PRIMARY KEY,
	candidate_id       TEXT NOT NULL,
	candidate_name     TEXT,
	job_id             TEXT NOT NULL,
	job_title          TEXT NOT NULL,
	company_name       TEXT,
	skill_score        DOUBLE PRECISION NOT NULL,
	experience_score   DOUBLE PRECISION NOT NULL,
	education_score    DOUBLE PRECISION NOT NULL,
	keyword_score      DOUBLE PRECISION NOT NULL,
	rule_score         DOUBLE PRECISION NOT NULL,
	model_score        DOUBLE PRECISION,
	final_score        DOUBLE PRECISION NOT NULL,
	decision           TEXT NOT NULL,
	confidence         DOUBLE PRECISION NOT NULL,
	reason             TEXT NOT NULL,
	explanation        TEXT,
	matched_skills     TEXT[] NOT NULL,
	missing_skills     TEXT[] NOT NULL,
	processing_time_ms DOUBLE PRECISION NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL
)`

const insertRecord = `INSERT INTO match_history (
	match_id, candidate_id, candidate_name, job_id, job_title, company_name,
	skill_score, experience_score, education_score, keyword_score, rule_score, model_score, final_score,
	decision, confidence, reason, explanation, matched_skills, missing_skills,
	processing_time_ms, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
ON CONFLICT (match_id) DO NOTHING`

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore writes records into the match_history table.
type PostgresStore struct {
	db    execer
	close func()
}

// ConnectPostgres opens a connection pool, verifies it and creates the table if needed.
func ConnectPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{db: pool, close: pool.Close}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create match_history table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, res pipeline.MatchResult) error {
	r := NewRecord(res)
	matched, missing := r.MatchedSkills, r.MissingSkills
	if matched == nil {
		matched = []string{}
	}
	if missing == nil {
		missing = []string{}
	}

	_, err := s.db.Exec(ctx, insertRecord,
		r.MatchID, r.CandidateID, nullable(r.CandidateName), r.JobID, r.JobTitle, nullable(r.Company),
		r.SkillScore, r.ExpScore, r.EduScore, r.KeywordScore, r.RuleScore, r.ModelScore, r.FinalScore,
		r.Decision, r.Confidence, r.Reason, nullable(r.Explanation), matched, missing,
		r.LatencyMillis, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert match %s: %w", r.MatchID, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
