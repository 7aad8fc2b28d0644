package dal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"

	"github.com/johnboyce/golf-outing-manager/internal/logger"
	"github.com/johnboyce/golf-outing-manager/internal/models"
)

const (
	pgPingAttempts = 5
	pgPingTimeout  = 10 * time.Second
)

// PostgresDAL implements OutingDAL using PostgreSQL
type PostgresDAL struct {
	db *sql.DB
}

// NewPostgresDAL connects to PostgreSQL, waiting for the server to accept
// connections, and ensures the schema exists.
func NewPostgresDAL(ctx context.Context, connString string, seedDefaults bool) (*PostgresDAL, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	// Kubernetes DNS can lag behind pod start, so the first pings may fail.
	ping := func() error {
		pingCtx, cancel := context.WithTimeout(ctx, pgPingTimeout)
		defer cancel()
		return db.PingContext(pingCtx)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), pgPingAttempts-1), ctx)
	notify := func(err error, wait time.Duration) {
		logger.Warn("Postgres not ready, retrying", "error", err, "wait", wait)
	}
	if err := backoff.RetryNotify(ping, policy, notify); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres after %d attempts: %w", pgPingAttempts, err)
	}

	dal := &PostgresDAL{db: db}
	if err := dal.initSchema(ctx, seedDefaults); err != nil {
		db.Close()
		return nil, err
	}
	return dal, nil
}

func (p *PostgresDAL) initSchema(ctx context.Context, seedDefaults bool) error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		handicap DOUBLE PRECISION NOT NULL DEFAULT 0,
		nickname TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		prediction TEXT NOT NULL DEFAULT '',
		profile_image TEXT NOT NULL DEFAULT '',
		team_logo TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS courses (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS drafts (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		ts TIMESTAMPTZ NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		payload JSONB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_players_seq ON players(seq);
	CREATE INDEX IF NOT EXISTS idx_courses_seq ON courses(seq);
	CREATE INDEX IF NOT EXISTS idx_drafts_ts ON drafts(ts DESC);
	`
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if !seedDefaults {
		return nil
	}

	var count int
	if err := p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM players").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return p.seedData(ctx)
}

func (p *PostgresDAL) seedData(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, pl := range DefaultPlayers() {
		if err := upsertPlayer(ctx, tx, &pl); err != nil {
			return err
		}
	}
	for _, c := range DefaultCourses() {
		if err := upsertCourse(ctx, tx, &c); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	logger.Info("Seeded Postgres database with defaults")
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertPlayer(ctx context.Context, db execer, pl *models.Player) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO players (id, name, handicap, nickname, bio, prediction, profile_image, team_logo)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			handicap = EXCLUDED.handicap,
			nickname = EXCLUDED.nickname,
			bio = EXCLUDED.bio,
			prediction = EXCLUDED.prediction,
			profile_image = EXCLUDED.profile_image,
			team_logo = EXCLUDED.team_logo,
			updated_at = CURRENT_TIMESTAMP
	`, pl.ID, pl.Name, pl.Handicap, pl.Nickname, pl.Bio, pl.Prediction, pl.ProfileImage, pl.TeamLogo)
	return err
}

func upsertCourse(ctx context.Context, db execer, c *models.Course) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO courses (id, name, description, image)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			image = EXCLUDED.image
	`, c.ID, c.Name, c.Description, c.Image)
	return err
}

func (p *PostgresDAL) ListPlayers(ctx context.Context) ([]models.Player, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, handicap, nickname, bio, prediction, profile_image, team_logo
		FROM players
		ORDER BY seq
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := []models.Player{}
	for rows.Next() {
		var pl models.Player
		if err := rows.Scan(&pl.ID, &pl.Name, &pl.Handicap, &pl.Nickname, &pl.Bio, &pl.Prediction, &pl.ProfileImage, &pl.TeamLogo); err != nil {
			return nil, err
		}
		players = append(players, pl)
	}
	return players, rows.Err()
}

func (p *PostgresDAL) ListCourses(ctx context.Context) ([]models.Course, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, name, description, image FROM courses ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courses := []models.Course{}
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Image); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func (p *PostgresDAL) AddPlayer(ctx context.Context, player *models.Player) (*models.Player, error) {
	if err := preparePlayer(player); err != nil {
		return nil, err
	}
	if err := upsertPlayer(ctx, p.db, player); err != nil {
		return nil, err
	}
	saved := *player
	return &saved, nil
}

func (p *PostgresDAL) AddCourse(ctx context.Context, course *models.Course) (*models.Course, error) {
	if err := prepareCourse(course); err != nil {
		return nil, err
	}
	if err := upsertCourse(ctx, p.db, course); err != nil {
		return nil, err
	}
	saved := *course
	return &saved, nil
}

func (p *PostgresDAL) SetPlayerHandicap(ctx context.Context, id string, handicap float64) (*models.Player, error) {
	if err := checkHandicap(handicap); err != nil {
		return nil, err
	}

	var pl models.Player
	err := p.db.QueryRowContext(ctx, `
		UPDATE players SET handicap = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
		RETURNING id, name, handicap, nickname, bio, prediction, profile_image, team_logo
	`, handicap, id).Scan(&pl.ID, &pl.Name, &pl.Handicap, &pl.Nickname, &pl.Bio, &pl.Prediction, &pl.ProfileImage, &pl.TeamLogo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &pl, nil
}

func (p *PostgresDAL) SaveDraft(ctx context.Context, draft *models.CommissionedDraft) error {
	if draft == nil {
		return fmt.Errorf("%w: draft is required", ErrInvalidRecord)
	}
	if draft.ID == "" {
		draft.ID = genID()
	}
	if draft.Timestamp.IsZero() {
		draft.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to encode draft: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO drafts (id, ts, description, payload) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET ts = EXCLUDED.ts, description = EXCLUDED.description, payload = EXCLUDED.payload
	`, draft.ID, draft.Timestamp, draft.Description, string(payload))
	return err
}

func (p *PostgresDAL) LatestDraft(ctx context.Context) (*models.CommissionedDraft, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx, `SELECT payload FROM drafts ORDER BY ts DESC, seq DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("saved draft: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var draft models.CommissionedDraft
	if err := json.Unmarshal(payload, &draft); err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}
	return &draft, nil
}

// DB exposes the underlying handle for health checks.
func (p *PostgresDAL) DB() *sql.DB {
	return p.db
}

func (p *PostgresDAL) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}
