package dal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/johnboyce/golf-outing-manager/internal/logger"
	"github.com/johnboyce/golf-outing-manager/internal/models"
)

// SQLiteDAL implements OutingDAL using SQLite
type SQLiteDAL struct {
	db *sql.DB
}

// NewSQLiteDAL opens (or creates) the database at dbPath. An empty database
// is seeded with the default courses and sample players when seedDefaults
// is set.
func NewSQLiteDAL(dbPath string, seedDefaults bool) (*SQLiteDAL, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	dal := &SQLiteDAL{db: db}
	if err := dal.initSchema(context.Background(), seedDefaults); err != nil {
		db.Close()
		return nil, err
	}
	return dal, nil
}

func (s *SQLiteDAL) initSchema(ctx context.Context, seedDefaults bool) error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		handicap REAL NOT NULL DEFAULT 0,
		nickname TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		prediction TEXT NOT NULL DEFAULT '',
		profile_image TEXT NOT NULL DEFAULT '',
		team_logo TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS courses (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS drafts (
		id TEXT PRIMARY KEY,
		ts INTEGER NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		payload TEXT NOT NULL
	);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if !seedDefaults {
		return nil
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM players").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return s.seedData(ctx)
}

func (s *SQLiteDAL) seedData(ctx context.Context) error {
	for _, p := range DefaultPlayers() {
		if _, err := s.AddPlayer(ctx, &p); err != nil {
			return err
		}
	}
	for _, c := range DefaultCourses() {
		if _, err := s.AddCourse(ctx, &c); err != nil {
			return err
		}
	}
	logger.Info("Seeded SQLite database with defaults")
	return nil
}

func (s *SQLiteDAL) ListPlayers(ctx context.Context) ([]models.Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, handicap, nickname, bio, prediction, profile_image, team_logo
		FROM players
		ORDER BY rowid
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	players := []models.Player{}
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Handicap, &p.Nickname, &p.Bio, &p.Prediction, &p.ProfileImage, &p.TeamLogo); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *SQLiteDAL) ListCourses(ctx context.Context) ([]models.Course, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description, image FROM courses ORDER BY rowid`)
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

func (s *SQLiteDAL) AddPlayer(ctx context.Context, player *models.Player) (*models.Player, error) {
	if err := preparePlayer(player); err != nil {
		return nil, err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players (id, name, handicap, nickname, bio, prediction, profile_image, team_logo)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			handicap = excluded.handicap,
			nickname = excluded.nickname,
			bio = excluded.bio,
			prediction = excluded.prediction,
			profile_image = excluded.profile_image,
			team_logo = excluded.team_logo
	`, player.ID, player.Name, player.Handicap, player.Nickname, player.Bio, player.Prediction, player.ProfileImage, player.TeamLogo)
	if err != nil {
		return nil, err
	}
	saved := *player
	return &saved, nil
}

func (s *SQLiteDAL) AddCourse(ctx context.Context, course *models.Course) (*models.Course, error) {
	if err := prepareCourse(course); err != nil {
		return nil, err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO courses (id, name, description, image)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			image = excluded.image
	`, course.ID, course.Name, course.Description, course.Image)
	if err != nil {
		return nil, err
	}
	saved := *course
	return &saved, nil
}

func (s *SQLiteDAL) SetPlayerHandicap(ctx context.Context, id string, handicap float64) (*models.Player, error) {
	if err := checkHandicap(handicap); err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE players SET handicap = ? WHERE id = ?`, handicap, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("player %s: %w", id, ErrNotFound)
	}

	var p models.Player
	err = s.db.QueryRowContext(ctx, `
		SELECT id, name, handicap, nickname, bio, prediction, profile_image, team_logo
		FROM players WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.Handicap, &p.Nickname, &p.Bio, &p.Prediction, &p.ProfileImage, &p.TeamLogo)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteDAL) SaveDraft(ctx context.Context, draft *models.CommissionedDraft) error {
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
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts (id, ts, description, payload) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET ts = excluded.ts, description = excluded.description, payload = excluded.payload
	`, draft.ID, draft.Timestamp.UnixNano(), draft.Description, string(payload))
	return err
}

func (s *SQLiteDAL) LatestDraft(ctx context.Context) (*models.CommissionedDraft, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM drafts ORDER BY ts DESC, rowid DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("saved draft: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var draft models.CommissionedDraft
	if err := json.Unmarshal([]byte(payload), &draft); err != nil {
		return nil, fmt.Errorf("failed to decode draft: %w", err)
	}
	return &draft, nil
}

// DB exposes the underlying handle for health checks.
func (s *SQLiteDAL) DB() *sql.DB {
	return s.db
}

func (s *SQLiteDAL) Close() error {
	return s.db.Close()
}
