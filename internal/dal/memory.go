package dal

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/johnboyce/golf-outing-manager/internal/models"
)

// MemoryDAL implements OutingDAL using in-memory storage
type MemoryDAL struct {
	mu      sync.RWMutex
	players []models.Player
	courses []models.Course
	drafts  []*models.CommissionedDraft
}

// NewMemoryDAL creates an in-memory store holding the default courses and
// sample players.
func NewMemoryDAL() *MemoryDAL {
	return &MemoryDAL{
		players: DefaultPlayers(),
		courses: DefaultCourses(),
	}
}

// NewEmptyMemoryDAL creates an in-memory store with no records.
func NewEmptyMemoryDAL() *MemoryDAL {
	return &MemoryDAL{}
}

func (m *MemoryDAL) ListPlayers(ctx context.Context) ([]models.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Player, len(m.players))
	copy(out, m.players)
	return out, nil
}

func (m *MemoryDAL) ListCourses(ctx context.Context) ([]models.Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Course, len(m.courses))
	copy(out, m.courses)
	return out, nil
}

func (m *MemoryDAL) AddPlayer(ctx context.Context, player *models.Player) (*models.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := preparePlayer(player); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if i := slices.IndexFunc(m.players, func(p models.Player) bool { return p.ID == player.ID }); i >= 0 {
		m.players[i] = *player
	} else {
		m.players = append(m.players, *player)
	}
	saved := *player
	return &saved, nil
}

func (m *MemoryDAL) AddCourse(ctx context.Context, course *models.Course) (*models.Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := prepareCourse(course); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if i := slices.IndexFunc(m.courses, func(c models.Course) bool { return c.ID == course.ID }); i >= 0 {
		m.courses[i] = *course
	} else {
		m.courses = append(m.courses, *course)
	}
	saved := *course
	return &saved, nil
}

func (m *MemoryDAL) SetPlayerHandicap(ctx context.Context, id string, handicap float64) (*models.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkHandicap(handicap); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.players {
		if m.players[i].ID == id {
			m.players[i].Handicap = handicap
			p := m.players[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("player %s: %w", id, ErrNotFound)
}

func (m *MemoryDAL) SaveDraft(ctx context.Context, draft *models.CommissionedDraft) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if draft == nil {
		return fmt.Errorf("%w: draft is required", ErrInvalidRecord)
	}
	if draft.ID == "" {
		draft.ID = genID()
	}
	if draft.Timestamp.IsZero() {
		draft.Timestamp = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if i := slices.IndexFunc(m.drafts, func(d *models.CommissionedDraft) bool { return d.ID == draft.ID }); i >= 0 {
		m.drafts[i] = draft.Clone()
		return nil
	}
	m.drafts = append(m.drafts, draft.Clone())
	return nil
}

func (m *MemoryDAL) LatestDraft(ctx context.Context) (*models.CommissionedDraft, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.drafts) == 0 {
		return nil, fmt.Errorf("saved draft: %w", ErrNotFound)
	}
	latest := m.drafts[0]
	for _, d := range m.drafts[1:] {
		if !d.Timestamp.Before(latest.Timestamp) {
			latest = d
		}
	}
	return latest.Clone(), nil
}

func (m *MemoryDAL) Close() error {
	return nil
}
