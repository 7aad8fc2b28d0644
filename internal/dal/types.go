package dal

import (
	"context"
	"errors"

	"github.com/johnboyce/golf-outing-manager/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRecord is returned when a player or course fails validation.
	ErrInvalidRecord = errors.New("invalid record")
)

// OutingDAL defines the interface for the outing's data access layer.
// Players and courses are listed in registration order.
type OutingDAL interface {
	ListPlayers(ctx context.Context) ([]models.Player, error)
	ListCourses(ctx context.Context) ([]models.Course, error)
	// AddPlayer inserts or replaces a player by id, assigning one when empty.
	AddPlayer(ctx context.Context, player *models.Player) (*models.Player, error)
	// AddCourse inserts or replaces a course by id, assigning one when empty.
	AddCourse(ctx context.Context, course *models.Course) (*models.Course, error)
	SetPlayerHandicap(ctx context.Context, id string, handicap float64) (*models.Player, error)
	SaveDraft(ctx context.Context, draft *models.CommissionedDraft) error
	// LatestDraft returns ErrNotFound when nothing has been saved.
	LatestDraft(ctx context.Context) (*models.CommissionedDraft, error)
	Close() error
}
