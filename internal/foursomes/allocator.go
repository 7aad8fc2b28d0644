// Package foursomes splits a drafted roster into per-course foursomes.
//
// Allocation is greedy: the roster is shuffled, then for each course
// foursomes are built from the front of the remaining pool. Each cart partner
// is chosen by the first matching tier in partnerTiers. Team mixing and fresh
// pairings are preferences only; the last tier always matches, so allocation
// never stalls as the pool shrinks.
//
// Full foursomes are spread across the courses in order. When the roster is
// not a multiple of four, the remaining one to three players form an
// undersized final foursome on the last course, filling cart one first.
package foursomes

import (
	"errors"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/johnboyce/golf-outing-manager/internal/logger"
	"github.com/johnboyce/golf-outing-manager/internal/models"
)

// ErrNoCourses is returned when there is nowhere to place players.
var ErrNoCourses = errors.New("no courses to allocate players to")

const (
	cartSize     = 2
	foursomeSize = 2 * cartSize
)

// Option configures an Allocator.
type Option func(*Allocator)

// WithSeed makes every shuffle reproducible.
func WithSeed(seed uint64) Option {
	return func(a *Allocator) {
		a.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// WithClock overrides the GeneratedAt timestamp source.
func WithClock(now func() time.Time) Option {
	return func(a *Allocator) {
		a.now = now
	}
}

// Allocator builds assignments. It is not safe for concurrent use.
type Allocator struct {
	rng *rand.Rand
	now func() time.Time
}

// NewAllocator returns an allocator seeded from the runtime's random source
// unless WithSeed is given.
func NewAllocator(opts ...Option) *Allocator {
	a := &Allocator{
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Allocate places every player into exactly one cart. history holds pairings
// to avoid; it may be nil and is not modified.
func (a *Allocator) Allocate(players []models.Player, courses []models.Course, history Pairings) (*models.Assignment, error) {
	if len(courses) == 0 {
		return nil, ErrNoCourses
	}

	pool := slices.Clone(players)
	Shuffle(a.rng, pool)
	seen := history.Clone()

	assignment := &models.Assignment{
		ID:          uuid.NewString(),
		GeneratedAt: a.now().UTC(),
		CourseOrder: make([]string, 0, len(courses)),
		Courses:     make(map[string][]models.Foursome, len(courses)),
	}

	full := len(pool) / foursomeSize
	for i, course := range courses {
		count := full / len(courses)
		if i < full%len(courses) {
			count++
		}

		groups := make([]models.Foursome, 0, count+1)
		for range count {
			groups = append(groups, models.Foursome{
				CartOne: nextCart(&pool, seen),
				CartTwo: nextCart(&pool, seen),
			})
		}
		if i == len(courses)-1 && len(pool) > 0 {
			groups = append(groups, models.Foursome{
				CartOne: nextCart(&pool, seen),
				CartTwo: nextCart(&pool, seen),
			})
		}

		assignment.CourseOrder = append(assignment.CourseOrder, course.ID)
		assignment.Courses[course.ID] = groups
		logger.Debug("Course allocated", logger.FieldCourseID, course.ID, logger.FieldCount, len(groups))
	}

	return assignment, nil
}

// nextCart seats the player at the front of the pool and, when anyone is
// left, the best partner for them.
func nextCart(pool *[]models.Player, seen Pairings) models.Cart {
	if len(*pool) == 0 {
		return models.Cart{}
	}
	p := (*pool)[0]
	*pool = (*pool)[1:]
	if len(*pool) == 0 {
		return models.Cart{p}
	}

	i := partnerIndex(p, *pool, seen)
	q := (*pool)[i]
	*pool = slices.Delete(*pool, i, i+1)
	seen.Add(p.ID, q.ID)
	return models.Cart{p, q}
}

// tier reports whether q is an acceptable cart partner for p.
type tier func(p, q models.Player, seen Pairings) bool

// partnerTiers are tried in order; the first tier with any match wins and
// the earliest matching candidate in the pool is taken.
var partnerTiers = []tier{
	func(p, q models.Player, seen Pairings) bool { return opposite(p, q) && !seen.Has(p.ID, q.ID) },
	func(p, q models.Player, _ Pairings) bool { return opposite(p, q) },
	func(models.Player, models.Player, Pairings) bool { return true },
}

func opposite(p, q models.Player) bool {
	return p.Team.Valid() && q.Team.Valid() && p.Team != q.Team
}

func partnerIndex(p models.Player, candidates []models.Player, seen Pairings) int {
	for _, match := range partnerTiers {
		for i, q := range candidates {
			if match(p, q, seen) {
				return i
			}
		}
	}
	return 0
}

// Shuffle permutes s uniformly with a backward Fisher-Yates pass.
func Shuffle[T any](r *rand.Rand, s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}
