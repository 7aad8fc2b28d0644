package dal

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/johnboyce/golf-outing-manager/internal/models"
)

const (
	minHandicap = -10
	maxHandicap = 54
)

func genID() string {
	return uuid.NewString()
}

// preparePlayer validates p and fills in a missing id.
func preparePlayer(p *models.Player) error {
	if p == nil {
		return fmt.Errorf("%w: player is required", ErrInvalidRecord)
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("%w: player name is required", ErrInvalidRecord)
	}
	if err := checkHandicap(p.Handicap); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = genID()
	}
	// Team membership belongs to a draft, never to the stored record.
	p.Team = ""
	return nil
}

func prepareCourse(c *models.Course) error {
	if c == nil {
		return fmt.Errorf("%w: course is required", ErrInvalidRecord)
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("%w: course name is required", ErrInvalidRecord)
	}
	if c.ID == "" {
		c.ID = genID()
	}
	return nil
}

func checkHandicap(h float64) error {
	if h < minHandicap || h > maxHandicap {
		return fmt.Errorf("%w: handicap %.1f outside %d..%d", ErrInvalidRecord, h, minHandicap, maxHandicap)
	}
	return nil
}

// DefaultCourses are the four courses of the outing.
func DefaultCourses() []models.Course {
	return []models.Course{
		{
			ID:          "bear-trap-dunes",
			Name:        "Bear Trap Dunes",
			Description: "A spectacular course featuring coastal views and challenging dunes. Perfect for golfers of all skill levels.",
			Image:       "https://www.beartrapdunes.com/wp-content/uploads/sites/8962/2023/06/home-main-1.jpg",
		},
		{
			ID:          "war-admiral",
			Name:        "War Admiral",
			Description: "Inspired by the famous thoroughbred, this course offers a mix of strategy and precision with its unique design.",
			Image:       "https://www.pamsgolfoc.com/wp-content/uploads/2020/01/waradmiral-1.jpg",
		},
		{
			ID:          "man-o-war",
			Name:        "Man O' War",
			Description: "A thrilling challenge for golfers, with picturesque views and water hazards adding to its allure.",
			Image:       "https://www.ruarkgolf.com/app/uploads/2018/08/MOW-30-1024x576.jpg",
		},
		{
			ID:          "lighthouse-sound",
			Name:        "Lighthouse Sound",
			Description: "Known for its incredible views of the bay and a distinctive setup that challenges even the best golfers.",
			Image:       "https://www.ruarkgolf.com/app/uploads/2018/08/RP-06_DJI_0062.jpg",
		},
	}
}

// DefaultPlayers is a sample field for development.
func DefaultPlayers() []models.Player {
	return []models.Player{
		{ID: "player-1", Name: "John Boyce", Nickname: "Boycey", Handicap: 12.4, Prediction: "Breaks 85 at Bear Trap"},
		{ID: "player-2", Name: "Mike Sullivan", Nickname: "Sully", Handicap: 8.1, Prediction: "Longest drive of the trip"},
		{ID: "player-3", Name: "Dave Kowalski", Nickname: "Ski", Handicap: 18.7},
		{ID: "player-4", Name: "Chris Moreno", Nickname: "Mo", Handicap: 15.2, Bio: "Never met a bunker he liked"},
		{ID: "player-5", Name: "Pat Riley", Nickname: "Coach", Handicap: 21.0},
		{ID: "player-6", Name: "Tom Becker", Nickname: "Beck", Handicap: 6.9, Prediction: "Wins the skins game"},
		{ID: "player-7", Name: "Steve Lang", Nickname: "Lefty", Handicap: 10.3},
		{ID: "player-8", Name: "Rob Jennings", Nickname: "Jenny", Handicap: 24.5, Bio: "Here for the nineteenth hole"},
	}
}
