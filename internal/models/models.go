package models

import "time"

// TeamID identifies one of the two drafting teams
type TeamID string

const (
	TeamOne TeamID = "teamOne"
	TeamTwo TeamID = "teamTwo"
)

// Other returns the opposing team. The zero value has no opponent.
func (t TeamID) Other() TeamID {
	switch t {
	case TeamOne:
		return TeamTwo
	case TeamTwo:
		return TeamOne
	default:
		return ""
	}
}

// Valid reports whether t names one of the two teams.
func (t TeamID) Valid() bool {
	return t == TeamOne || t == TeamTwo
}

// Player represents a golfer registered for the outing
type Player struct {
	ID           string  `json:"id" yaml:"id"`
	Name         string  `json:"name" yaml:"name"`
	Handicap     float64 `json:"handicap" yaml:"handicap"`
	Nickname     string  `json:"nickname,omitempty" yaml:"nickname"`
	Bio          string  `json:"bio,omitempty" yaml:"bio"`
	Prediction   string  `json:"prediction,omitempty" yaml:"prediction"`
	ProfileImage string  `json:"profileImage,omitempty" yaml:"profileImage"`
	TeamLogo     string  `json:"teamLogo,omitempty" yaml:"teamLogo"`
	Team         TeamID  `json:"team,omitempty" yaml:"-"`
}

// DisplayName prefers the nickname when one is set.
func (p Player) DisplayName() string {
	if p.Nickname != "" {
		return p.Nickname
	}
	return p.Name
}

// Course represents a golf course played during the outing
type Course struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Image       string `json:"image" yaml:"image"`
}

// Team is one side of the draft. The captain is always Players[0].
type Team struct {
	Name    string   `json:"name"`
	Captain *Player  `json:"captain"`
	Players []Player `json:"players"`
}

// DraftStatus is the lifecycle phase of a draft
type DraftStatus string

const (
	DraftNotStarted DraftStatus = "notStarted"
	DraftInProgress DraftStatus = "inProgress"
	DraftCompleted  DraftStatus = "completed"
)

// DraftSnapshot is a read-only copy of the draft state handed to the
// presentation layer.
type DraftSnapshot struct {
	Status           DraftStatus `json:"status"`
	RosterLoaded     bool        `json:"rosterLoaded"`
	TeamOne          Team        `json:"teamOne"`
	TeamTwo          Team        `json:"teamTwo"`
	AvailablePlayers []Player    `json:"availablePlayers"`
	CurrentTurn      TeamID      `json:"currentTurn,omitempty"`
	PickNumber       int         `json:"pickNumber"`
	Started          bool        `json:"started"`
	Completed        bool        `json:"completed"`
}

// Team returns the roster for id.
func (s DraftSnapshot) Team(id TeamID) Team {
	if id == TeamTwo {
		return s.TeamTwo
	}
	return s.TeamOne
}

// Cart holds at most two players riding together
type Cart []Player

// Foursome is a playing group of two carts
type Foursome struct {
	CartOne Cart `json:"cartOne"`
	CartTwo Cart `json:"cartTwo"`
}

// Players returns the members of both carts in seating order.
func (f Foursome) Players() []Player {
	out := make([]Player, 0, len(f.CartOne)+len(f.CartTwo))
	out = append(out, f.CartOne...)
	return append(out, f.CartTwo...)
}

// Assignment maps each course to its foursomes
type Assignment struct {
	ID          string                `json:"id"`
	GeneratedAt time.Time             `json:"generatedAt"`
	CourseOrder []string              `json:"courseOrder"`
	Courses     map[string][]Foursome `json:"courses"`
}

// clone copies c. An empty cart stays an empty list rather than null.
func (c Cart) clone() Cart {
	if c == nil {
		return nil
	}
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// Clone returns a deep copy so callers cannot mutate a stored assignment.
func (a *Assignment) Clone() *Assignment {
	if a == nil {
		return nil
	}
	out := &Assignment{
		ID:          a.ID,
		GeneratedAt: a.GeneratedAt,
		CourseOrder: append([]string(nil), a.CourseOrder...),
		Courses:     make(map[string][]Foursome, len(a.Courses)),
	}
	for id, groups := range a.Courses {
		copied := make([]Foursome, len(groups))
		for i, g := range groups {
			copied[i] = Foursome{
				CartOne: g.CartOne.clone(),
				CartTwo: g.CartTwo.clone(),
			}
		}
		out.Courses[id] = copied
	}
	return out
}

// CommissionedDraft is the saved record of a finished draft and its foursomes
type CommissionedDraft struct {
	ID          string      `json:"id"`
	Timestamp   time.Time   `json:"timestamp"`
	Description string      `json:"description"`
	TeamOne     Team        `json:"teamOne"`
	TeamTwo     Team        `json:"teamTwo"`
	Assignment  *Assignment `json:"assignment"`
}

// Clone returns a deep copy of the team.
func (t Team) Clone() Team {
	out := Team{Name: t.Name, Players: append([]Player(nil), t.Players...)}
	if t.Captain != nil {
		c := *t.Captain
		out.Captain = &c
	}
	return out
}

// Clone returns a deep copy of the record.
func (d *CommissionedDraft) Clone() *CommissionedDraft {
	if d == nil {
		return nil
	}
	return &CommissionedDraft{
		ID:          d.ID,
		Timestamp:   d.Timestamp,
		Description: d.Description,
		TeamOne:     d.TeamOne.Clone(),
		TeamTwo:     d.TeamTwo.Clone(),
		Assignment:  d.Assignment.Clone(),
	}
}
