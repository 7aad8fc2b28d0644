package dal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/johnboyce/golf-outing-manager/internal/models"
)

var (
	_ OutingDAL = (*MemoryDAL)(nil)
	_ OutingDAL = (*SQLiteDAL)(nil)
	_ OutingDAL = (*PostgresDAL)(nil)
)

type backend struct {
	name string
	open func(t *testing.T, seed bool) OutingDAL
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T, seed bool) OutingDAL {
			if seed {
				return NewMemoryDAL()
			}
			return NewEmptyMemoryDAL()
		}},
		{"sqlite", func(t *testing.T, seed bool) OutingDAL {
			t.Helper()
			s, err := NewSQLiteDAL(filepath.Join(t.TempDir(), "outing.db"), seed)
			if err != nil {
				t.Fatalf("NewSQLiteDAL() failed: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		}},
	}
}

func TestSeededDefaults(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t, true)

			courses, err := store.ListCourses(ctx)
			if err != nil {
				t.Fatalf("ListCourses() failed: %v", err)
			}
			want := []string{"bear-trap-dunes", "war-admiral", "man-o-war", "lighthouse-sound"}
			if len(courses) != len(want) {
				t.Fatalf("expected %d courses, got %d", len(want), len(courses))
			}
			for i, id := range want {
				if courses[i].ID != id {
					t.Errorf("course %d: expected %s, got %s", i, id, courses[i].ID)
				}
			}

			players, err := store.ListPlayers(ctx)
			if err != nil {
				t.Fatalf("ListPlayers() failed: %v", err)
			}
			if len(players) != len(DefaultPlayers()) {
				t.Errorf("expected %d players, got %d", len(DefaultPlayers()), len(players))
			}
		})
	}
}

func TestAddPlayerUpsertsInOrder(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t, false)

			first, err := store.AddPlayer(ctx, &models.Player{Name: "  Ada  ", Handicap: 4, Team: models.TeamOne})
			if err != nil {
				t.Fatalf("AddPlayer() failed: %v", err)
			}
			if first.ID == "" {
				t.Fatal("expected generated id")
			}
			if first.Name != "Ada" {
				t.Errorf("expected trimmed name, got %q", first.Name)
			}
			if first.Team != "" {
				t.Errorf("team must not be stored, got %q", first.Team)
			}

			if _, err := store.AddPlayer(ctx, &models.Player{ID: "p2", Name: "Bo", Handicap: 10}); err != nil {
				t.Fatalf("AddPlayer() failed: %v", err)
			}
			if _, err := store.AddPlayer(ctx, &models.Player{ID: first.ID, Name: "Ada L", Handicap: 3.5, Nickname: "Countess"}); err != nil {
				t.Fatalf("AddPlayer() update failed: %v", err)
			}

			players, err := store.ListPlayers(ctx)
			if err != nil {
				t.Fatalf("ListPlayers() failed: %v", err)
			}
			if len(players) != 2 {
				t.Fatalf("expected 2 players, got %d", len(players))
			}
			if players[0].ID != first.ID || players[0].Nickname != "Countess" || players[0].Handicap != 3.5 {
				t.Errorf("expected updated first player in place, got %+v", players[0])
			}
			if players[1].ID != "p2" {
				t.Errorf("expected p2 second, got %s", players[1].ID)
			}
		})
	}
}

func TestAddRejectsInvalidRecords(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t, false)

			tests := []struct {
				name string
				call func() error
			}{
				{"nameless player", func() error {
					_, err := store.AddPlayer(ctx, &models.Player{Handicap: 1})
					return err
				}},
				{"handicap too high", func() error {
					_, err := store.AddPlayer(ctx, &models.Player{Name: "X", Handicap: 60})
					return err
				}},
				{"handicap too low", func() error {
					_, err := store.AddPlayer(ctx, &models.Player{Name: "X", Handicap: -11})
					return err
				}},
				{"nil player", func() error {
					_, err := store.AddPlayer(ctx, nil)
					return err
				}},
				{"nameless course", func() error {
					_, err := store.AddCourse(ctx, &models.Course{Description: "no name"})
					return err
				}},
				{"nil draft", func() error {
					return store.SaveDraft(ctx, nil)
				}},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					if err := tt.call(); !errors.Is(err, ErrInvalidRecord) {
						t.Errorf("expected ErrInvalidRecord, got %v", err)
					}
				})
			}
		})
	}
}

func TestSetPlayerHandicap(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t, true)

			p, err := store.SetPlayerHandicap(ctx, "player-3", 14.2)
			if err != nil {
				t.Fatalf("SetPlayerHandicap() failed: %v", err)
			}
			if p.Handicap != 14.2 || p.Name != "Dave Kowalski" {
				t.Errorf("unexpected player: %+v", p)
			}

			if _, err := store.SetPlayerHandicap(ctx, "ghost", 5); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
			if _, err := store.SetPlayerHandicap(ctx, "player-3", 99); !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("expected ErrInvalidRecord, got %v", err)
			}
		})
	}
}

func sampleDraft(desc string, ts time.Time) *models.CommissionedDraft {
	one := models.Player{ID: "player-1", Name: "John Boyce", Team: models.TeamOne}
	two := models.Player{ID: "player-2", Name: "Mike Sullivan", Team: models.TeamTwo}
	return &models.CommissionedDraft{
		Timestamp:   ts,
		Description: desc,
		TeamOne:     models.Team{Name: "Team Boycey", Captain: &one, Players: []models.Player{one}},
		TeamTwo:     models.Team{Name: "Team Sully", Captain: &two, Players: []models.Player{two}},
		Assignment: &models.Assignment{
			ID:          "a1",
			GeneratedAt: ts,
			CourseOrder: []string{"war-admiral"},
			Courses: map[string][]models.Foursome{
				"war-admiral": {{CartOne: models.Cart{one, two}, CartTwo: models.Cart{}}},
			},
		},
	}
}

func TestLatestDraft(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			store := b.open(t, false)

			if _, err := store.LatestDraft(ctx); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound on empty store, got %v", err)
			}

			base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
			older := sampleDraft("friday", base)
			newer := sampleDraft("saturday", base.Add(time.Hour))
			if err := store.SaveDraft(ctx, newer); err != nil {
				t.Fatalf("SaveDraft() failed: %v", err)
			}
			if err := store.SaveDraft(ctx, older); err != nil {
				t.Fatalf("SaveDraft() failed: %v", err)
			}
			if newer.ID == "" || older.ID == "" {
				t.Fatal("expected ids to be assigned")
			}

			latest, err := store.LatestDraft(ctx)
			if err != nil {
				t.Fatalf("LatestDraft() failed: %v", err)
			}
			if latest.Description != "saturday" {
				t.Errorf("expected newest draft, got %q", latest.Description)
			}
			if latest.TeamOne.Captain == nil || latest.TeamOne.Captain.ID != "player-1" {
				t.Errorf("captain not round-tripped: %+v", latest.TeamOne)
			}
			if got := latest.Assignment.Courses["war-admiral"]; len(got) != 1 || len(got[0].CartOne) != 2 {
				t.Errorf("assignment not round-tripped: %+v", latest.Assignment)
			}

			// Re-saving under the same id replaces the record.
			older.Timestamp = base.Add(2 * time.Hour)
			older.Description = "sunday"
			if err := store.SaveDraft(ctx, older); err != nil {
				t.Fatalf("SaveDraft() failed: %v", err)
			}
			latest, err = store.LatestDraft(ctx)
			if err != nil {
				t.Fatalf("LatestDraft() failed: %v", err)
			}
			if latest.ID != older.ID || latest.Description != "sunday" {
				t.Errorf("expected replaced draft, got %q %q", latest.ID, latest.Description)
			}
		})
	}
}

func TestSaveDraftStampsTimestamp(t *testing.T) {
	store := NewEmptyMemoryDAL()
	d := sampleDraft("now", time.Time{})
	if err := store.SaveDraft(context.Background(), d); err != nil {
		t.Fatalf("SaveDraft() failed: %v", err)
	}
	if d.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestMemoryDALReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDAL()

	players, _ := store.ListPlayers(ctx)
	players[0].Name = "changed"
	again, _ := store.ListPlayers(ctx)
	if again[0].Name == "changed" {
		t.Error("ListPlayers must return a copy")
	}

	d := sampleDraft("copy", time.Now())
	if err := store.SaveDraft(ctx, d); err != nil {
		t.Fatalf("SaveDraft() failed: %v", err)
	}
	d.TeamOne.Players[0].Name = "mutated"
	latest, _ := store.LatestDraft(ctx)
	if latest.TeamOne.Players[0].Name == "mutated" {
		t.Error("SaveDraft must store a copy")
	}
}

func TestMemoryDALHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMemoryDAL().ListPlayers(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "outing.db")

	s, err := NewSQLiteDAL(path, true)
	if err != nil {
		t.Fatalf("NewSQLiteDAL() failed: %v", err)
	}
	if _, err := s.AddPlayer(ctx, &models.Player{ID: "extra", Name: "Extra", Handicap: 2}); err != nil {
		t.Fatalf("AddPlayer() failed: %v", err)
	}
	s.Close()

	s, err = NewSQLiteDAL(path, true)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	players, _ := s.ListPlayers(ctx)
	if len(players) != len(DefaultPlayers())+1 {
		t.Errorf("expected defaults plus one, got %d players", len(players))
	}
	if err := s.DB().PingContext(ctx); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}
