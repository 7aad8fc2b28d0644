package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/johnboyce/golf-outing-manager/internal/dal"
)

const sample = `
courses:
  - id: war-admiral
    name: War Admiral
    description: Gary Player design
players:
  - id: p1
    name: John Boyce
    handicap: 12.4
    nickname: Johnny
  - name: Mike Smith
    handicap: 7
`

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestLoadAndApply(t *testing.T) {
	f, err := Load(writeSeed(t, sample))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if len(f.Players) != 2 || len(f.Courses) != 1 {
		t.Fatalf("unexpected seed: %+v", f)
	}
	if f.Players[0].Nickname != "Johnny" || f.Players[0].Handicap != 12.4 {
		t.Errorf("player fields not decoded: %+v", f.Players[0])
	}

	store := dal.NewEmptyMemoryDAL()
	if err := f.Apply(context.Background(), store); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	players, _ := store.ListPlayers(context.Background())
	if len(players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(players))
	}
	if players[0].ID != "p1" {
		t.Errorf("expected explicit id to be kept, got %q", players[0].ID)
	}
	if players[1].ID == "" {
		t.Error("expected generated id for second player")
	}

	courses, _ := store.ListCourses(context.Background())
	if len(courses) != 1 || courses[0].ID != "war-admiral" {
		t.Errorf("unexpected courses: %+v", courses)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	f, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	f.Players = f.Players[:1]

	store := dal.NewEmptyMemoryDAL()
	for range 2 {
		if err := f.Apply(context.Background(), store); err != nil {
			t.Fatalf("Apply() failed: %v", err)
		}
	}
	players, _ := store.ListPlayers(context.Background())
	if len(players) != 1 {
		t.Errorf("expected upsert by id, got %d players", len(players))
	}
}

func TestApplyRejectsInvalidPlayer(t *testing.T) {
	f, err := Parse([]byte("players:\n  - id: p1\n    handicap: 3\n"))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	err = f.Apply(context.Background(), dal.NewEmptyMemoryDAL())
	if !errors.Is(err, dal.ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord for nameless player, got %v", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", "   \n"},
		{"malformed", "players: [unclosed"},
		{"wrong shape", "players: 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
