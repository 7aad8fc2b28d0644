// Package seed loads a roster from a YAML file into the outing store.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/johnboyce/golf-outing-manager/internal/dal"
	"github.com/johnboyce/golf-outing-manager/internal/logger"
	"github.com/johnboyce/golf-outing-manager/internal/models"
)

// File is the on-disk seed layout:
//
//	players:
//	  - id: player-1
//	    name: John Boyce
//	    handicap: 12.4
//	courses:
//	  - id: war-admiral
//	    name: War Admiral
type File struct {
	Players []models.Player `yaml:"players"`
	Courses []models.Course `yaml:"courses"`
}

// Parse decodes seed data.
func Parse(data []byte) (File, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return File{}, fmt.Errorf("seed: payload is empty")
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("seed: decode: %w", err)
	}
	return f, nil
}

// Load reads and decodes the seed file at path.
func Load(path string) (File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("seed: read %s: %w", path, err)
	}
	f, err := Parse(content)
	if err != nil {
		return File{}, fmt.Errorf("seed: %s: %w", path, err)
	}
	return f, nil
}

// Apply upserts every course and player into store, courses first. It stops
// at the first record the store rejects.
func (f File) Apply(ctx context.Context, store dal.OutingDAL) error {
	for i := range f.Courses {
		c := f.Courses[i]
		if _, err := store.AddCourse(ctx, &c); err != nil {
			return fmt.Errorf("seed: course %q: %w", c.Name, err)
		}
	}
	for i := range f.Players {
		p := f.Players[i]
		if _, err := store.AddPlayer(ctx, &p); err != nil {
			return fmt.Errorf("seed: player %q: %w", p.Name, err)
		}
	}
	logger.Info("Seeded roster", "players", len(f.Players), "courses", len(f.Courses))
	return nil
}
