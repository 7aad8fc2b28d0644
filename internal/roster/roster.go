// Package roster reads the eligible players and courses for a session.
//
// Any dal.OutingDAL is a Source. HTTPSource reads the same records from a
// remote roster service, and RetryingSource wraps either with backoff.
package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/johnboyce/golf-outing-manager/internal/models"
)

// Source lists the roster records.
type Source interface {
	ListPlayers(ctx context.Context) ([]models.Player, error)
	ListCourses(ctx context.Context) ([]models.Course, error)
}

// HTTPConfig configures a remote roster service.
type HTTPConfig struct {
	BaseURL string
	// Client credentials are used when all three are set.
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
	Timeout      time.Duration
}

// HTTPSource reads GET {base}/players and GET {base}/courses.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPSource builds a source for cfg. With client credentials configured
// every request carries a bearer token that is refreshed as it expires.
func NewHTTPSource(ctx context.Context, cfg HTTPConfig) *HTTPSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	if cfg.ClientID != "" && cfg.ClientSecret != "" && cfg.TokenURL != "" {
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		client = cc.Client(ctx)
		client.Timeout = timeout
	}

	return &HTTPSource{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: client,
	}
}

func (s *HTTPSource) ListPlayers(ctx context.Context) ([]models.Player, error) {
	var players []models.Player
	if err := s.get(ctx, "/players", &players); err != nil {
		return nil, err
	}
	return players, nil
}

func (s *HTTPSource) ListCourses(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	if err := s.get(ctx, "/courses", &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

func (s *HTTPSource) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("roster %s: unexpected status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("roster %s: %w", path, err)
	}
	return nil
}
