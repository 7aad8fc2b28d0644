package fuzz

import (
	"context"
	"fmt"
	"testing"

	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/johnboyce/golf-outing-manager/internal/dal"
	"github.com/johnboyce/golf-outing-manager/internal/foursomes"
	grpcserver "github.com/johnboyce/golf-outing-manager/internal/grpc"
	"github.com/johnboyce/golf-outing-manager/internal/models"
	"github.com/johnboyce/golf-outing-manager/internal/pubsub"
	"github.com/johnboyce/golf-outing-manager/internal/session"
)

func newServer(t *testing.T) (*grpcserver.Server, *session.Controller) {
	store := dal.NewMemoryDAL()
	ps := pubsub.New()
	ctl := session.New(store, store, ps, nil, nil)
	if err := ctl.LoadRoster(context.Background()); err != nil {
		t.Fatalf("LoadRoster() failed: %v", err)
	}
	return grpcserver.NewServer(ctl, ps), ctl
}

// FuzzGRPCPick fuzzes the gRPC Pick endpoint
func FuzzGRPCPick(f *testing.F) {
	f.Add("player-3", true)
	f.Add("player-2", true)
	f.Add("", false)
	f.Add("invalid", true)

	f.Fuzz(func(t *testing.T, playerID string, started bool) {
		server, ctl := newServer(t)
		if started {
			ctl.SelectCaptains("player-1", "player-2")
			ctl.StartDraft()
		}

		_, err := server.Pick(context.Background(), wrapperspb.String(playerID))
		if !started && err == nil {
			t.Fatal("pick before start must fail")
		}
	})
}

// FuzzGRPCSelectCaptains fuzzes the gRPC SelectCaptains endpoint
func FuzzGRPCSelectCaptains(f *testing.F) {
	f.Add("player-1", "player-2")
	f.Add("player-1", "player-1")
	f.Add("", "")

	f.Fuzz(func(t *testing.T, teamOne, teamTwo string) {
		server, _ := newServer(t)

		req, err := structpb.NewStruct(map[string]any{
			"teamOneCaptainId": teamOne,
			"teamTwoCaptainId": teamTwo,
		})
		if err != nil {
			// Invalid UTF-8 cannot be carried by a Struct.
			t.Skip()
		}

		_, err = server.SelectCaptains(context.Background(), req)
		if teamOne == teamTwo && err == nil {
			t.Fatal("equal captains must be rejected")
		}
	})
}

// FuzzAllocate checks the allocator's placement guarantees for arbitrary
// roster sizes, team splits, course counts and seeds.
func FuzzAllocate(f *testing.F) {
	f.Add(uint8(8), uint8(4), uint8(2), uint64(1))
	f.Add(uint8(9), uint8(5), uint8(2), uint64(2))
	f.Add(uint8(3), uint8(3), uint8(4), uint64(3))
	f.Add(uint8(0), uint8(0), uint8(1), uint64(4))
	f.Add(uint8(61), uint8(10), uint8(5), uint64(5))

	f.Fuzz(func(t *testing.T, n, teamOne, nCourses uint8, seed uint64) {
		if nCourses == 0 {
			t.Skip()
		}
		players := make([]models.Player, n)
		for i := range players {
			team := models.TeamTwo
			if i < int(teamOne) {
				team = models.TeamOne
			}
			players[i] = models.Player{ID: fmt.Sprintf("p%d", i), Team: team}
		}
		courses := make([]models.Course, nCourses)
		for i := range courses {
			courses[i] = models.Course{ID: fmt.Sprintf("c%d", i)}
		}

		a, err := foursomes.NewAllocator(foursomes.WithSeed(seed)).Allocate(players, courses, nil)
		if err != nil {
			t.Fatalf("Allocate() failed: %v", err)
		}

		seen := make(map[string]bool, n)
		for _, id := range a.CourseOrder {
			for _, g := range a.Courses[id] {
				for _, cart := range []models.Cart{g.CartOne, g.CartTwo} {
					if len(cart) > 2 {
						t.Fatalf("cart holds %d players", len(cart))
					}
					if len(cart) == 2 && cart[0].ID == cart[1].ID {
						t.Fatalf("player %s paired with themselves", cart[0].ID)
					}
					for _, p := range cart {
						if seen[p.ID] {
							t.Fatalf("player %s placed twice", p.ID)
						}
						seen[p.ID] = true
					}
				}
			}
		}
		if len(seen) != int(n) {
			t.Fatalf("placed %d of %d players", len(seen), n)
		}
	})
}
