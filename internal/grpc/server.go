package grpc

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/johnboyce/golf-outing-manager/internal/draft"
	"github.com/johnboyce/golf-outing-manager/internal/logger"
	"github.com/johnboyce/golf-outing-manager/internal/pubsub"
	"github.com/johnboyce/golf-outing-manager/internal/session"
)

// Server implements the gRPC DraftService
type Server struct {
	session *session.Controller
	pubsub  pubsub.Broker
}

// NewServer creates a new gRPC server
func NewServer(ctl *session.Controller, ps pubsub.Broker) *Server {
	return &Server{
		session: ctl,
		pubsub:  ps,
	}
}

var _ DraftServiceServer = (*Server)(nil)

// GetState returns the current draft state
func (s *Server) GetState(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	logger.Debug("gRPC: Getting draft state")
	return toStruct(s.session.State())
}

// GetAssignment returns the foursomes of the last commission
func (s *Server) GetAssignment(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	a, err := s.session.Assignment()
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(a)
}

// SelectCaptains seats a captain on each team
func (s *Server) SelectCaptains(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	teamOne := stringField(req, "teamOneCaptainId")
	teamTwo := stringField(req, "teamTwoCaptainId")

	logger.Info("gRPC: Selecting captains", "team_one", teamOne, "team_two", teamTwo)
	if err := s.session.SelectCaptains(teamOne, teamTwo); err != nil {
		return nil, toStatus(err)
	}
	return toStruct(s.session.State())
}

// StartDraft puts team one on the clock
func (s *Server) StartDraft(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.session.StartDraft(); err != nil {
		return nil, toStatus(err)
	}
	return toStruct(s.session.State())
}

// Pick drafts a player for the team on the clock
func (s *Server) Pick(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	logger.Info("gRPC: Drafting player", logger.FieldPlayerID, req.GetValue())
	player, err := s.session.Pick(req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(map[string]any{
		"player": player,
		"state":  s.session.State(),
	})
}

// ResetDraft resets the draft
func (s *Server) ResetDraft(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	logger.Info("gRPC: Resetting draft")
	s.session.ResetDraft()
	return toStruct(s.session.State())
}

// Commission allocates the drafted players to foursomes
func (s *Server) Commission(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	a, err := s.session.Commission()
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(a)
}

// StreamEvents streams events to clients
func (s *Server) StreamEvents(_ *emptypb.Empty, stream grpc.ServerStream) error {
	logger.Debug("gRPC: New client connected to event stream")
	eventChan := s.pubsub.Subscribe()
	defer s.pubsub.Unsubscribe(eventChan)

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return nil
			}
			msg, err := toStruct(event)
			if err != nil {
				logger.Warn("gRPC: Dropping unencodable event", logger.FieldEventType, event.Type, "error", err)
				continue
			}
			if err := stream.SendMsg(msg); err != nil {
				logger.Error("gRPC: Failed to send event to stream", "error", err)
				return err
			}
		case <-stream.Context().Done():
			logger.Debug("gRPC: Client disconnected from event stream")
			return nil
		}
	}
}

// toStatus maps a command failure to a gRPC status.
func toStatus(err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, draft.ErrInvalidSelection):
		code = codes.InvalidArgument
	case errors.Is(err, draft.ErrUnknownPlayer):
		code = codes.NotFound
	case errors.Is(err, draft.ErrNotReady),
		errors.Is(err, draft.ErrDraftNotComplete),
		errors.Is(err, draft.ErrNotCommissioned):
		code = codes.FailedPrecondition
	case errors.Is(err, draft.ErrRosterUnavailable):
		code = codes.Unavailable
	}
	if code == codes.Internal {
		logger.Error("gRPC: Command failed", "error", err)
	}
	return status.Errorf(code, "%s: %v", draft.Kind(err), err)
}

// toStruct converts v through its JSON form so replies match the HTTP API.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode reply: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "encode reply: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode reply: %v", err)
	}
	return out, nil
}

// stringField returns the string at key, or "" when it is missing or not a
// string.
func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}
