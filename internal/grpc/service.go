// Package grpc exposes the draft session as golfouting.v1.DraftService.
//
// Messages are protobuf well-known types: requests are Empty, StringValue or
// Struct, and every reply is a Struct carrying the same JSON shape the HTTP
// API returns.
package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "golfouting.v1.DraftService"

// DraftServiceServer is the server API for DraftService.
type DraftServiceServer interface {
	GetState(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetAssignment(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// SelectCaptains reads teamOneCaptainId and teamTwoCaptainId.
	SelectCaptains(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartDraft(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Pick(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ResetDraft(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Commission(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	StreamEvents(*emptypb.Empty, grpc.ServerStream) error
}

// RegisterDraftServiceServer registers srv on s.
func RegisterDraftServiceServer(s grpc.ServiceRegistrar, srv DraftServiceServer) {
	s.RegisterService(&DraftServiceDesc, srv)
}

// unary builds the method descriptor for one request/reply call.
func unary[Req proto.Message](name string, newReq func() Req, call func(DraftServiceServer, context.Context, Req) (*structpb.Struct, error)) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DraftServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(DraftServiceServer), ctx, req.(Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func newEmpty() *emptypb.Empty { return new(emptypb.Empty) }

func newStruct() *structpb.Struct { return new(structpb.Struct) }

func newString() *wrapperspb.StringValue { return new(wrapperspb.StringValue) }

// DraftServiceDesc describes DraftService for grpc.Server.RegisterService.
var DraftServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DraftServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetState", newEmpty, DraftServiceServer.GetState),
		unary("GetAssignment", newEmpty, DraftServiceServer.GetAssignment),
		unary("SelectCaptains", newStruct, DraftServiceServer.SelectCaptains),
		unary("StartDraft", newEmpty, DraftServiceServer.StartDraft),
		unary("Pick", newString, DraftServiceServer.Pick),
		unary("ResetDraft", newEmpty, DraftServiceServer.ResetDraft),
		unary("Commission", newEmpty, DraftServiceServer.Commission),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName: "StreamEvents",
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(emptypb.Empty)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(DraftServiceServer).StreamEvents(in, stream)
			},
			ServerStreams: true,
		},
	},
	Metadata: "golfouting/v1/draft.proto",
}

// Client calls DraftService over a connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in proto.Message, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetState(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetState", &emptypb.Empty{}, opts...)
}

func (c *Client) GetAssignment(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetAssignment", &emptypb.Empty{}, opts...)
}

func (c *Client) SelectCaptains(ctx context.Context, teamOneID, teamTwoID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{
		"teamOneCaptainId": teamOneID,
		"teamTwoCaptainId": teamTwoID,
	})
	if err != nil {
		return nil, err
	}
	return c.invoke(ctx, "SelectCaptains", in, opts...)
}

func (c *Client) StartDraft(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "StartDraft", &emptypb.Empty{}, opts...)
}

func (c *Client) Pick(ctx context.Context, playerID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Pick", wrapperspb.String(playerID), opts...)
}

func (c *Client) ResetDraft(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ResetDraft", &emptypb.Empty{}, opts...)
}

func (c *Client) Commission(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Commission", &emptypb.Empty{}, opts...)
}

// StreamEvents opens the event stream. Call Recv until it returns an error.
func (c *Client) StreamEvents(ctx context.Context, opts ...grpc.CallOption) (*EventStream, error) {
	stream, err := c.cc.NewStream(ctx, &DraftServiceDesc.Streams[0], "/"+ServiceName+"/StreamEvents", opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &EventStream{stream: stream}, nil
}

// EventStream receives events from StreamEvents.
type EventStream struct {
	stream grpc.ClientStream
}

func (s *EventStream) Recv() (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := s.stream.RecvMsg(out); err != nil {
		return nil, err
	}
	return out, nil
}
