package gameserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/wordrace/internal/hub"
	"github.com/cory-johannsen/wordrace/internal/observability"
	"github.com/cory-johannsen/wordrace/internal/protocol"
)

// SessionStream is the server side of GameService/Session. Each message is a
// Struct holding the same {"event", "data"} envelope the WebSocket carries.
type SessionStream = grpc.BidiStreamingServer[structpb.Struct, structpb.Struct]

// SessionService is implemented by GameServiceServer.
type SessionService interface {
	Session(SessionStream) error
}

// SessionMethod is the full method name of the Session stream.
const SessionMethod = "/wordrace.v1.GameService/Session"

// GameServiceDesc describes the GameService for grpc.Server.RegisterService.
var GameServiceDesc = grpc.ServiceDesc{
	ServiceName: "wordrace.v1.GameService",
	HandlerType: (*SessionService)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Session",
			Handler:       sessionHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "wordrace/v1/game.proto",
}

func sessionHandler(srv any, stream grpc.ServerStream) error {
	return srv.(SessionService).Session(&grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// OpenSession starts a Session stream on cc.
func OpenSession(ctx context.Context, cc grpc.ClientConnInterface, opts ...grpc.CallOption) (grpc.BidiStreamingClient[structpb.Struct, structpb.Struct], error) {
	stream, err := cc.NewStream(ctx, &GameServiceDesc.Streams[0], SessionMethod, opts...)
	if err != nil {
		return nil, err
	}
	return &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}, nil
}

// GameServiceServer exposes the Coordinator over a bidirectional gRPC stream.
// One stream is one connection.
type GameServiceServer struct {
	coord  *Coordinator
	logger *zap.Logger
}

// NewGameServiceServer creates the gRPC front end.
//
// Precondition: coord and logger must be non-nil.
func NewGameServiceServer(coord *Coordinator, logger *zap.Logger) *GameServiceServer {
	return &GameServiceServer{coord: coord, logger: logger}
}

// Register adds the service to srv.
func (s *GameServiceServer) Register(srv *grpc.Server) {
	srv.RegisterService(&GameServiceDesc, s)
}

// Session runs one client connection until the stream ends.
func (s *GameServiceServer) Session(stream SessionStream) error {
	connID := uuid.NewString()
	client, err := s.coord.Connect(connID)
	if err != nil {
		return fmt.Errorf("connecting %s: %w", connID, err)
	}
	defer s.coord.Disconnect(connID)

	s.logger.Info("grpc session opened", observability.Conn(connID))

	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.forwardEvents(ctx, client, stream)
	}()

	err = s.commandLoop(ctx, connID, stream)

	cancel()
	wg.Wait()

	s.logger.Info("grpc session closed", observability.Conn(connID))
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// commandLoop applies inbound messages until the stream ends.
func (s *GameServiceServer) commandLoop(ctx context.Context, connID string, stream SessionStream) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			return fmt.Errorf("receiving message: %w", err)
		}

		frame, err := protojson.Marshal(msg)
		if err != nil {
			s.coord.Reject(connID, fmt.Errorf("%w: %v", protocol.ErrMalformed, err))
			continue
		}
		in, err := protocol.DecodeInbound(frame)
		if err != nil {
			s.coord.Reject(connID, err)
			continue
		}
		if err := s.coord.Dispatch(connID, in); err != nil {
			s.logger.Debug("event rejected",
				observability.Conn(connID), observability.Event(in.Kind.String()), zap.Error(err))
		}
	}
}

// forwardEvents writes the connection's outbox to the stream.
func (s *GameServiceServer) forwardEvents(ctx context.Context, client *hub.Client, stream SessionStream) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-client.Outbox():
			if !ok {
				return
			}
			msg, err := outboundStruct(ev)
			if err != nil {
				s.logger.Error("encoding outbound event",
					observability.Conn(client.ID()), observability.Event(ev.Name), zap.Error(err))
				continue
			}
			if err := stream.Send(msg); err != nil {
				s.logger.Debug("forward event send failed", observability.Conn(client.ID()), zap.Error(err))
				return
			}
		}
	}
}

func outboundStruct(ev protocol.Outbound) (*structpb.Struct, error) {
	frame, err := protocol.EncodeOutbound(ev)
	if err != nil {
		return nil, err
	}
	var msg structpb.Struct
	if err := protojson.Unmarshal(frame, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// InboundStruct builds the Struct a gRPC client sends for in.
func InboundStruct(in protocol.Inbound) (*structpb.Struct, error) {
	frame, err := protocol.EncodeInbound(in)
	if err != nil {
		return nil, err
	}
	var msg structpb.Struct
	if err := protojson.Unmarshal(frame, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
