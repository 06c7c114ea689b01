package telemetry

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Memati8383/AI-Triggerbot/internal/engine"
	"github.com/Memati8383/AI-Triggerbot/internal/monitoring"
)

const (
	DefaultListenAddr   = "localhost:50061"
	DefaultPollInterval = 50 * time.Millisecond
	MinPollInterval     = 10 * time.Millisecond
	DefaultMaxClients   = 8
)

// Source is where the stream reads snapshots and counters from.
type Source interface {
	Snapshot() engine.Snapshot
	Stats() engine.Stats
}

// EngineSource adapts an engine to Source.
type EngineSource struct {
	Engine *engine.Engine
}

func (s EngineSource) Snapshot() engine.Snapshot { return s.Engine.Session().Snapshot() }
func (s EngineSource) Stats() engine.Stats       { return s.Engine.Stats() }

// Server implements TelemetryServer by polling a Source and sending each
// snapshot whose sequence number changed.
type Server struct {
	src        Source
	maxClients int32
	clients    atomic.Int32
}

var _ TelemetryServer = (*Server)(nil)

// NewServer creates a telemetry server. maxClients <= 0 uses the default.
func NewServer(src Source, maxClients int) *Server {
	if maxClients <= 0 {
		maxClients = DefaultMaxClients
	}
	return &Server{src: src, maxClients: int32(maxClients)}
}

// Clients returns the number of connected streams.
func (s *Server) Clients() int { return int(s.clients.Load()) }

// Message is the JSON shape carried in each streamed Struct.
type Message struct {
	Snapshot engine.Snapshot `json:"snapshot"`
	Stats    engine.Stats    `json:"stats"`
}

// ToStruct converts a snapshot and stats pair into a protobuf Struct.
func ToStruct(snap engine.Snapshot, stats engine.Stats) (*structpb.Struct, error) {
	b, err := json.Marshal(Message{Snapshot: snap, Stats: stats})
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, fmt.Errorf("convert snapshot: %w", err)
	}
	return out, nil
}

func pollInterval(req *structpb.Struct) time.Duration {
	if req == nil {
		return DefaultPollInterval
	}
	v, ok := req.GetFields()["interval_ms"]
	if !ok {
		return DefaultPollInterval
	}
	d := time.Duration(v.GetNumberValue() * float64(time.Millisecond))
	if d < MinPollInterval {
		return MinPollInterval
	}
	return d
}

// StreamSnapshots implements TelemetryServer.
func (s *Server) StreamSnapshots(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	if s.clients.Add(1) > s.maxClients {
		s.clients.Add(-1)
		return status.Errorf(codes.ResourceExhausted, "telemetry: at most %d clients", s.maxClients)
	}
	defer s.clients.Add(-1)

	ctx := stream.Context()
	interval := pollInterval(req)
	monitoring.Logf("[telemetry] client connected (interval %v)", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastSeq uint64
	sent := false
	for {
		snap := s.src.Snapshot()
		if !sent || snap.Seq != lastSeq {
			msg, err := ToStruct(snap, s.src.Stats())
			if err != nil {
				return status.Error(codes.Internal, err.Error())
			}
			if err := stream.Send(msg); err != nil {
				monitoring.Logf("[telemetry] send error: %v", err)
				return err
			}
			lastSeq, sent = snap.Seq, true
		}

		select {
		case <-ctx.Done():
			monitoring.Logf("[telemetry] client disconnected")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Publisher owns the listener and gRPC server hosting a telemetry Server.
type Publisher struct {
	addr     string
	srv      *Server
	server   *grpc.Server
	listener net.Listener
	running  atomic.Bool
	wg       sync.WaitGroup
}

// NewPublisher creates a publisher for srv on addr.
func NewPublisher(addr string, srv *Server) *Publisher {
	if addr == "" {
		addr = DefaultListenAddr
	}
	return &Publisher{addr: addr, srv: srv}
}

// Start binds the listener and serves in the background.
func (p *Publisher) Start() error {
	lis, err := net.Listen("tcp", p.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return p.Serve(lis)
}

// Serve serves on an existing listener in the background.
func (p *Publisher) Serve(lis net.Listener) error {
	if !p.running.CompareAndSwap(false, true) {
		return fmt.Errorf("publisher already running")
	}
	p.listener = lis
	p.server = grpc.NewServer()
	RegisterTelemetryServer(p.server, p.srv)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		monitoring.Logf("[telemetry] gRPC server listening on %s", lis.Addr())
		if err := p.server.Serve(lis); err != nil && p.running.Load() {
			monitoring.Logf("[telemetry] gRPC server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or nil before Start.
func (p *Publisher) Addr() net.Addr {
	if p.listener == nil {
		return nil
	}
	return p.listener.Addr()
}

// Stop closes all streams and waits for the server to exit.
func (p *Publisher) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	// Streams only end when their clients leave, so GracefulStop would
	// block on a connected viewer.
	p.server.Stop()
	p.wg.Wait()
	monitoring.Logf("[telemetry] gRPC server stopped")
}
