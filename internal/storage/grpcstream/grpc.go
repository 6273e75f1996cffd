// Package grpcstream streams accepted measurements to remote gRPC clients
// as they are decoded.
package grpcstream

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/pburkhalter/TEKO-S3-Funkthermometer/internal/types"
	"github.com/pburkhalter/TEKO-S3-Funkthermometer/pkg/config"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/reflection"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// clientBuffer is how many measurements a slow client may lag behind
// before measurements are dropped for it.
const clientBuffer = 10

// Storage implements a gRPC storage backend
type Storage struct {
	Server     *grpc.Server
	GRPCConfig *config.GRPCData

	health *health.Server
	logger *zap.SugaredLogger

	clientMu   sync.RWMutex
	clients    map[uint64]chan *structpb.Struct
	nextClient uint64
}

// New sets up a new gRPC storage backend. It does not listen yet; see
// Start and Serve.
func New(cfg *config.GRPCData, logger *zap.SugaredLogger) (*Storage, error) {
	g := &Storage{
		GRPCConfig: cfg,
		health:     health.NewServer(),
		logger:     logger,
		clients:    make(map[uint64]chan *structpb.Struct),
	}

	if cfg.Cert != "" && cfg.Key != "" {
		// Create the TLS credentials
		creds, err := credentials.NewServerTLSFromFile(cfg.Cert, cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("could not create TLS server from keypair: %v", err)
		}
		g.Server = grpc.NewServer(grpc.Creds(creds))
	} else {
		g.Server = grpc.NewServer()
	}

	g.Server.RegisterService(&serviceDesc, g)
	healthpb.RegisterHealthServer(g.Server, g.health)
	g.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	// Optionally, add gRPC reflection to our servers so that clients can self-discover
	// our methods.
	reflection.Register(g.Server)

	return g, nil
}

// Start listens on the configured address and serves until ctx is cancelled.
func (g *Storage) Start(ctx context.Context, wg *sync.WaitGroup) error {
	listenAddr := fmt.Sprintf("%s:%d", g.GRPCConfig.ListenAddr, g.GRPCConfig.Port)
	l, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("could not create gRPC listener: %v", err)
	}

	g.logger.Infof("starting gRPC live stream on %s", listenAddr)
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := g.Serve(l); err != nil {
			g.logger.Errorf("gRPC server stopped: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		<-ctx.Done()
		g.logger.Info("cancellation request received. Stopping gRPC server")
		g.Close()
	}()
	return nil
}

// Serve accepts connections on l until the server is stopped.
func (g *Storage) Serve(l net.Listener) error {
	err := g.Server.Serve(l)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// StoreMeasurement implements storage.MeasurementSink. Clients that are not
// keeping up miss the measurement.
func (g *Storage) StoreMeasurement(_ context.Context, m types.Measurement) error {
	msg, err := structpb.NewStruct(m.ToMap())
	if err != nil {
		return fmt.Errorf("could not encode measurement: %w", err)
	}

	g.clientMu.RLock()
	defer g.clientMu.RUnlock()

	for id, ch := range g.clients {
		select {
		case ch <- msg:
		default:
			g.logger.Debugf("gRPC client %d channel full, dropping measurement", id)
		}
	}

	g.logger.Debugf("gRPC distributed measurement to %d clients", len(g.clients))
	return nil
}

// Clients returns the number of connected live clients.
func (g *Storage) Clients() int {
	g.clientMu.RLock()
	defer g.clientMu.RUnlock()
	return len(g.clients)
}

func (g *Storage) registerClient() (uint64, <-chan *structpb.Struct) {
	g.clientMu.Lock()
	defer g.clientMu.Unlock()

	id := g.nextClient
	g.nextClient++
	ch := make(chan *structpb.Struct, clientBuffer)
	g.clients[id] = ch
	return id, ch
}

func (g *Storage) deregisterClient(id uint64) {
	g.clientMu.Lock()
	defer g.clientMu.Unlock()
	delete(g.clients, id)
}

func (g *Storage) live(_ *emptypb.Empty, stream grpc.ServerStream) error {
	ctx := stream.Context()
	var addr net.Addr
	if p, ok := peer.FromContext(ctx); ok {
		addr = p.Addr
	}

	id, ch := g.registerClient()
	defer g.deregisterClient(id)
	g.logger.Infof("registered gRPC streaming client [%v]", addr)

	for {
		select {
		case <-ctx.Done():
			g.logger.Infof("gRPC streaming client [%v] disconnected", addr)
			return nil
		case msg := <-ch:
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		}
	}
}

// CheckHealth implements storage.HealthChecker
func (g *Storage) CheckHealth(context.Context) error {
	if g.Server == nil {
		return errors.New("gRPC server not initialized")
	}
	return nil
}

// Close stops the server and ends every live stream.
func (g *Storage) Close() error {
	g.health.Shutdown()
	g.Server.Stop()
	return nil
}
