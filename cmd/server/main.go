// Command tk-server starts the tickets gRPC server.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	pb "github.com/and161185/nft-tickets/internal/api/tickets/v1"
	"github.com/and161185/nft-tickets/internal/authority"
	"github.com/and161185/nft-tickets/internal/clock"
	"github.com/and161185/nft-tickets/internal/ledger"
	"github.com/and161185/nft-tickets/internal/ledger/memory"
	"github.com/and161185/nft-tickets/internal/ledger/postgres"
	"github.com/and161185/nft-tickets/internal/limiter"
	"github.com/and161185/nft-tickets/internal/migrate"
	grpcserver "github.com/and161185/nft-tickets/internal/server/grpc"
	"github.com/and161185/nft-tickets/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const defaultProgramID = "UdaXXAyGLw94jH4e3nqFmHdkKvPe1rgUxi9h8N1V4cT"

// main parses configuration, selects the ledger store, and starts the gRPC server.
func main() {
	// Flags
	addr := flag.String("addr", ":8443", "listen address")
	dsn := flag.String("dsn", "", "PostgreSQL DSN; empty keeps the ledger in memory")
	jwtKey := flag.String("jwt-key", "", "HS256 signing key (required)")
	accessTTL := flag.Duration("access-ttl", 15*time.Minute, "access token TTL")
	loginSkew := flag.Duration("login-skew", 2*time.Minute, "accepted clock skew of signed login messages")
	programID := flag.String("program-id", defaultProgramID, "tickets program id used for derived authorities")
	certFile := flag.String("tls-cert", "cert.pem", "TLS certificate (PEM)")
	keyFile := flag.String("tls-key", "key.pem", "TLS private key (PEM)")
	plaintext := flag.Bool("insecure", false, "serve without TLS (dev only)")
	dev := flag.Bool("dev", false, "enable reflection, airdrops and the development logger")
	flag.Parse()

	logger, _ := zap.NewProduction()
	if *dev {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", *addr),
	)

	if *jwtKey == "" {
		logger.Fatal("missing jwt signing key (--jwt-key)")
	}
	if *plaintext && !*dev {
		logger.Fatal("--insecure requires --dev")
	}
	program, err := authority.ParseKey(*programID)
	if err != nil {
		logger.Fatal("bad --program-id", zap.Error(err))
	}

	var opts []grpc.ServerOption
	if !*plaintext {
		creds, err := credentials.NewServerTLSFromFile(*certFile, *keyFile)
		if err != nil {
			logger.Fatal("failed to load TLS cert/key", zap.Error(err))
		}
		opts = append(opts, grpc.Creds(creds))
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, lim, closeStore := openStore(ctx, logger, *dsn)
	defer closeStore()

	// Services
	clk := clock.NewSystem()
	authSvc := service.NewAuthService([]byte(*jwtKey), *accessTTL, *loginSkew, lim, clk, logger.Named("auth"))
	ticketSvc := service.NewTicketService(service.NewDeps(store, program, clk, logger.Named("tickets")))

	// gRPC server with interceptors
	opts = append(opts, grpc.ChainUnaryInterceptor(
		grpcserver.RecoverUnary(logger),
		grpcserver.LoggingUnary(logger),
		grpcserver.AuthUnary(authSvc),
	))
	s := grpc.NewServer(opts...)

	// App service
	app := grpcserver.New(authSvc, ticketSvc, *dev)
	pb.RegisterTicketsServer(s, app)

	// Health & reflection (dev)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(pb.ServiceName, healthpb.HealthCheckResponse_SERVING)
	if *dev {
		reflection.Register(s)
	}

	// Listen
	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", *addr), zap.Bool("tls", !*plaintext), zap.String("program", program.ToBase58()))
		errCh <- s.Serve(lis)
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		hs.Shutdown()
		// graceful shutdown
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			s.Stop()
		}
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

// openStore picks the ledger backend: postgres (after migrations) when dsn is set, memory otherwise.
func openStore(ctx context.Context, logger *zap.Logger, dsn string) (ledger.Store, limiter.Limiter, func()) {
	if dsn == "" {
		logger.Warn("no --dsn given, ledger kept in memory")
		return memory.New(), limiter.NewMemory(limiter.DefaultPolicy), func() {}
	}

	ver, err := migrate.Up(ctx, dsn, logger)
	if err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}
	logger.Info("schema ready", zap.Int64("version", ver))

	db, err := postgres.New(ctx, dsn)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	return postgres.NewStore(db), limiter.NewPG(db.Pool, limiter.DefaultPolicy), db.Close
}
