// Command tenantauthd serves the tenantauth registration, OTP, OAuth and
// session endpoints. All settings come from the environment; see the
// config package.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	oa "github.com/panyam/tenantauth"
	"github.com/panyam/tenantauth/accountsync"
	"github.com/panyam/tenantauth/config"
	authgrpc "github.com/panyam/tenantauth/grpc"
	"github.com/panyam/tenantauth/notify"
	"github.com/panyam/tenantauth/oauth2"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("tenantauthd exited", "error", err)
		os.Exit(1)
	}
}

func setupLogging(cfg *config.Config) {
	var handler slog.Handler
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))
}

func run(ctx context.Context, cfg *config.Config) error {
	sh, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if sh.close != nil {
		defer sh.close()
	}

	roles := &oa.RoleResolver{SuperAdmin: cfg.SuperAdminEmail}
	switch cfg.AdminSource {
	case config.AdminsFromStore:
		for _, email := range cfg.AdminEmails {
			if err := sh.store.AddAdmin(ctx, email); err != nil {
				return err
			}
		}
		roles.Admins = sh.store
	default:
		roles.Admins = oa.StaticAdminList(cfg.AdminEmails)
	}

	dispatcher, err := newDispatcher(ctx, cfg)
	if err != nil {
		return err
	}

	syncer, closeSyncer, err := newSyncer(cfg)
	if err != nil {
		return err
	}

	registrar := &oa.Registrar{
		Store:       sh.store,
		Dispatcher:  dispatcher,
		Syncer:      syncer,
		Production:  cfg.IsProduction(),
		OTPTTL:      cfg.OTPTTL,
		FormatPhone: notify.E164(cfg.NotifyPhoneRegion),
	}

	sessions := &oa.SessionCodec{
		CookieName: cfg.SessionCookieName,
		Secure:     cfg.SecureCookies,
	}
	if cfg.SessionSecret != "" {
		sessions.Secret = []byte(cfg.SessionSecret)
	}

	stateManager := scs.New()
	stateManager.Lifetime = 10 * time.Minute
	stateManager.Cookie.Name = "tenantauth_state"
	stateManager.Cookie.SameSite = http.SameSiteLaxMode
	stateManager.Cookie.Secure = cfg.SecureCookies

	ta := (&oa.TenantAuth{
		Registrar:        registrar,
		Roles:            roles,
		Sessions:         sessions,
		Session:          stateManager,
		Production:       cfg.IsProduction(),
		LoginPath:        cfg.LoginPath,
		AdminLandingPath: cfg.AdminLandingPath,
		UserLandingPath:  cfg.UserLandingPath,
	}).EnsureDefaults()

	google := oauth2.NewGoogleFederator(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL, ta.SaveSessionAndRedirect)
	google.States = stateManager
	google.LoginPath = cfg.LoginPath
	ta.AddProvider("google", google)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           ta.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 2)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr, "env", cfg.Environment, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	var grpcServer *grpc.Server
	if cfg.GRPCAddr != "" {
		grpcServer, err = startGRPC(cfg.GRPCAddr, sessions, errs)
		if err != nil {
			return err
		}
	}

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err = <-errs:
		slog.Error("server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		slog.Warn("http shutdown", "error", serr)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if serr := closeSyncer(shutdownCtx); serr != nil {
		slog.Warn("account sync shutdown", "error", serr)
	}
	return err
}

func newDispatcher(ctx context.Context, cfg *config.Config) (oa.Dispatcher, error) {
	if cfg.NotifyProvider != config.NotifyAWS {
		return &oa.ConsoleDispatcher{}, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.NotifyAWSRegion))
	if err != nil {
		return nil, err
	}
	return notify.New(awsCfg, notify.Options{
		EmailFrom:   cfg.NotifyEmailFrom,
		SMSSenderID: cfg.NotifySMSSenderID,
	}), nil
}

func newSyncer(cfg *config.Config) (oa.AccountSyncer, func(context.Context) error, error) {
	closeSender := func() error { return nil }
	var sender accountsync.Sender
	switch {
	case cfg.AccountSyncAMQPURL != "":
		amqpSender, err := accountsync.NewAMQPSender(cfg.AccountSyncAMQPURL, cfg.AccountSyncExchange)
		if err != nil {
			return nil, nil, err
		}
		sender = amqpSender
		closeSender = amqpSender.Close
	case cfg.AccountSyncURL != "":
		sender = &accountsync.HTTPSender{URL: cfg.AccountSyncURL, Secret: cfg.AccountSyncSecret}
	default:
		slog.Info("account sync disabled")
		return oa.NoopSyncer{}, func(context.Context) error { return nil }, nil
	}

	queue := accountsync.NewQueue(sender, accountsync.Options{
		Workers:  cfg.AccountSyncWorkers,
		MaxTries: cfg.AccountSyncMaxTries,
	})
	return queue, func(ctx context.Context) error {
		err := queue.Close(ctx)
		if cerr := closeSender(); err == nil {
			err = cerr
		}
		return err
	}, nil
}

// startGRPC serves the health service behind the session interceptor so
// callers can check that a forwarded session is accepted.
func startGRPC(addr string, sessions *oa.SessionCodec, errs chan<- error) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	icfg := authgrpc.NewPublicMethodsConfig(sessions,
		"/grpc.health.v1.Health/Check",
		"/grpc.health.v1.Health/Watch",
		"/grpc.health.v1.Health/List",
	)
	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(authgrpc.UnarySessionInterceptor(icfg)),
		grpc.ChainStreamInterceptor(authgrpc.StreamSessionInterceptor(icfg)),
	)
	healthpb.RegisterHealthServer(server, health.NewServer())
	go func() {
		slog.Info("grpc listening", "addr", addr)
		if err := server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errs <- err
		}
	}()
	return server, nil
}
