package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"pair-relay/auth"
	"pair-relay/infrastructure/api"
	"pair-relay/infrastructure/ws"
	"pair-relay/internal"
	"pair-relay/moderation"
	"pair-relay/observability"
	"pair-relay/repositories"
	"pair-relay/runtime"
	"pair-relay/runtime/workers"
	"pair-relay/services"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// frameOverhead leaves room for the JSON envelope around a maximal media payload.
const frameOverhead = 64 * 1024

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component, blocks until SIGINT/SIGTERM and returns the first setup error.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Credentials
	table, err := internal.LoadCredentials(config.Credentials, config.CredentialsFile)
	if err != nil {
		return fmt.Errorf("credentials: %w", err)
	}
	credentials, err := auth.NewCredentials(table)
	if err != nil {
		return fmt.Errorf("credentials: %w", err)
	}
	tokens := auth.NewTokenIssuer([]byte(config.JWTSecret), config.TokenTTL)
	log.Info("Credential table loaded", "participants", credentials.Identities())

	// 3. Message policy
	moderator, err := newModerator(log, config)
	if err != nil {
		return fmt.Errorf("moderation: %w", err)
	}
	policy := services.NewMessagePolicy(log, services.PolicyConfig{
		MaxMediaBytes: config.MaxMediaBytes,
		MaxTextLength: config.MaxTextLength,
	}, moderator)

	// 4. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)
	monitoring := observability.NewMonitoringManager(log)

	// 5. Coordinator
	coordinator := runtime.NewCoordinator(
		log,
		runtime.NewRegistry(credentials.Size()),
		repositories.NewMessageLedger(log, config.MessageCapacity),
		services.NewAuthService(credentials, tokens),
		policy,
		metrics,
		runtime.CoordinatorConfig{
			RevealDuration: config.RevealDuration,
			EphemeralTTL:   config.EphemeralTTL,
		},
	)
	defer coordinator.Stop()

	// 6. HTTP surface
	handler := ws.NewHandler(log, coordinator, metrics, ws.Config{
		BufferSize:     config.ConnectionBufferSize,
		MaxFrameBytes:  int64(config.MaxMediaBytes + frameOverhead),
		WriteTimeout:   config.WriteTimeout,
		PongTimeout:    config.PongTimeout,
		AllowedOrigins: config.Origins(),
	})
	router := api.NewRouter(log, api.Dependencies{
		WebSocket:  handler,
		Monitoring: monitoring,
		Gatherer:   registry,
		Tokens:     tokens,
	}, api.RouterConfig{
		AllowedOrigins: config.Origins(),
		ICEServers:     config.ICEServerList(),
	})

	// 7. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 8. Supervision
	restarts := workers.DefaultRestartPolicy
	restarts.MaxFailures = config.RestartMaxFailures
	restarts.MaxBackoff = config.RestartMaxBackoff
	sup := workers.NewSupervisor(log).WithPolicy(restarts)
	sup.Add(
		workers.NewHTTPServerWorker(log, config.Addr(), router, config.ReadHeaderTimeout, config.ShutdownTimeout),
		workers.NewHeartbeatWorker(log, coordinator.Stats, monitoring, config.HeartbeatInterval),
	)
	log.Info("Relay starting", "addr", config.Addr(), "capacity", credentials.Size(), "ledger", config.MessageCapacity)
	sup.Run(ctx)
	if err := sup.Err(); err != nil {
		return err
	}

	log.Info("Relay stopped")
	return nil
}

// newModerator returns nil when moderation is disabled.
func newModerator(log *slog.Logger, config internal.Config) (*moderation.Moderator, error) {
	if !config.ModerationEnabled {
		return nil, nil
	}
	char, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return nil, err
	}
	data, err := moderation.NewEmbeddedLoader().LoadAll("censored")
	if err != nil {
		return nil, err
	}
	log.Info("Moderation enabled", "words", len(data.Words), "languages", data.Languages)
	return moderation.NewModerator(data.Words, char, log)
}
