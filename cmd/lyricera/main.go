// Lyricera is an HTTP façade over the Hedera network: it creates accounts
// and runs the full lifecycle of NFT collections (create, mint, burn,
// transfer, associate) for clients that only speak HTTP.
//
// Every operation is journaled to SQLite and fanned out to WebSocket
// subscribers, Prometheus and, when enabled, MQTT and InfluxDB.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/are4us/lyricera/internal/account"
	"github.com/are4us/lyricera/internal/activity"
	"github.com/are4us/lyricera/internal/api"
	"github.com/are4us/lyricera/internal/auth"
	"github.com/are4us/lyricera/internal/infrastructure/config"
	"github.com/are4us/lyricera/internal/infrastructure/database"
	"github.com/are4us/lyricera/internal/infrastructure/influxdb"
	"github.com/are4us/lyricera/internal/infrastructure/logging"
	"github.com/are4us/lyricera/internal/infrastructure/mqtt"
	"github.com/are4us/lyricera/internal/ledger"
	"github.com/are4us/lyricera/internal/mirror"
	"github.com/are4us/lyricera/internal/token"
	"github.com/are4us/lyricera/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options are the command-line flags.
type options struct {
	configPath string
	issueToken string
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("lyricera", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.configPath, "config", getConfigPath(), "path to the YAML configuration file")
	fs.StringVar(&opts.issueToken, "issue-token", "", "print an access token for `subject` and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, fmt.Errorf("parsing flags: %w", err)
	}
	return opts, nil
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - args: Command-line arguments without the program name
//   - stdout: Destination for -issue-token output
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if opts.issueToken != "" {
		return issueToken(stdout, cfg.Security, opts.issueToken)
	}

	log := logging.New(cfg.Logging, version)
	log.Info("starting lyricera",
		"version", version,
		"commit", commit,
		"build_date", date,
		"network", cfg.Ledger.Network,
		"config", opts.configPath,
	)

	checks := map[string]api.HealthChecker{}

	db, err := openDatabase(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	checks["database"] = db

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	hub := api.NewActivityHub(cfg.WebSocket, log)
	sinks := []activity.Sink{activity.NewBroadcastSink(hub)}

	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		mqttClient.SetLogger(log)
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
		sinks = append(sinks, activity.NewMQTTSink(mqttClient))
		checks["mqtt"] = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		sinks = append(sinks, activity.NewInfluxSink(influxClient))
		checks["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	repo := activity.NewSQLiteRepository(db.DB)
	recorder := activity.NewRecorder(repo, activity.NewMetrics(registry), log, sinks...)

	// The recorder outlives the HTTP server so in-flight operations are
	// journaled before the sinks close.
	recorderCtx, stopRecorder := context.WithCancel(context.Background())
	recorderDone := make(chan struct{})
	go func() {
		defer close(recorderDone)
		recorder.Run(recorderCtx)
	}()
	defer func() {
		stopRecorder()
		<-recorderDone
	}()

	connector := ledger.NewHederaConnector(cfg.Ledger)
	if cfg.Ledger.Operator.AccountID == "" || cfg.Ledger.Operator.PrivateKey == "" {
		log.Warn("operator credentials not set, ledger operations will fail until they are",
			"hint", "set ACCOUNT_ID and ACCOUNT_PRIVATE_KEY",
		)
	}

	srv, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Accounts: account.NewService(connector, cfg.Ledger, log, recorder),
		Tokens:   token.NewService(connector, mirror.New(cfg.Mirror, log), cfg.Ledger, log, recorder),
		Activity: repo,
		Hub:      hub,
		Gatherer: registry,
		Checks:   checks,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	if err := srv.Close(); err != nil {
		log.Error("error closing API server", "error", err)
	}

	// Deferred calls run in reverse order:
	// 1. WebSocket hub
	// 2. Activity recorder (drains queued entries)
	// 3. InfluxDB, MQTT (if enabled)
	// 4. Database

	log.Info("lyricera stopped")
	return nil
}

// openDatabase opens the on-disk journal, or an in-memory one when the
// database is disabled, and applies migrations.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (*database.DB, error) {
	var (
		db  *database.DB
		err error
	)
	if cfg.Enabled {
		db, err = database.Open(database.Config{
			Path:        cfg.Path,
			WALMode:     cfg.WALMode,
			BusyTimeout: cfg.BusyTimeout,
		})
	} else {
		db, err = database.OpenMemory()
	}
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	if cfg.Enabled {
		log.Info("activity journal ready", "path", db.Path())
	} else {
		log.Info("activity journal in memory (database disabled)")
	}
	return db, nil
}

// issueToken prints a bearer token for subject.
func issueToken(w io.Writer, sec config.SecurityConfig, subject string) error {
	if sec.JWT.Secret == "" {
		return errors.New("security.jwt.secret is not set (set LYRICERA_JWT_SECRET)")
	}
	tok, err := auth.GenerateAccessToken(subject, sec.JWT.Secret, sec.JWT.AccessTokenTTL)
	if err != nil {
		return fmt.Errorf("issuing token: %w", err)
	}
	_, err = fmt.Fprintln(w, tok)
	return err
}

// getConfigPath returns the configuration file path.
// Uses LYRICERA_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("LYRICERA_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
