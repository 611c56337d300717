package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"vigil/internal/activity"
	"vigil/internal/docstore"
	"vigil/internal/handlers"
	"vigil/internal/identity"
	"vigil/internal/metrics"
	"vigil/internal/notify"
	"vigil/internal/profile"
	"vigil/internal/reputation"
	"vigil/internal/routing"
	"vigil/internal/tracing"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env if present; real deployments set the environment directly
	_ = godotenv.Load()

	// Configure zerolog
	// Set log level from environment (default: info)
	logLevel := os.Getenv("LOG_LEVEL")
	switch logLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Use pretty console logging in development, JSON in production
	if os.Getenv("LOG_FORMAT") == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	log.Info().Msg("Starting Vigil moderation dashboard")

	ctx := context.Background()

	// Tracing is opt-in
	if os.Getenv("TRACING") == "true" {
		tp, err := tracing.Init(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize tracing")
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shut down tracer provider")
			}
		}()
		log.Info().Msg("Tracing initialized")
	}

	// Get port from env or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "18920"
	}

	dbPath := os.Getenv("VIGIL_DB_PATH")
	if dbPath == "" {
		// Default to XDG data directory or home directory for development
		dataDir := os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to get home directory")
			}
			dataDir = filepath.Join(home, ".local", "share")
		}
		dbPath = filepath.Join(dataDir, "vigil", "vigil.db")
	}

	store, err := docstore.Open(docstore.Options{
		Path: dbPath,
	})
	if err != nil {
		log.Fatal().Err(err).Str("path", dbPath).Msg("Failed to open document store")
	}
	defer store.Close()

	log.Info().Str("path", dbPath).Msg("Document store opened")

	activityPath := os.Getenv("VIGIL_ACTIVITY_DB_PATH")
	if activityPath == "" {
		activityPath = filepath.Join(filepath.Dir(dbPath), "activity.db")
	}
	activityIndex, err := activity.Open(activityPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", activityPath).Msg("Failed to open activity log")
	}
	defer activityIndex.Close()

	log.Info().Str("path", activityPath).Msg("Activity log opened")

	// Role config controls who may use the dashboard; without it every
	// moderation request is denied
	identityService, err := identity.NewService(os.Getenv("VIGIL_ROLES_PATH"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load role configuration")
	}
	if identityService.IsEnabled() {
		log.Info().
			Int("admin_users", len(identityService.ListAdminUsers())).
			Msg("Role configuration loaded")
	} else {
		log.Warn().Msg("No role configuration; all moderation requests will be denied")
	}

	// Operator notices go both to the log and to an in-memory buffer the
	// dashboard polls
	notices := notify.NewMemorySink(50)
	sink := notify.Multi{notify.LogSink{}, notices}

	engine := reputation.NewEngine(store, identityService, sink)
	cache := profile.NewSnapshotCache()
	aggregator := profile.NewAggregator(store, activityIndex, cache)
	dispatcher := profile.NewDispatcher(engine, cache)

	h := handlers.NewHandler(handlers.Config{
		Identity:   identityService,
		Engine:     engine,
		Aggregator: aggregator,
		Dispatcher: dispatcher,
		Activity:   activityIndex,
		Store:      store,
		Notices:    notices,
	})

	// Keep the dashboard gauges fresh
	metrics.StartCollector(ctx, metrics.StatsSource{
		ReputationRecordCount:  collectionCounter(ctx, store, docstore.CollectionUserReputation),
		SuspiciousAccountCount: collectionCounter(ctx, store, docstore.CollectionSuspiciousAccounts),
		AdminActionCount:       collectionCounter(ctx, store, docstore.CollectionAdminActions),
		AdminNoteCount:         collectionCounter(ctx, store, docstore.CollectionAdminNotes),
	}, time.Minute)

	handler := routing.SetupRouter(routing.Config{
		Handlers: h,
		Identity: identityService,
		Logger:   log.Logger,
	})

	log.Info().
		Str("address", "0.0.0.0:"+port).
		Str("url", "http://localhost:"+port).
		Str("database", dbPath).
		Msg("Starting HTTP server")

	if err := http.ListenAndServe("0.0.0.0:"+port, handler); err != nil {
		log.Fatal().Err(err).Msg("Server failed to start")
	}
}

// collectionCounter adapts a collection count to the stats collector's
// callback shape. Count errors read as zero.
func collectionCounter(ctx context.Context, store *docstore.Store, collection string) func() int {
	return func() int {
		n, err := store.Count(ctx, collection)
		if err != nil {
			log.Warn().Err(err).Str("collection", collection).Msg("Collection count failed")
			return 0
		}
		return n
	}
}
