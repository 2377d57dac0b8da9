package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"

	"ms-reservations/internal/auth"
	"ms-reservations/internal/config"
	"ms-reservations/internal/database"
	"ms-reservations/internal/database/migrations"
	"ms-reservations/internal/events"
	eventdb "ms-reservations/internal/events/db"
	"ms-reservations/internal/events/event_api"
	"ms-reservations/internal/kafka"
	"ms-reservations/internal/locations"
	locationdb "ms-reservations/internal/locations/db"
	"ms-reservations/internal/locations/location_api"
	"ms-reservations/internal/logger"
	"ms-reservations/internal/models"
	"ms-reservations/internal/reservation"
	resdb "ms-reservations/internal/reservation/db"
	reslock "ms-reservations/internal/reservation/redis"
	"ms-reservations/internal/reservation/reservation_api"
	"ms-reservations/internal/sse"
	"ms-reservations/internal/stats"
	"ms-reservations/internal/stats/stats_api"
	qr "ms-reservations/internal/tickets/qr_genrator"
	"ms-reservations/internal/tickets/template"
	"ms-reservations/internal/users"
	userdb "ms-reservations/internal/users/db"
	"ms-reservations/internal/users/user_api"
	"ms-reservations/internal/utils"
)

const serviceName = "ms-reservations"

// lifecyclePublisher is satisfied by both the Kafka producer and its no-op stand-in.
type lifecyclePublisher interface {
	reservation.Publisher
	events.Publisher
	Close() error
}

func prepareSchema(ctx context.Context, cfg *config.Config, bunDB *bun.DB, log *logger.Logger) error {
	if !cfg.Database.AutoMigrate {
		log.Info("DATABASE", "AUTO_MIGRATE disabled, skipping schema setup")
		return nil
	}

	if cfg.Database.Driver != database.DriverPostgres {
		log.Info("DATABASE", fmt.Sprintf("Creating schema from models for %s", cfg.Database.Driver))
		return database.CreateSchema(ctx, bunDB)
	}

	// The migration driver closes the connection it is given, so it gets its own.
	migDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer migDB.Close()

	runner := migrations.NewRunner(migDB, migrations.Options{MigrationsDir: cfg.Database.MigrationsDir}, log)
	defer runner.Close()
	return runner.RunMigrations()
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("REDIS", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Addr, cfg.DB))
	return client
}

func newPublisher(cfg config.KafkaConfig, log *logger.Logger) lifecyclePublisher {
	if !cfg.Enabled {
		log.Info("KAFKA", "Kafka disabled, lifecycle messages will not be published")
		return kafka.NopPublisher{Logger: log}
	}

	topics := []string{cfg.Topics.Reservations, cfg.Topics.Events}
	if err := kafka.EnsureTopicsExist(cfg.Brokers, topics, log); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	}
	log.Info("KAFKA", fmt.Sprintf("Kafka producer initialized for brokers %v", cfg.Brokers))
	return kafka.NewProducer(cfg.Brokers, kafka.Topics{
		Reservations: cfg.Topics.Reservations,
		Events:       cfg.Topics.Events,
	}, log)
}

func newVerifier(ctx context.Context, cfg config.AuthConfig) (auth.Verifier, error) {
	switch cfg.Mode {
	case "oidc":
		return auth.NewOIDCVerifier(ctx, cfg.OIDCIssuer, cfg.RoleClaim)
	case "hmac":
		return auth.NewHMACVerifier(cfg.JWTSecret, cfg.RoleClaim)
	default:
		return nil, fmt.Errorf("unknown AUTH_MODE %q", cfg.Mode)
	}
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(logger.Options{Dir: cfg.Log.Dir, Service: serviceName, Level: cfg.Log.Level})
	if err != nil {
		log = logger.NewLogger()
		log.Warn("APP", fmt.Sprintf("File logging disabled: %v", err))
	}
	defer log.Close()

	log.Info("APP", "Starting reservation service initialization")
	if envErr != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	}

	ctx := context.Background()

	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	if err := prepareSchema(ctx, cfg, bunDB, log); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Schema setup failed: %v", err))
	}

	redisClient := connectRedis(ctx, cfg.Redis, log)
	defer redisClient.Close()

	publisher := newPublisher(cfg.Kafka, log)
	defer publisher.Close()

	verifier, err := newVerifier(ctx, cfg.Auth)
	if err != nil {
		log.Fatal("AUTH", err.Error())
	}
	log.Info("AUTH", fmt.Sprintf("Token verification mode: %s", cfg.Auth.Mode))

	if cfg.Tickets.QRSecretKey == "" {
		log.Warn("CONFIG", "QR_SECRET_KEY not set, QR payloads use an empty key")
	}

	emitter := sse.NewReservationEventEmitter()
	locker := reslock.NewRedis(redisClient, cfg.Redis.LockTTL, cfg.Redis.LockWait, log)

	// With Kafka on, every instance feeds its SSE clients from the topic so
	// changes committed on other instances are streamed too.
	var notifier reservation.Notifier = emitter
	if cfg.Kafka.Enabled {
		consumerCtx, stopConsumer := context.WithCancel(ctx)
		groupID := fmt.Sprintf("%s-sse-%s", serviceName, uuid.NewString())
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.Reservations, groupID, log)
		defer func() {
			stopConsumer()
			consumer.Close()
		}()
		go consumer.Start(consumerCtx, emitter.Emit)
		notifier = nil
	}

	locationService := locations.NewLocationService(&locationdb.DB{Bun: bunDB}, log)
	eventService := events.NewEventService(&eventdb.DB{Bun: bunDB}, publisher, log)
	reservationService := reservation.NewReservationService(&resdb.DB{Bun: bunDB}, locker, publisher, notifier, log)
	statsService := stats.NewService(bunDB)
	userService := users.NewUserService(&userdb.DB{Bun: bunDB}, log)

	locationHandler := &location_api.Handler{LocationService: locationService, Logger: log}
	eventHandler := &event_api.Handler{EventService: eventService, Logger: log}
	reservationHandler := &reservation_api.Handler{
		ReservationService: reservationService,
		QR:                 qr.NewQRGenerator(cfg.Tickets.QRSecretKey),
		PDF:                template.NewTicketPDFGenerator(cfg.Tickets.FontPath),
		Logger:             log,
	}
	sseHandler := reservation_api.NewSSEHandler(log, emitter)
	statsHandler := stats_api.NewHandler(statsService, log)
	userHandler := &user_api.Handler{UserService: userService, Logger: log}

	authenticated := auth.Middleware(verifier, log)
	adminOnly := auth.RequireRole(models.RoleAdmin)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(utils.RequestLogger(log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w, http.StatusOK, "ok", nil)
	})

	r.Route("/api", func(r chi.Router) {
		// --- Public catalogue, admin event management ---
		r.Route("/events", func(r chi.Router) {
			eventHandler.RegisterPublicRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(authenticated, adminOnly)
				eventHandler.RegisterAdminRoutes(r)
			})
		})
		log.Info("ROUTER", "Event routes registered under /api/events")

		// --- Protected Routes ---
		r.Group(func(r chi.Router) {
			r.Use(authenticated)

			r.Route("/reservations", func(r chi.Router) {
				reservationHandler.RegisterRoutes(r)
				r.Group(func(r chi.Router) {
					r.Use(adminOnly)
					reservationHandler.RegisterAdminRoutes(r)
				})
			})
			log.Info("ROUTER", "Reservation routes registered under /api/reservations")

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Route("/locations", locationHandler.RegisterRoutes)
				r.Route("/stats", statsHandler.RegisterRoutes)
				r.Route("/users", userHandler.RegisterRoutes)
				r.Get("/admin/reservations/stream", sseHandler.HandleReservationStream)
			})
			log.Info("ROUTER", "Admin routes registered for locations, stats, users and the reservation stream")
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Reservation Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Reservation Service shutdown complete")
	}
}
