package main

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"kedai/internal/config"
	"kedai/internal/database"
	"kedai/internal/events"
	"kedai/internal/handlers"
	"kedai/internal/middleware"
	"kedai/internal/repositories"
	"kedai/internal/seed"
	"kedai/internal/services"
	"kedai/pkg/kafka"
	"kedai/pkg/rabbitmq"
)

// App is the assembled service: the HTTP app plus the resources it owns.
type App struct {
	Fiber *fiber.App

	cfg     *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	mq      *rabbitmq.Client
	closers []func() error

	consumerCancel context.CancelFunc
	consumerDone   chan struct{}
}

type repoSet struct {
	products repositories.ProductRepository
	users    repositories.UserRepository
	orders   repositories.OrderRepository
	points   repositories.PointsRepository
}

// NewApp wires storage, event transport, services and routes from cfg.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	repos, err := a.openStorage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	publisher, err := a.openPublisher()
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.SeedCatalog {
		if _, err := seed.Products(ctx, repos.products, logger); err != nil {
			a.Close()
			return nil, err
		}
	}
	if cfg.BootstrapAdmin() {
		if err := seed.Admin(ctx, repos.users, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword, logger); err != nil {
			a.Close()
			return nil, err
		}
	}

	// --- Initialize Services ---
	productService := services.NewProductService(repos.products)
	orderService := services.NewOrderService(repos.orders, repos.products, repos.users, publisher, logger)
	pointsService := services.NewPointsService(repos.points, logger)
	authService := services.NewAuthService(repos.users, cfg.JWTSecret, cfg.JWTTTL)

	// --- Initialize Handlers ---
	validate := validator.New()
	productHandler := handlers.NewProductHandler(productService, validate, logger)
	orderHandler := handlers.NewOrderHandler(orderService, validate, logger)
	pointsHandler := handlers.NewPointsHandler(pointsService, logger)
	authHandler := handlers.NewAuthHandler(authService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      "kedai",
		ErrorHandler: errorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(logger))
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSOrigins}))

	app.Get("/health", a.handleHealth)

	guards := handlers.Guards{
		Auth:     middleware.AuthRequired(authService, logger),
		Optional: middleware.OptionalAuth(authService, logger),
		Admin:    middleware.AdminOnly(),
	}
	apiV1 := app.Group("/api/v1")
	authHandler.RegisterRoutes(apiV1, guards)
	productHandler.RegisterRoutes(apiV1, guards)
	orderHandler.RegisterRoutes(apiV1, guards)
	pointsHandler.RegisterRoutes(apiV1, guards)

	a.Fiber = app

	if a.mq != nil {
		a.startPointsAudit(pointsService)
	}
	return a, nil
}

func (a *App) openStorage(ctx context.Context) (repoSet, error) {
	if a.cfg.DBDriver == config.DBDriverMemory {
		store := repositories.NewMemoryStore()
		a.logger.Info("Using in-memory storage")
		return repoSet{
			products: repositories.NewMockProductRepository(store),
			users:    repositories.NewMockUserRepository(store),
			orders:   repositories.NewMockOrderRepository(store),
			points:   repositories.NewMockPointsRepository(store),
		}, nil
	}

	db, err := database.Open(ctx, database.Options{
		Driver:       a.cfg.DBDriver,
		DSN:          a.cfg.DatabaseDSN,
		MaxOpenConns: a.cfg.DBMaxOpenConns,
	})
	if err != nil {
		return repoSet{}, err
	}
	a.db = db
	a.closers = append(a.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	if err := database.Migrate(db); err != nil {
		return repoSet{}, err
	}
	a.logger.Info("Connected to database", zap.String("driver", a.cfg.DBDriver))

	return repoSet{
		products: repositories.NewGORMProductRepository(db),
		users:    repositories.NewGORMUserRepository(db),
		orders:   repositories.NewGORMOrderRepository(db),
		points:   repositories.NewGORMPointsRepository(db),
	}, nil
}

// openPublisher returns a nil Publisher when events are disabled.
func (a *App) openPublisher() (events.Publisher, error) {
	switch a.cfg.EventsDriver {
	case config.EventsRabbitMQ:
		client, err := rabbitmq.NewClient(rabbitmq.Config{
			URL:      a.cfg.RabbitMQURL,
			Exchange: a.cfg.RabbitMQExchange,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		a.mq = client
		a.closers = append(a.closers, client.Close)
		return client, nil
	case config.EventsKafka:
		producer := kafka.NewProducer(a.cfg.KafkaBrokers, a.cfg.KafkaTopic)
		a.closers = append(a.closers, producer.Close)
		a.logger.Info("Publishing events to Kafka", zap.Strings("brokers", a.cfg.KafkaBrokers), zap.String("topic", a.cfg.KafkaTopic))
		return producer, nil
	default:
		return nil, nil
	}
}

// startPointsAudit consumes points.earned and checks the balance against
// the ledger, restarting the consumer after a broker hiccup.
func (a *App) startPointsAudit(points *services.PointsService) {
	ctx, cancel := context.WithCancel(context.Background())
	a.consumerCancel = cancel
	a.consumerDone = make(chan struct{})

	go func() {
		defer close(a.consumerDone)
		for {
			err := a.mq.Consume(ctx, a.cfg.RabbitMQAuditQueue, events.PointsEarned, points.HandlePointsEarned)
			if ctx.Err() != nil {
				return
			}
			a.logger.Warn("Points audit consumer stopped, restarting", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
		}
	}()
}

func (a *App) handleHealth(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":   "healthy",
		"time":     time.Now().Format(time.RFC3339),
		"database": a.cfg.DBDriver,
		"events":   a.cfg.EventsDriver,
	}
	if a.db != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := database.Ping(ctx, a.db); err != nil {
			a.logger.Warn("Health check failed", zap.Error(err))
			body["status"] = "unhealthy"
			body["error"] = err.Error()
			return c.Status(fiber.StatusServiceUnavailable).JSON(body)
		}
	}
	return c.JSON(body)
}

// Close stops the consumer and releases connections.
func (a *App) Close() error {
	if a.consumerCancel != nil {
		a.consumerCancel()
		<-a.consumerDone
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Errorf("close app: %v", errs)
	}
	return nil
}

// errorHandler renders errors that escape handlers, such as unknown routes,
// in the response envelope.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal server error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("Unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"message": message,
		})
	}
}
