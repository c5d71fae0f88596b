package cmd

import (
	"log/slog"
	"time"

	httpin "lastmile/internal/adapters/in/http"
	"lastmile/internal/adapters/out/audit"
	"lastmile/internal/adapters/out/kafka"
	"lastmile/internal/adapters/out/postgres"
	"lastmile/internal/adapters/out/postgres/deliveryrepo"
	"lastmile/internal/adapters/out/postgres/historyrepo"
	"lastmile/internal/adapters/out/prometheus"
	"lastmile/internal/adapters/out/redis"
	"lastmile/internal/core/application/usecases/commands"
	"lastmile/internal/core/application/usecases/queries"
	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/services"
	"lastmile/internal/core/ports"
	"lastmile/internal/jobs"

	"github.com/labstack/echo/v4"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type CompositionRoot struct {
	configs    Config
	gormDB     *gorm.DB
	uowFactory *postgres.GormUnitOfWorkFactory
	logger     *slog.Logger

	validator  delivery.TransitionValidator
	checker    services.DeliveryConstraintChecker
	optimizer  services.RouteOptimizer
	effects    commands.SideEffects
	metrics    *prometheus.Metrics
	routeCache ports.RouteCache
}

// NewCompositionRoot wires the application. notifications and redisClient
// may be nil; the service then runs without notifications or route caching.
func NewCompositionRoot(
	configs Config,
	gormDB *gorm.DB,
	notifications kafka.MessageWriter,
	redisClient goredis.Cmdable,
	logger *slog.Logger,
) (CompositionRoot, error) {
	checker, err := services.NewDeliveryConstraintChecker(configs.MaxDeliveryAttempts)
	if err != nil {
		return CompositionRoot{}, err
	}
	table := services.DefaultPriorityTable()
	estimator, err := services.NewETAEstimator(configs.AverageSpeedKmh, table)
	if err != nil {
		return CompositionRoot{}, err
	}
	optimizer, err := services.NewRouteOptimizer(estimator, table)
	if err != nil {
		return CompositionRoot{}, err
	}

	metrics := prometheus.NewMetrics()
	hooks := []ports.TransitionHook{metrics}
	if notifications != nil {
		hooks = append(hooks, kafka.NewNotificationPublisher(notifications, services.DefaultNotificationPolicy()))
	}

	root := CompositionRoot{
		configs:    configs,
		gormDB:     gormDB,
		uowFactory: postgres.NewGormUnitOfWorkFactory(gormDB),
		logger:     logger,
		validator:  delivery.DefaultTransitionValidator(),
		checker:    checker,
		optimizer:  optimizer,
		effects: commands.NewSideEffects(logger, services.DefaultAuditPolicy(),
			audit.NewSlogSink(logger), hooks...),
		metrics: metrics,
	}
	if redisClient != nil {
		root.routeCache = redis.NewRouteCache(redisClient, configs.RouteCacheTTL)
	}
	return root, nil
}

func (c *CompositionRoot) CreateCreateDeliveryCommandHandler() commands.CreateDeliveryCommandHandler {
	return commands.NewCreateDeliveryCommandHandler(c.newUoWFactory(), c.effects, time.Now)
}

func (c *CompositionRoot) CreateChangeDeliveryStatusCommandHandler() commands.ChangeDeliveryStatusCommandHandler {
	return commands.NewChangeDeliveryStatusCommandHandler(c.newUoWFactory(), c.validator, c.checker, c.effects)
}

func (c *CompositionRoot) CreateAssignDriverCommandHandler() commands.AssignDriverCommandHandler {
	return commands.NewAssignDriverCommandHandler(c.newUoWFactory(), c.validator, c.checker, c.effects)
}

func (c *CompositionRoot) CreateCancelDeliveryCommandHandler() commands.CancelDeliveryCommandHandler {
	return commands.NewCancelDeliveryCommandHandler(c.newUoWFactory(), c.validator, c.checker, c.effects)
}

func (c *CompositionRoot) CreateRefreshRouteEstimatesCommandHandler() commands.RefreshRouteEstimatesCommandHandler {
	return commands.NewRefreshRouteEstimatesCommandHandler(
		c.newUoWFactory(), c.optimizer, c.configs.MaxRouteStops, c.effects, time.Now)
}

func (c *CompositionRoot) CreateGetStatusHistoryQueryHandler() queries.GetStatusHistoryQueryHandler {
	return queries.NewGetStatusHistoryQueryHandler(
		deliveryrepo.NewGormDeliveryRepository(c.gormDB),
		historyrepo.NewGormStatusHistoryRepository(c.gormDB),
	)
}

func (c *CompositionRoot) CreateOptimizeRouteQueryHandler() queries.OptimizeRouteQueryHandler {
	return queries.NewOptimizeRouteQueryHandler(
		queries.NewGormStopSource(c.gormDB),
		c.optimizer,
		c.configs.MaxRouteStops,
		c.routeCache,
		c.metrics,
		c.logger,
	)
}

func (c *CompositionRoot) CreateJobManager() *jobs.JobManager {
	return jobs.NewJobManager(c.CreateRefreshRouteEstimatesCommandHandler(), c.configs.RouteRefreshSchedule, c.logger)
}

// CreateRouter builds the HTTP API with health, metrics and Swagger UI.
func (c *CompositionRoot) CreateRouter() (*echo.Echo, error) {
	server := httpin.NewServer(httpin.Handlers{
		CreateDelivery:       c.CreateCreateDeliveryCommandHandler(),
		ChangeDeliveryStatus: c.CreateChangeDeliveryStatusCommandHandler(),
		AssignDriver:         c.CreateAssignDriverCommandHandler(),
		CancelDelivery:       c.CreateCancelDeliveryCommandHandler(),
		StatusHistory:        c.CreateGetStatusHistoryQueryHandler(),
		OptimizeRoute:        c.CreateOptimizeRouteQueryHandler(),
	}, c.configs.DefaultServiceMinutes, c.logger)
	return httpin.NewRouter(server, c.metrics.Handler(), c.logger)
}

func (c *CompositionRoot) newUoWFactory() commands.UoWFactory {
	return FuncUoWFactory(func() commands.UoW {
		return c.uowFactory.Create()
	})
}

type FuncUoWFactory func() commands.UoW

func (f FuncUoWFactory) Create() commands.UoW {
	return f()
}
