package gateway

import (
	"context"

	"docbase/internal/gateway/adapter/cache"
	httpadapter "docbase/internal/gateway/adapter/http"
	mongodbpersistence "docbase/internal/gateway/adapter/persistence/mongodb"
	postgrespersistence "docbase/internal/gateway/adapter/persistence/postgres"
	"docbase/internal/gateway/config"
	"docbase/internal/gateway/metrics"
	"docbase/internal/gateway/usecase"
	"docbase/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// Module bundles the gateway's wired components: the metadata catalog on
// Postgres, the physical document store on MongoDB, the usage pipeline with
// its Redis rollup cache, and the HTTP surface.
type Module struct {
	Config      *config.Config
	Catalog     *postgrespersistence.CatalogStore
	UsageStore  *postgrespersistence.UsageStore
	Physical    *mongodbpersistence.StoreGateway
	RollupCache *cache.RedisRollupCache
	Usecase     *usecase.GatewayUsecase
	Handler     *httpadapter.Handler
	Metrics     *metrics.Metrics
	Logger      logger.Logger
}

// NewModule wires the gateway from already-connected clients. redisClient may
// be nil, in which case rollups are always computed from the operation log.
func NewModule(
	cfg *config.Config,
	mongoClient *mongo.Client,
	pgPool *pgxpool.Pool,
	redisClient *redis.Client,
	log logger.Logger,
) (*Module, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	m := metrics.New()

	catalog := postgrespersistence.NewCatalogStore(pgPool, log)
	usageStore := postgrespersistence.NewUsageStore(pgPool, log)
	physical := mongodbpersistence.NewStoreGateway(mongoClient, log)

	var rollupCache *cache.RedisRollupCache
	usageLogger := usecase.NewUsageLogger(usageStore, nil, cfg.Redis.RollupTTL, log, m)
	if redisClient != nil {
		rollupCache = cache.NewRedisRollupCache(redisClient, log)
		usageLogger = usecase.NewUsageLogger(usageStore, rollupCache, cfg.Redis.RollupTTL, log, m)
	}

	evolution := usecase.NewEvolutionEngine(physical, log)
	uc := usecase.NewGatewayUsecase(catalog, physical, evolution, usageLogger, cfg.Limits, log, m)
	handler := httpadapter.NewHandler(uc, log)

	return &Module{
		Config:      cfg,
		Catalog:     catalog,
		UsageStore:  usageStore,
		Physical:    physical,
		RollupCache: rollupCache,
		Usecase:     uc,
		Handler:     handler,
		Metrics:     m,
		Logger:      log,
	}, nil
}

// EnsureSchema creates the catalog and operation-log tables if they do not
// exist. Call once at startup before serving traffic.
func (mod *Module) EnsureSchema(ctx context.Context) error {
	if err := mod.Catalog.EnsureSchema(ctx); err != nil {
		return err
	}
	return mod.UsageStore.EnsureSchema(ctx)
}

// RegisterRoutes mounts the gateway API on the given router.
func (mod *Module) RegisterRoutes(router fiber.Router) {
	mod.Handler.RegisterRoutes(router)
}
