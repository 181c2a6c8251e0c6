package repositories

import (
	"context"

	"cinesync/internal/core/ports"
	"cinesync/internal/infrastructure/repositories/gormdb"
	"cinesync/internal/infrastructure/repositories/memory"
	redisrepo "cinesync/internal/infrastructure/repositories/redis"
	"cinesync/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RepositoryFactory creates repositories with fallback support: presence,
// chat and locking go to Redis when available, the durable catalog goes to
// Postgres when configured, and everything degrades to in-memory stores for
// single-node and test deployments.
type RepositoryFactory struct {
	cfg         *config.Config
	useRedis    bool
	useDB       bool
	redisClient *redis.Client
	db          *gorm.DB
	logger      *zap.SugaredLogger

	memRooms    ports.RoomRepository
	memUsers    *memory.MemoryUserRepository
	memMovies   ports.MovieRepository
	memComments ports.CommentRepository
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		cfg:      cfg,
		useRedis: cfg.Redis.Enabled,
		useDB:    cfg.Database.Enabled,
		logger:   logger,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory repositories",
				"error", err,
			)
			factory.useRedis = false
		} else {
			factory.redisClient = client
			logger.Info("using Redis repositories")
		}
	}

	if cfg.Database.Enabled {
		db, err := gormdb.Open(cfg.Database.DSN)
		if err != nil {
			logger.Warnw("failed to connect to database, falling back to memory repositories",
				"error", err,
			)
			factory.useDB = false
		} else {
			factory.db = db
			logger.Info("using database repositories")
		}
	}

	if !factory.useRedis || !factory.useDB {
		logger.Info("memory repositories active for some stores")
	}

	// Memory stores are shared so every consumer sees one state.
	factory.memRooms = memory.NewMemoryRoomRepository()
	factory.memUsers = memory.NewMemoryUserRepository()
	factory.memMovies = memory.NewMemoryMovieRepository()
	factory.memComments = memory.NewMemoryCommentRepository()

	return factory, nil
}

// CreateRoomRepository creates the durable room catalog.
func (f *RepositoryFactory) CreateRoomRepository() ports.RoomRepository {
	if f.useDB && f.db != nil {
		return gormdb.NewGormRoomRepository(f.db)
	}
	return f.memRooms
}

// CreateSessionRepository creates the presence store.
func (f *RepositoryFactory) CreateSessionRepository() ports.SessionRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisSessionRepository(f.redisClient)
	}
	return memory.NewMemorySessionRepository()
}

// CreateChatRepository creates the bounded chat log.
func (f *RepositoryFactory) CreateChatRepository() ports.ChatRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisChatRepository(f.redisClient)
	}
	return memory.NewMemoryChatRepository()
}

// CreateRoomLocker creates the per-room critical section. The Redis locker
// is required for multi-instance deployments.
func (f *RepositoryFactory) CreateRoomLocker() ports.RoomLocker {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisRoomLocker(f.redisClient, f.cfg.Room.LockTTL, f.logger)
	}
	return memory.NewMemoryRoomLocker()
}

// CreateUserRepository creates the user lookup store.
func (f *RepositoryFactory) CreateUserRepository() ports.UserRepository {
	if f.useDB && f.db != nil {
		return gormdb.NewGormUserRepository(f.db)
	}
	return f.memUsers
}

// CreateMovieRepository creates the favorites store.
func (f *RepositoryFactory) CreateMovieRepository() ports.MovieRepository {
	if f.useDB && f.db != nil {
		return gormdb.NewGormMovieRepository(f.db)
	}
	return f.memMovies
}

// CreateCommentRepository creates the comment store.
func (f *RepositoryFactory) CreateCommentRepository() ports.CommentRepository {
	if f.useDB && f.db != nil {
		return gormdb.NewGormCommentRepository(f.db)
	}
	return f.memComments
}

// RedisClient exposes the shared Redis connection, or nil when Redis is not
// in use. Consumers outside the repository layer (the event bus) share it.
func (f *RepositoryFactory) RedisClient() *redis.Client {
	if !f.useRedis {
		return nil
	}
	return f.redisClient
}

// Close closes the Redis connection if used.
func (f *RepositoryFactory) Close() error {
	if f.redisClient != nil {
		return redisrepo.CloseRedisClient(f.redisClient)
	}
	return nil
}

// HealthCheck checks backing store health.
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.useRedis && f.redisClient != nil {
		if err := f.redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	if f.useDB && f.db != nil {
		sqlDB, err := f.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
	return nil
}
