package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Session backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config selects where sessions live. The event log always uses the SQLite
// database at Path.
type Config struct {
	Backend string      `koanf:"backend"`
	Path    string      `koanf:"path"`
	Redis   RedisConfig `koanf:"redis"`
	Mongo   MongoConfig `koanf:"mongo"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type MongoConfig struct {
	URI      string `koanf:"uri"`
	Database string `koanf:"database"`
}

// DefaultConfig keeps everything in the local SQLite database.
func DefaultConfig() Config {
	return Config{
		Backend: BackendSQLite,
		Redis:   RedisConfig{Addr: "localhost:6379"},
		Mongo:   MongoConfig{URI: "mongodb://localhost:27017", Database: "viva"},
	}
}

// Validate checks the backend selection.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required for the redis backend")
		}
	case BackendMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return fmt.Errorf("store.mongo.uri and store.mongo.database are required for the mongo backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q: must be one of sqlite, memory, redis, mongo", c.Backend)
	}
	return nil
}

// Backend bundles the opened repositories and their connections.
type Backend struct {
	Sessions SessionRepo
	Events   EventRepo

	closers []func() error
}

// Close releases every connection the backend opened.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenBackend opens the SQLite database at cfg.Path for the event log and
// the configured session backend. Remote backends are pinged before use.
func OpenBackend(ctx context.Context, cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	path := cfg.Path
	if path == "" {
		p, err := DefaultDBPath()
		if err != nil {
			return nil, err
		}
		path = p
	} else if err := EnsureDir(path); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	st, err := Open(path)
	if err != nil {
		return nil, err
	}
	b := &Backend{Events: st.EventRepo(), closers: []func() error{st.Close}}

	switch cfg.Backend {
	case BackendSQLite:
		b.Sessions = st.SessionRepo()
	case BackendMemory:
		b.Sessions = NewMemorySessionRepo()
	case BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, rdb.Close)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			b.Close()
			return nil, fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
		}
		b.Sessions = NewRedisSessionRepo(rdb)
	case BackendMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		b.closers = append(b.closers, func() error { return client.Disconnect(context.Background()) })
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			b.Close()
			return nil, fmt.Errorf("ping mongo: %w", err)
		}
		b.Sessions = NewMongoSessionRepo(client.Database(cfg.Mongo.Database))
	}
	return b, nil
}
