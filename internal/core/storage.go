package core

import (
	"context"
	"fmt"
	"os"
	"strings"

	"campuslife/internal/infra/persistence/memory"
	mongostore "campuslife/internal/infra/persistence/mongo"
	"campuslife/internal/infra/persistence/postgres"
	"campuslife/internal/infra/persistence/sqlite"
	"campuslife/pkg/domain"
)

// Environment variables consumed by OpenStore.
const (
	EnvStorageDriver = "CAMPUSLIFE_STORAGE_DRIVER"
	EnvSQLitePath    = "CAMPUSLIFE_SQLITE_PATH"
	EnvPostgresDSN   = "CAMPUSLIFE_POSTGRES_DSN"
	EnvMongoURI      = "CAMPUSLIFE_MONGO_URI"
	EnvMongoDatabase = "CAMPUSLIFE_MONGO_DATABASE"
)

const (
	defaultSQLitePath = "campuslife.db"
	defaultMongoURI   = "mongodb://localhost:27017"
	defaultMongoDB    = "campuslife"
)

// OpenStore selects and opens a storage backend from the environment.
// Supported drivers: memory, sqlite (default), postgres, mongo. Stores that
// hold external resources implement io.Closer.
func OpenStore(ctx context.Context, auth domain.Authenticator) (domain.Store, error) {
	driver := strings.ToLower(strings.TrimSpace(os.Getenv(EnvStorageDriver)))
	switch driver {
	case "memory":
		return memory.NewStore(memory.WithAuthenticator(auth)), nil
	case "", "sqlite":
		path := os.Getenv(EnvSQLitePath)
		if path == "" {
			path = defaultSQLitePath
		}
		return sqlite.Open(path, memory.WithAuthenticator(auth))
	case "postgres":
		return postgres.Open(os.Getenv(EnvPostgresDSN), memory.WithAuthenticator(auth))
	case "mongo":
		uri := os.Getenv(EnvMongoURI)
		if uri == "" {
			uri = defaultMongoURI
		}
		database := os.Getenv(EnvMongoDatabase)
		if database == "" {
			database = defaultMongoDB
		}
		return mongostore.Connect(ctx, uri, database, auth)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
