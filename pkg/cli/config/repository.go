package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bambooslack/pkg/domain/interfaces"
	"github.com/secmon-lab/bambooslack/pkg/repository/firestore"
	"github.com/secmon-lab/bambooslack/pkg/repository/ledger"
	"github.com/secmon-lab/bambooslack/pkg/repository/leveldb"
	"github.com/secmon-lab/bambooslack/pkg/repository/memory"
	"github.com/secmon-lab/bambooslack/pkg/repository/postgres"
	"github.com/secmon-lab/bambooslack/pkg/utils/crypt"
	"github.com/secmon-lab/bambooslack/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

const (
	BackendLevelDB   = "leveldb"
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
)

// Repository holds CLI flags for repository backend configuration
type Repository struct {
	backend          string
	leveldbPath      string
	leveldbSync      bool
	projectID        string
	databaseID       string
	collectionPrefix string
	postgresDSN      string
	postgresTable    string
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Repository backend type (leveldb, memory, firestore or postgres)",
			Category:    "Storage",
			Value:       BackendLevelDB,
			Sources:     cli.EnvVars("BAMBOOSLACK_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "leveldb-path",
			Usage:       "LevelDB database directory",
			Category:    "Storage",
			Value:       "bambooslack.db",
			Sources:     cli.EnvVars("BAMBOOSLACK_LEVELDB_PATH"),
			Destination: &r.leveldbPath,
		},
		&cli.BoolFlag{
			Name:        "leveldb-sync",
			Usage:       "Sync every LevelDB write to disk",
			Category:    "Storage",
			Sources:     cli.EnvVars("BAMBOOSLACK_LEVELDB_SYNC"),
			Destination: &r.leveldbSync,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Category:    "Storage",
			Sources:     cli.EnvVars("BAMBOOSLACK_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Category:    "Storage",
			Sources:     cli.EnvVars("BAMBOOSLACK_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
		&cli.StringFlag{
			Name:        "firestore-collection-prefix",
			Usage:       "Prefix of the Firestore collection name",
			Category:    "Storage",
			Sources:     cli.EnvVars("BAMBOOSLACK_FIRESTORE_COLLECTION_PREFIX"),
			Destination: &r.collectionPrefix,
		},
		&cli.StringFlag{
			Name:        "postgres-dsn",
			Usage:       "PostgreSQL connection string (required when using postgres backend)",
			Category:    "Storage",
			Sources:     cli.EnvVars("BAMBOOSLACK_POSTGRES_DSN"),
			Destination: &r.postgresDSN,
		},
		&cli.StringFlag{
			Name:        "postgres-table",
			Usage:       "PostgreSQL table name",
			Category:    "Storage",
			Value:       postgres.DefaultTableName,
			Sources:     cli.EnvVars("BAMBOOSLACK_POSTGRES_TABLE"),
			Destination: &r.postgresTable,
		},
	}
}

func (r Repository) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("backend", r.backend)}
	switch r.backend {
	case BackendLevelDB:
		attrs = append(attrs, slog.String("path", r.leveldbPath), slog.Bool("sync", r.leveldbSync))
	case BackendFirestore:
		attrs = append(attrs,
			slog.String("project_id", r.projectID),
			slog.String("database_id", r.databaseID),
			slog.String("collection_prefix", r.collectionPrefix))
	case BackendPostgres:
		attrs = append(attrs, slog.Int("dsn.len", len(r.postgresDSN)), slog.String("table", r.postgresTable))
	}
	return slog.GroupValue(attrs...)
}

// Backend returns the configured backend type
func (r *Repository) Backend() string {
	return r.backend
}

// ProjectID returns the Firestore project ID
func (r *Repository) ProjectID() string {
	return r.projectID
}

// DatabaseID returns the Firestore database ID
func (r *Repository) DatabaseID() string {
	return r.databaseID
}

// CollectionPrefix returns the Firestore collection prefix
func (r *Repository) CollectionPrefix() string {
	return r.collectionPrefix
}

// Store opens the KV engine of the configured backend
func (r *Repository) Store(ctx context.Context) (interfaces.KVStore, error) {
	switch r.backend {
	case BackendLevelDB:
		if r.leveldbPath == "" {
			return nil, goerr.Wrap(ErrMissingRequired, "leveldb-path is required when using leveldb backend")
		}
		store, err := leveldb.New(r.leveldbPath, leveldb.WithSyncWrite(r.leveldbSync))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize leveldb repository")
		}
		logging.Default().Info("Using LevelDB repository", "path", r.leveldbPath)
		return store, nil

	case BackendMemory:
		logging.Default().Info("Using in-memory repository (development mode)")
		return memory.New(), nil

	case BackendFirestore:
		if r.projectID == "" {
			return nil, goerr.Wrap(ErrMissingRequired, "firestore-project-id is required when using firestore backend")
		}
		store, err := firestore.New(ctx, r.projectID, r.databaseID, firestore.WithCollectionPrefix(r.collectionPrefix))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore repository")
		}
		logging.Default().Info("Using Firestore repository",
			"project_id", r.projectID,
			"database_id", r.databaseID,
			"collection", store.CollectionID(),
		)
		return store, nil

	case BackendPostgres:
		store, err := postgres.New(r.postgresDSN, postgres.WithTableName(r.postgresTable))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize postgres repository")
		}
		logging.Default().Info("Using PostgreSQL repository", "table", r.postgresTable)
		return store, nil

	default:
		return nil, goerr.Wrap(ErrInvalidBackend, "unknown backend", goerr.V("backend", r.backend))
	}
}

// Configure opens the configured KV engine and returns the encrypted ledger over it.
// The caller is responsible for calling Close() on the returned repository.
func (r *Repository) Configure(ctx context.Context, cipher *crypt.Cipher) (interfaces.Repository, error) {
	store, err := r.Store(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.New(store, cipher), nil
}
