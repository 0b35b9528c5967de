package weights

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/iwvelando/pawn-calculator/internal/config"
	"github.com/iwvelando/pawn-calculator/pkg/constants"
	"go.uber.org/zap"
)

// NewStore opens the backend selected by cfg. The returned close function
// releases its connections.
func NewStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (Store, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	noop := func() error { return nil }

	switch cfg.Driver {
	case constants.StoreDriverMemory, "":
		return NewMemoryStore(), noop, nil

	case constants.StoreDriverRedis:
		client := NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping failed: %w", err)
		}
		return NewRedisStore(client, cfg.AppID, logger), client.Close, nil

	case constants.StoreDriverPostgres:
		db, err := OpenPostgres(cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		store := NewPostgresStore(db, cfg.AppID, cfg.Postgres.PollInterval, logger)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, db.Close, nil

	case constants.StoreDriverFirestore:
		client, err := firestore.NewClient(ctx, cfg.Firestore.ProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create firestore client: %w", err)
		}
		return NewFirestoreStore(client, cfg.AppID, logger), client.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
