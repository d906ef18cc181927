package sheet

import (
	"time"

	"github.com/JonMunkholm/sheets/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service provides the sheet engine operations on top of a shared
// connection pool. It is safe for concurrent use; all mutating
// operations run inside per-call transactions.
type Service struct {
	pool           *pgxpool.Pool
	acquireTimeout time.Duration
	batchSize      int
	sampleSize     int
}

// NewService creates a Service bound to the process-wide pool.
func NewService(pool *pgxpool.Pool, cfg *config.Config) *Service {
	return &Service{
		pool:           pool,
		acquireTimeout: cfg.Database.AcquireTimeout,
		batchSize:      cfg.Upload.BatchSize,
		sampleSize:     cfg.Upload.PreviewSampleSize,
	}
}
