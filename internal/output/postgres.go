package output

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/taprootstats/tapscan/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const upsertBlockStats = `
INSERT INTO block_stats (height, total_txs, total_inputs, mixed_tx_count, schnorr_sigs, non_schnorr_sigs)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (height) DO UPDATE SET
	total_txs = EXCLUDED.total_txs,
	total_inputs = EXCLUDED.total_inputs,
	mixed_tx_count = EXCLUDED.mixed_tx_count,
	schnorr_sigs = EXCLUDED.schnorr_sigs,
	non_schnorr_sigs = EXCLUDED.non_schnorr_sigs`

// PostgresHandler mirrors the result set into a block_stats table. Rows are
// upserted by height so re-running a scan is idempotent.
type PostgresHandler struct {
	db *sql.DB
}

var _ Handler = (*PostgresHandler)(nil)

// NewPostgresHandler connects, pings, and applies the embedded migrations.
func NewPostgresHandler(ctx context.Context, connString string) (*PostgresHandler, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	h := &PostgresHandler{db: db}
	if err := h.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

func (h *PostgresHandler) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := migratepgx.WithInstance(h.db, &migratepgx.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func (h *PostgresHandler) WriteResults(ctx context.Context, results []models.BlockResult) error {
	slog.Info("Writing results to postgres", "rows", len(results))

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, r := range results {
		_, err := tx.ExecContext(ctx, upsertBlockStats,
			r.Height,
			int64(r.TotalTxs),
			int64(r.TotalInputs),
			int64(r.MixedTxCount),
			int64(r.SchnorrSigs),
			int64(r.NonSchnorrSigs),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to upsert block stats for height %d: %w", r.Height, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit block stats: %w", err)
	}
	return nil
}

func (h *PostgresHandler) Close() error {
	return h.db.Close()
}
