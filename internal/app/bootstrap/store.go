package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	appconfig "github.com/milehighpros/lead-intake/internal/config"
	"github.com/milehighpros/lead-intake/internal/leads"
	"github.com/milehighpros/lead-intake/pkg/logging"
)

// BuildLeadRepository connects the lead store. With DATABASE_URL set leads
// go straight to Postgres through a pgx pool; otherwise they are written via
// the Supabase REST endpoint. The returned close func is never nil.
func BuildLeadRepository(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (leads.Repository, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	if cfg.UsePostgres() {
		poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: parse database url: %w", err)
		}
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
		}
		logger.Info("lead store using postgres", "max_conns", poolCfg.MaxConns)
		return leads.NewPostgresRepository(pool), pool.Close, nil
	}

	if cfg.SupabaseURL == "" || cfg.SupabaseServiceRoleKey == "" {
		logger.Warn("lead store not configured; submissions will fail until SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are set")
	} else {
		logger.Info("lead store using supabase rest", "table", cfg.SupabaseLeadsTable)
	}
	repo := leads.NewRESTRepository(leads.RESTConfig{
		BaseURL:    cfg.SupabaseURL,
		ServiceKey: cfg.SupabaseServiceRoleKey,
		Table:      cfg.SupabaseLeadsTable,
	})
	return repo, func() {}, nil
}
