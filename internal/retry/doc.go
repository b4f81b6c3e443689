// Package retry retries opening a destination store when the failure looks
// transient. Ingestion itself never retries a stage; only connection
// establishment can opt in, and the default attempt budget is zero.
//
//	exec := retry.ForConnect(cfg.ConnectRetries)
//	pool, err := retry.Value(ctx, exec, func(ctx context.Context) (*pgxpool.Pool, error) {
//	    return pgxpool.NewWithConfig(ctx, poolCfg)
//	})
package retry
