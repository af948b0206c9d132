package main

import (
	"context"

	"github.com/sells-group/lead-generator/internal/store"
)

// initStore opens and migrates the configured history store.
func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}
