package trm

import "context"

// NopManager satisfies TxManager without a database. Used with the
// in-memory adapters, whose operations are individually atomic.
type NopManager struct{}

func (NopManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
