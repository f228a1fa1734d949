package ports

import "context"

// Transactor runs fn atomically. Repositories called with the ctx handed to fn
// take part in the transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
