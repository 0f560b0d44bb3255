package repositories

import "context"

// TxManager runs fn inside a single store transaction. The transaction travels
// in the context handed to fn; every repository call made with that context
// joins it. A non-nil error from fn rolls the transaction back.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
