package service

import "context"

// StoreTx provides the transactional boundary for lifecycle mutations.
//
// Implementations carry the transaction in the context handed to fn, so every
// store touched inside fn joins the same atomic scope: the in-memory document
// store serializes on its engine mutex, the postgres runner opens a *sql.Tx.
// A nested RunInTx joins the enclosing transaction rather than opening a new
// one, which lets the transfer manager drive contract transitions inside its
// own scope.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
