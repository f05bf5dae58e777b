package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context is what the question repos accept instead of a bare context: the
// request context plus an optional transaction. The sync orchestrator passes
// Tx nil (each repo call commits on its own, matching the per-step ledger
// updates); repo tests pass the rolled-back test transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// DB returns the transaction when one is set, otherwise the fallback handle.
func (c Context) DB(fallback *gorm.DB) *gorm.DB {
	if c.Tx != nil {
		return c.Tx
	}
	return fallback
}
