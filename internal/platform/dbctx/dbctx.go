package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// New returns a Context that runs outside of any transaction.
func New(ctx context.Context) Context {
	return Context{Ctx: ctx}
}
