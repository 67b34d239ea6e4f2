package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Invalidator drops cached pricing for a lot after a pricing write.
type Invalidator interface {
	Invalidate(lotID snowflake.ID)
}

// Resolver produces the effective Config for a lot.
type Resolver interface {
	Invalidator
	Resolve(ctx context.Context, lotID snowflake.ID) (Config, error)
}

var (
	ErrLotNotFound   = errors.New("lot_not_found")
	ErrOwnerNotFound = errors.New("owner_not_found")
	ErrInvalidConfig = errors.New("invalid_pricing_config")
)
