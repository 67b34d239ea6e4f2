// Package auth resolves the caller behind operator API requests.
package auth

import (
	"errors"

	"github.com/bwmarrin/snowflake"
)

const (
	ActorTypeOperator = "operator"
	ActorTypeAPIKey   = "api_key"
	ActorTypeDemo     = "demo"
)

// Principal identifies an authenticated caller on operator endpoints.
type Principal struct {
	ActorType string
	ActorID   string
	OwnerID   snowflake.ID
}

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrKeyRevoked   = errors.New("api_key_revoked")
)
