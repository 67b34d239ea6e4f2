package auth

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/openlotlabs/torii/internal/config"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Cfg config.Config
	Log *zap.Logger
}

// Resolver turns request credentials into a Principal. It tries a bearer
// JWT, then an API key, then the demo fallback outside hosted mode.
type Resolver struct {
	db        *gorm.DB
	log       *zap.Logger
	jwtSecret []byte
	allowDemo bool
}

func NewResolver(p Params) *Resolver {
	var secret []byte
	if s := strings.TrimSpace(p.Cfg.JWTSecret); s != "" {
		secret = []byte(s)
	}
	return &Resolver{
		db:        p.DB,
		log:       p.Log.Named("auth.resolver"),
		jwtSecret: secret,
		allowDemo: !p.Cfg.IsCloud(),
	}
}

type tokenClaims struct {
	OwnerID string `json:"owner_id"`
	jwt.RegisteredClaims
}

// Resolve authenticates the request. authorization is the Authorization
// header value, apiKey the X-API-Key header value; either may be empty.
func (r *Resolver) Resolve(ctx context.Context, authorization, apiKey string) (Principal, error) {
	if token, ok := strings.CutPrefix(strings.TrimSpace(authorization), "Bearer "); ok {
		return r.resolveJWT(strings.TrimSpace(token))
	}
	if apiKey = strings.TrimSpace(apiKey); apiKey != "" {
		return r.resolveAPIKey(ctx, apiKey)
	}
	if r.allowDemo {
		return Principal{ActorType: ActorTypeDemo, ActorID: "demo-admin"}, nil
	}
	return Principal{}, ErrUnauthorized
}

func (r *Resolver) resolveJWT(token string) (Principal, error) {
	if len(r.jwtSecret) == 0 || token == "" {
		return Principal{}, ErrUnauthorized
	}

	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return r.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return Principal{}, ErrUnauthorized
	}

	principal := Principal{
		ActorType: ActorTypeOperator,
		ActorID:   claims.Subject,
	}
	if ownerID, err := snowflake.ParseString(claims.OwnerID); err == nil {
		principal.OwnerID = ownerID
	}
	return principal, nil
}

// API keys are presented as "<key id>.<secret>".
func (r *Resolver) resolveAPIKey(ctx context.Context, presented string) (Principal, error) {
	keyID, secret, ok := strings.Cut(presented, ".")
	if !ok || keyID == "" || secret == "" {
		return Principal{}, ErrUnauthorized
	}

	var key APIKey
	err := r.db.WithContext(ctx).Where("key_id = ?", keyID).First(&key).Error
	if err != nil {
		return Principal{}, ErrUnauthorized
	}
	if key.Revoked {
		return Principal{}, ErrKeyRevoked
	}
	if !VerifySecret(secret, key.SecretHash) {
		return Principal{}, ErrUnauthorized
	}

	now := time.Now().UTC()
	if err := r.db.WithContext(ctx).Model(&APIKey{}).Where("id = ?", key.ID).Update("last_used_at", now).Error; err != nil {
		r.log.Warn("api key last_used_at update failed", zap.Error(err))
	}

	return Principal{
		ActorType: ActorTypeAPIKey,
		ActorID:   key.KeyID,
		OwnerID:   key.OwnerID,
	}, nil
}
