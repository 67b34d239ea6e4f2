package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openlotlabs/torii/internal/migration"
)

func setupAuthTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := migration.RunMigrations(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return db
}

func TestHashAndVerifySecret(t *testing.T) {
	hash, err := HashSecret("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifySecret("s3cret", hash) {
		t.Fatal("expected secret to verify")
	}
	if VerifySecret("wrong", hash) {
		t.Fatal("expected wrong secret to fail")
	}
}

func TestResolveDemoFallback(t *testing.T) {
	r := &Resolver{log: zap.NewNop(), allowDemo: true}
	principal, err := r.Resolve(context.Background(), "", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if principal.ActorType != ActorTypeDemo {
		t.Fatalf("expected demo principal, got %q", principal.ActorType)
	}
}

func TestResolveRefusesAnonymousWithoutDemo(t *testing.T) {
	r := &Resolver{log: zap.NewNop(), allowDemo: false}
	_, err := r.Resolve(context.Background(), "", "")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestResolveJWT(t *testing.T) {
	secret := []byte("test-jwt-secret")
	r := &Resolver{log: zap.NewNop(), jwtSecret: secret}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      "operator-1",
		"owner_id": "12345",
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	principal, err := r.Resolve(context.Background(), "Bearer "+signed, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if principal.ActorType != ActorTypeOperator {
		t.Fatalf("expected operator, got %q", principal.ActorType)
	}
	if principal.ActorID != "operator-1" {
		t.Fatalf("unexpected actor id %q", principal.ActorID)
	}
	if principal.OwnerID != 12345 {
		t.Fatalf("unexpected owner id %d", principal.OwnerID)
	}

	if _, err := r.Resolve(context.Background(), "Bearer not-a-token", ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestResolveAPIKey(t *testing.T) {
	db := setupAuthTestDB(t)
	node, err := snowflake.NewNode(8)
	if err != nil {
		t.Fatalf("new snowflake node: %v", err)
	}

	hash, err := HashSecret("topsecret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	key := APIKey{
		ID:         node.Generate(),
		OwnerID:    node.Generate(),
		KeyID:      "key_abc",
		SecretHash: hash,
		Name:       "ops",
	}
	if err := db.Create(&key).Error; err != nil {
		t.Fatalf("create key: %v", err)
	}

	r := &Resolver{db: db, log: zap.NewNop()}

	principal, err := r.Resolve(context.Background(), "", "key_abc.topsecret")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if principal.ActorType != ActorTypeAPIKey || principal.OwnerID != key.OwnerID {
		t.Fatalf("unexpected principal %+v", principal)
	}

	if _, err := r.Resolve(context.Background(), "", "key_abc.wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if err := db.Model(&APIKey{}).Where("id = ?", key.ID).Update("revoked", true).Error; err != nil {
		t.Fatalf("revoke key: %v", err)
	}
	if _, err := r.Resolve(context.Background(), "", "key_abc.topsecret"); !errors.Is(err, ErrKeyRevoked) {
		t.Fatalf("expected ErrKeyRevoked, got %v", err)
	}
}
