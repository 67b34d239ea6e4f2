package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/openlotlabs/torii/internal/audit/domain"
	"github.com/openlotlabs/torii/internal/auditcontext"
)

// Service records and queries audit log entries.
type Service struct {
	db    *gorm.DB
	repo  domain.Repository
	genID *snowflake.Node
	log   *zap.Logger
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Repo  domain.Repository
	GenID *snowflake.Node
	Log   *zap.Logger
}

func NewService(p Params) *Service {
	return &Service{
		db:    p.DB,
		repo:  p.Repo,
		genID: p.GenID,
		log:   p.Log.Named("audit.service"),
	}
}

// AuditLog writes an entry. Actor and request details missing from the
// arguments are filled in from the context when present. Failures are
// returned but callers typically log and continue.
func (s *Service) AuditLog(
	ctx context.Context,
	lotID *snowflake.ID,
	actorType string,
	actorID *string,
	action string,
	targetType string,
	targetID *string,
	metadata map[string]any,
) error {
	if actorType == "" {
		ctxActorType, ctxActorID := auditcontext.ActorFromContext(ctx)
		if ctxActorType != "" {
			actorType = ctxActorType
		}
		if actorID == nil && ctxActorID != "" {
			actorID = &ctxActorID
		}
	}
	if actorType == "" {
		actorType = string(domain.ActorTypeSystem)
	}

	entry := &domain.AuditLog{
		ID:         s.genID.Generate(),
		LotID:      lotID,
		ActorType:  actorType,
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   map[string]any{},
	}
	for key, value := range metadata {
		entry.Metadata[key] = value
	}
	if requestID := auditcontext.RequestIDFromContext(ctx); requestID != "" {
		entry.Metadata["request_id"] = requestID
	}
	if ip := auditcontext.IPAddressFromContext(ctx); ip != "" {
		entry.IPAddress = &ip
	}
	if ua := auditcontext.UserAgentFromContext(ctx); ua != "" {
		entry.UserAgent = &ua
	}

	if err := s.repo.Insert(ctx, s.db, entry); err != nil {
		s.log.Warn("audit insert failed",
			zap.String("action", action),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// List returns entries matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]*domain.AuditLog, error) {
	return s.repo.List(ctx, s.db, filter)
}
