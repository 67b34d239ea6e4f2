package auditcontext

import "context"

type contextKey string

const (
	requestIDKey contextKey = "audit_request_id"
	actorTypeKey contextKey = "audit_actor_type"
	actorIDKey   contextKey = "audit_actor_id"
	ipAddressKey contextKey = "audit_ip_address"
	userAgentKey contextKey = "audit_user_agent"
	lotIDKey     contextKey = "audit_lot_id"
	sessionKey   contextKey = "audit_session_token"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}

func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	if actorType != "" {
		ctx = context.WithValue(ctx, actorTypeKey, actorType)
	}
	if actorID != "" {
		ctx = context.WithValue(ctx, actorIDKey, actorID)
	}
	return ctx
}

func ActorFromContext(ctx context.Context) (string, string) {
	actorType, _ := ctx.Value(actorTypeKey).(string)
	actorID, _ := ctx.Value(actorIDKey).(string)
	return actorType, actorID
}

func WithIPAddress(ctx context.Context, ipAddress string) context.Context {
	if ipAddress == "" {
		return ctx
	}
	return context.WithValue(ctx, ipAddressKey, ipAddress)
}

func IPAddressFromContext(ctx context.Context) string {
	value, _ := ctx.Value(ipAddressKey).(string)
	return value
}

func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	if userAgent == "" {
		return ctx
	}
	return context.WithValue(ctx, userAgentKey, userAgent)
}

func UserAgentFromContext(ctx context.Context) string {
	value, _ := ctx.Value(userAgentKey).(string)
	return value
}

func WithLotID(ctx context.Context, lotID string) context.Context {
	if lotID == "" {
		return ctx
	}
	return context.WithValue(ctx, lotIDKey, lotID)
}

func LotIDFromContext(ctx context.Context) string {
	value, _ := ctx.Value(lotIDKey).(string)
	return value
}

func WithSessionToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, token)
}

func SessionTokenFromContext(ctx context.Context) string {
	value, _ := ctx.Value(sessionKey).(string)
	return value
}
