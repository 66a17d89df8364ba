package application

import (
	"context"

	"github.com/turtacn/keyreg/pkg/constants"
)

// WithActor returns ctx carrying the acting principal and its client address.
func WithActor(ctx context.Context, actor, clientIP string) context.Context {
	ctx = context.WithValue(ctx, constants.ContextKeyActor, actor)
	if clientIP != "" {
		ctx = context.WithValue(ctx, constants.ContextKeyClientIP, clientIP)
	}
	return ctx
}

// ActorFromContext returns the actor and client address stored by WithActor. The actor
// defaults to constants.SystemActor.
func ActorFromContext(ctx context.Context) (actor, clientIP string) {
	actor, _ = ctx.Value(constants.ContextKeyActor).(string)
	if actor == "" {
		actor = constants.SystemActor
	}
	clientIP, _ = ctx.Value(constants.ContextKeyClientIP).(string)
	return actor, clientIP
}
