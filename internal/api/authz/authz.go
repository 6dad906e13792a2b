// Package authz carries the authenticated actor through request contexts.
// Authentication happens upstream; the edge proxy forwards the caller's
// identity in the X-Actor-ID and X-Actor-Role headers.
package authz

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/codr1/courtledger/internal/models"
)

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"

	RoleStaff  = "staff"
	RolePlayer = "player"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = models.ErrForbidden
)

type Actor struct {
	ID      int64
	IsStaff bool
}

type actorContextKey struct{}

func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns nil when no actor is stored.
func ActorFromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	actor, ok := ctx.Value(actorContextKey{}).(*Actor)
	if !ok {
		return nil
	}
	return actor
}

// ActorFromRequest reads the forwarded identity headers. A request without
// an actor id yields nil and no error.
func ActorFromRequest(r *http.Request) (*Actor, error) {
	rawID := strings.TrimSpace(r.Header.Get(HeaderActorID))
	if rawID == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%s must be a positive integer", HeaderActorID)
	}
	role := strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderActorRole)))
	switch role {
	case "", RolePlayer:
		return &Actor{ID: id}, nil
	case RoleStaff:
		return &Actor{ID: id, IsStaff: true}, nil
	}
	return nil, fmt.Errorf("%s %q is not recognised", HeaderActorRole, role)
}

func RequireActor(ctx context.Context) (*Actor, error) {
	actor := ActorFromContext(ctx)
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	return actor, nil
}

func RequireStaff(ctx context.Context) (*Actor, error) {
	actor, err := RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff {
		return nil, ErrForbidden
	}
	return actor, nil
}
