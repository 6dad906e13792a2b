package authz

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
)

func TestActorFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		role    string
		want    *Actor
		wantErr bool
	}{
		{name: "anonymous"},
		{name: "player by default", id: "7", want: &Actor{ID: 7}},
		{name: "explicit player", id: "7", role: "player", want: &Actor{ID: 7}},
		{name: "staff", id: " 3 ", role: "Staff", want: &Actor{ID: 3, IsStaff: true}},
		{name: "non numeric id", id: "abc", wantErr: true},
		{name: "zero id", id: "0", wantErr: true},
		{name: "unknown role", id: "7", role: "admin", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tc.id != "" {
				r.Header.Set(HeaderActorID, tc.id)
			}
			if tc.role != "" {
				r.Header.Set(HeaderActorRole, tc.role)
			}
			got, err := ActorFromRequest(r)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if (got == nil) != (tc.want == nil) || (got != nil && *got != *tc.want) {
				t.Fatalf("actor = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestRequireStaff(t *testing.T) {
	if _, err := RequireStaff(context.Background()); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	player := ContextWithActor(context.Background(), &Actor{ID: 10})
	if _, err := RequireStaff(player); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if actor, err := RequireActor(player); err != nil || actor.ID != 10 {
		t.Fatalf("RequireActor = %+v, %v", actor, err)
	}

	staff := ContextWithActor(context.Background(), &Actor{ID: 11, IsStaff: true})
	if _, err := RequireStaff(staff); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
