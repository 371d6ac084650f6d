package identity

import (
	"context"
	"errors"
	"testing"

	"xdial-backend/internal/apperr"
	"xdial-backend/internal/rbac"
)

func TestAuthenticate(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Add(User{ID: 1, Username: "ops", Role: rbac.RoleAdmin}, "s3cret"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Add(User{ID: 2, Username: "acme", Role: rbac.RoleClient, ClientID: 7}, "hunter2"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	svc := NewService(store)

	id, err := svc.Authenticate(context.Background(), "acme", "hunter2")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if id.UserID != 2 || id.ClientID != 7 || id.Role != rbac.RoleClient {
		t.Fatalf("identity = %+v", id)
	}

	// Wrong password and unknown user fail identically.
	if _, err := svc.Authenticate(context.Background(), "acme", "wrong"); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "nobody", "hunter2"); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("unknown user: %v", err)
	}
}

func TestAuthenticate_RejectsUnknownRole(t *testing.T) {
	store := NewMemoryStore()
	if err := store.Add(User{ID: 3, Username: "ghost", Role: "superhero"}, "pw"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	_, err := NewService(store).Authenticate(context.Background(), "ghost", "pw")
	if !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}
