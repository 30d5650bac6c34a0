package application

import (
	"errors"
	"testing"
)

func TestAuthorize(t *testing.T) {
	t.Parallel()

	admin := Principal{MemberID: 1, Role: RoleAdmin}
	alice := Principal{MemberID: 2, Role: RoleMember}

	tests := []struct {
		name      string
		principal Principal
		action    Action
		resource  Resource
		allowed   bool
	}{
		{"anonymous is denied", Principal{}, ActionList, Resource{Kind: ResourceSession}, false},
		{"admin creates sessions", admin, ActionCreate, Resource{Kind: ResourceSession}, true},
		{"admin deletes convocations", admin, ActionDelete, Resource{Kind: ResourceConvocation, OwnerID: 2}, true},
		{"member lists convocations", alice, ActionList, Resource{Kind: ResourceConvocation}, true},
		{"member exports minutes", alice, ActionExport, Resource{Kind: ResourceMinutes}, true},
		{"member cannot create convocations", alice, ActionCreate, Resource{Kind: ResourceConvocation}, false},
		{"member cannot delete own convocation", alice, ActionDelete, Resource{Kind: ResourceConvocation, OwnerID: 2}, false},
		{"member marks own convocation read", alice, ActionMarkRead, Resource{Kind: ResourceConvocation, OwnerID: 2}, true},
		{"member cannot mark another convocation", alice, ActionMarkRead, Resource{Kind: ResourceConvocation, OwnerID: 3}, false},
		{"member updates own status", alice, ActionUpdate, Resource{Kind: ResourceConvocation, OwnerID: 2, Fields: []string{"statut", "reponse"}}, true},
		{"member cannot move own convocation", alice, ActionUpdate, Resource{Kind: ResourceConvocation, OwnerID: 2, Fields: []string{"session_id"}}, false},
		{"member edits own profile", alice, ActionUpdate, Resource{Kind: ResourceMember, OwnerID: 2, Fields: []string{"nom", "password"}}, true},
		{"member cannot change own role", alice, ActionUpdate, Resource{Kind: ResourceMember, OwnerID: 2, Fields: []string{"role"}}, false},
		{"member uploads own photo", alice, ActionUploadPhoto, Resource{Kind: ResourceMember, OwnerID: 2}, true},
		{"member cannot upload another photo", alice, ActionUploadPhoto, Resource{Kind: ResourceMember, OwnerID: 3}, false},
		{"member cannot send emails", alice, ActionSendEmail, Resource{Kind: ResourceConvocation, OwnerID: 2}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			decision := Authorize(tc.principal, tc.action, tc.resource)
			if decision.Allowed != tc.allowed {
				t.Fatalf("Authorize allowed=%v (%s), want %v", decision.Allowed, decision.Reason, tc.allowed)
			}
			if decision.Reason == "" {
				t.Fatalf("expected a reason to accompany the decision")
			}
		})
	}
}

func TestAuthorizeErrors(t *testing.T) {
	t.Parallel()

	if err := authorize(Principal{}, ActionView, Resource{Kind: ResourceDashboard}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	err := authorize(Principal{MemberID: 5, Role: RoleMember}, ActionDelete, Resource{Kind: ResourceSession})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := authorize(Principal{MemberID: 1, Role: RoleAdmin}, ActionDelete, Resource{Kind: ResourceSession}); err != nil {
		t.Fatalf("expected admin to be allowed, got %v", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	t.Parallel()

	hash, err := hashPasswordWith("correct horse", PasswordParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16})
	if err != nil {
		t.Fatalf("hashPasswordWith returned error: %v", err)
	}
	if err := VerifyPassword(hash, "correct horse"); err != nil {
		t.Fatalf("expected password to verify, got %v", err)
	}
	if err := VerifyPassword(hash, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := VerifyPassword("plain-text", "x"); !errors.Is(err, ErrInvalidPasswordHash) {
		t.Fatalf("expected ErrInvalidPasswordHash, got %v", err)
	}
}
