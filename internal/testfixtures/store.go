package testfixtures

import (
	"context"
	"testing"

	"github.com/example/council-portal/internal/persistence"
	"github.com/example/council-portal/internal/persistence/gormstore"
)

// StoreHarness provides repository access backed by a private in-memory
// SQLite database for integration-style tests.
type StoreHarness struct {
	Store *gormstore.Store

	Members      persistence.MemberRepository
	Sessions     persistence.SessionRepository
	Convocations persistence.ConvocationRepository
	Minutes      persistence.MinutesRepository

	tb testing.TB
}

// NewStoreHarness opens and migrates a fresh database. It is closed when the
// test finishes.
func NewStoreHarness(tb testing.TB) *StoreHarness {
	tb.Helper()

	store, err := gormstore.OpenSQLite(gormstore.InMemorySQLiteConfig(), gormstore.Options{})
	if err != nil {
		tb.Fatalf("failed to open store: %v", err)
	}
	tb.Cleanup(func() {
		_ = store.Close()
	})
	if err := store.Migrate(context.Background()); err != nil {
		tb.Fatalf("failed to migrate store: %v", err)
	}

	return &StoreHarness{
		Store:        store,
		Members:      store,
		Sessions:     store,
		Convocations: store,
		Minutes:      store,
		tb:           tb,
	}
}

// InsertMember stores a member fixture and returns it with its assigned id.
func (h *StoreHarness) InsertMember(opts ...MemberOption) MemberFixture {
	h.tb.Helper()
	fixture := NewMemberFixture(opts...)
	stored, err := h.Members.CreateMember(context.Background(), fixture.Persistence())
	if err != nil {
		h.tb.Fatalf("failed to insert member %s: %v", fixture.Email, err)
	}
	fixture.ID = stored.ID
	return fixture
}

// InsertSession stores a session fixture and returns it with its assigned id.
func (h *StoreHarness) InsertSession(opts ...SessionOption) SessionFixture {
	h.tb.Helper()
	fixture := NewSessionFixture(opts...)
	stored, err := h.Sessions.CreateSession(context.Background(), fixture.Persistence())
	if err != nil {
		h.tb.Fatalf("failed to insert session: %v", err)
	}
	fixture.ID = stored.ID
	return fixture
}

// InsertConvocation stores a convocation for the given pair.
func (h *StoreHarness) InsertConvocation(sessionID, memberID uint, opts ...ConvocationOption) ConvocationFixture {
	h.tb.Helper()
	fixture := NewConvocationFixture(sessionID, memberID, opts...)
	stored, err := h.Convocations.CreateConvocation(context.Background(), fixture.Persistence())
	if err != nil {
		h.tb.Fatalf("failed to insert convocation: %v", err)
	}
	fixture.ID = stored.ID
	return fixture
}

// InsertMinutes stores minutes for sessionID.
func (h *StoreHarness) InsertMinutes(sessionID uint, opts ...MinutesOption) MinutesFixture {
	h.tb.Helper()
	fixture := NewMinutesFixture(sessionID, opts...)
	stored, err := h.Minutes.CreateMinutes(context.Background(), fixture.Persistence())
	if err != nil {
		h.tb.Fatalf("failed to insert minutes: %v", err)
	}
	fixture.ID = stored.ID
	return fixture
}
