package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func TestSessionService_CreateSession(t *testing.T) {
	t.Run("orders the agenda by position", func(t *testing.T) {
		repo := newSessionRepoStub()
		svc := NewSessionService(repo)

		session, err := svc.CreateSession(context.Background(), CreateSessionParams{
			Principal: adminPrincipal,
			Input: SessionInput{
				Date:      referenceTime,
				Location:  "  Salle A ",
				President: "Dr. X",
				Agenda: []AgendaItemInput{
					{Title: "Questions diverses", Position: intPtr(2)},
					{Title: "Approbation du procès-verbal", Description: "Séance précédente", Position: intPtr(1)},
				},
			},
		})
		if err != nil {
			t.Fatalf("CreateSession returned error: %v", err)
		}
		if session.Status != SessionPlanned {
			t.Fatalf("expected default status %q, got %q", SessionPlanned, session.Status)
		}
		if session.Location != "Salle A" || !session.Date.Equal(referenceTime) {
			t.Fatalf("unexpected session %+v", session)
		}
		if len(session.Agenda) != 2 {
			t.Fatalf("expected two agenda items, got %d", len(session.Agenda))
		}
		if session.Agenda[0].Title != "Approbation du procès-verbal" || session.Agenda[1].Title != "Questions diverses" {
			t.Fatalf("agenda not ordered by position: %+v", session.Agenda)
		}
	})

	t.Run("defaults positions to input order", func(t *testing.T) {
		svc := NewSessionService(newSessionRepoStub())
		session, err := svc.CreateSession(context.Background(), CreateSessionParams{
			Principal: adminPrincipal,
			Input: SessionInput{
				Date:      referenceTime,
				Location:  "Salle B",
				President: "Dr. Y",
				Agenda:    []AgendaItemInput{{Title: "Premier"}, {Title: "Second"}},
			},
		})
		if err != nil {
			t.Fatalf("CreateSession returned error: %v", err)
		}
		if session.Agenda[0].Position != 1 || session.Agenda[1].Position != 2 {
			t.Fatalf("unexpected positions %+v", session.Agenda)
		}
	})

	t.Run("validates required attributes", func(t *testing.T) {
		svc := NewSessionService(newSessionRepoStub())
		_, err := svc.CreateSession(context.Background(), CreateSessionParams{
			Principal: adminPrincipal,
			Input: SessionInput{
				Location:        " ",
				Status:          "annulée",
				DurationMinutes: -5,
				Agenda:          []AgendaItemInput{{Title: ""}},
			},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"date", "lieu", "president", "statut", "duree", "ordre_du_jour[0].titre"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s validation error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("requires administrator privileges", func(t *testing.T) {
		repo := newSessionRepoStub()
		svc := NewSessionService(repo)
		_, err := svc.CreateSession(context.Background(), CreateSessionParams{
			Principal: alicePrincipal,
			Input:     SessionInput{Date: referenceTime, Location: "Salle A", President: "Dr. X"},
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if len(repo.sessions) != 0 {
			t.Fatalf("expected nothing stored")
		}
	})
}

func TestSessionService_UpdateSession(t *testing.T) {
	newFixture := func(t *testing.T) (*SessionService, Session) {
		t.Helper()
		svc := NewSessionService(newSessionRepoStub())
		session, err := svc.CreateSession(context.Background(), CreateSessionParams{
			Principal: adminPrincipal,
			Input: SessionInput{
				Date:      referenceTime,
				Location:  "Salle A",
				President: "Dr. X",
				Agenda:    []AgendaItemInput{{Title: "Budget"}},
			},
		})
		if err != nil {
			t.Fatalf("CreateSession returned error: %v", err)
		}
		return svc, session
	}

	t.Run("keeps the agenda when omitted", func(t *testing.T) {
		svc, session := newFixture(t)
		status := SessionInProgress
		updated, err := svc.UpdateSession(context.Background(), UpdateSessionParams{
			Principal: adminPrincipal,
			SessionID: session.ID,
			Update:    SessionUpdate{Status: &status},
		})
		if err != nil {
			t.Fatalf("UpdateSession returned error: %v", err)
		}
		if updated.Status != SessionInProgress || len(updated.Agenda) != 1 || updated.Location != "Salle A" {
			t.Fatalf("unexpected session %+v", updated)
		}
	})

	t.Run("replaces the agenda when provided", func(t *testing.T) {
		svc, session := newFixture(t)
		agenda := []AgendaItemInput{{Title: "Élections"}, {Title: "Recrutements"}}
		updated, err := svc.UpdateSession(context.Background(), UpdateSessionParams{
			Principal: adminPrincipal,
			SessionID: session.ID,
			Update:    SessionUpdate{Agenda: &agenda},
		})
		if err != nil {
			t.Fatalf("UpdateSession returned error: %v", err)
		}
		if len(updated.Agenda) != 2 || updated.Agenda[0].Title != "Élections" {
			t.Fatalf("expected agenda replaced, got %+v", updated.Agenda)
		}
	})

	t.Run("propagates ErrNotFound", func(t *testing.T) {
		svc, _ := newFixture(t)
		location := "Salle C"
		_, err := svc.UpdateSession(context.Background(), UpdateSessionParams{
			Principal: adminPrincipal,
			SessionID: 404,
			Update:    SessionUpdate{Location: &location},
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("rejects invalid changes", func(t *testing.T) {
		svc, session := newFixture(t)
		blank := "  "
		_, err := svc.UpdateSession(context.Background(), UpdateSessionParams{
			Principal: adminPrincipal,
			SessionID: session.ID,
			Update:    SessionUpdate{President: &blank},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestSessionService_ListAndDelete(t *testing.T) {
	repo := newSessionRepoStub()
	svc := NewSessionService(repo)
	older := repo.mustCreate(referenceTime.Add(-30*24*time.Hour), "Salle A", SessionFinished)
	newer := repo.mustCreate(referenceTime, "Salle B", SessionPlanned)

	sessions, err := svc.ListSessions(context.Background(), alicePrincipal, "")
	if err != nil {
		t.Fatalf("ListSessions returned error: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != newer.ID || sessions[1].ID != older.ID {
		t.Fatalf("expected newest first, got %+v", sessions)
	}

	finished, err := svc.ListSessions(context.Background(), alicePrincipal, SessionFinished)
	if err != nil {
		t.Fatalf("ListSessions returned error: %v", err)
	}
	if len(finished) != 1 || finished[0].ID != older.ID {
		t.Fatalf("expected status filter, got %+v", finished)
	}

	if _, err := svc.ListSessions(context.Background(), alicePrincipal, "reportée"); err == nil {
		t.Fatalf("expected invalid status filter to fail")
	}
	if _, err := svc.ListSessions(context.Background(), Principal{}, ""); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	if err := svc.DeleteSession(context.Background(), alicePrincipal, older.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := svc.DeleteSession(context.Background(), adminPrincipal, older.ID); err != nil {
		t.Fatalf("DeleteSession returned error: %v", err)
	}
	if err := svc.DeleteSession(context.Background(), adminPrincipal, older.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.GetSession(context.Background(), alicePrincipal, older.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
