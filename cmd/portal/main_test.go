package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/council-portal/internal/application"
	"github.com/example/council-portal/internal/config"
	"github.com/example/council-portal/internal/persistence"
	"github.com/example/council-portal/internal/testfixtures"
)

const testPassword = "motdepasse-solide"

func newTestApp(t *testing.T) (*app, *testfixtures.StoreHarness, *testfixtures.Clock) {
	t.Helper()
	harness := testfixtures.NewStoreHarness(t)
	clock := testfixtures.NewClock(time.Time{})
	cfg := config.Config{
		JWTSecret:      "integration-secret",
		TokenTTL:       time.Hour,
		UploadDir:      t.TempDir(),
		PublicURL:      "http://portal.test",
		RecentSessions: 5,
	}
	a, err := newApp(cfg, harness.Store, slog.New(slog.NewTextHandler(io.Discard, nil)), clock.NowFunc())
	if err != nil {
		t.Fatalf("newApp returned error: %v", err)
	}
	return a, harness, clock
}

func call(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
}

func login(t *testing.T, handler http.Handler, email string) string {
	t.Helper()
	rec := call(t, handler, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": testPassword})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", email, rec.Code, rec.Body.String())
	}
	var body struct {
		Token string `json:"token"`
	}
	decode(t, rec, &body)
	if body.Token == "" {
		t.Fatal("expected a token in the login response")
	}
	return body.Token
}

func TestSeedMembers(t *testing.T) {
	a, harness, _ := newTestApp(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "members.yaml")
	content := fmt.Sprintf(`members:
  - nom: Alice Admin
    email: Alice@Conseil.example
    fonction: Doyenne
    role: admin
    password: %s
  - nom: Bob Membre
    email: bob@conseil.example
    fonction: Professeur
    password: %s
`, testPassword, testPassword)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write seed file: %v", err)
	}

	file, err := loadSeedFile(path)
	if err != nil {
		t.Fatalf("loadSeedFile returned error: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	first, err := seedMembers(ctx, a.members, file, logger)
	if err != nil {
		t.Fatalf("seedMembers returned error: %v", err)
	}
	if first.Created != 2 || first.Skipped != 0 {
		t.Fatalf("unexpected first run %+v", first)
	}

	second, err := seedMembers(ctx, a.members, file, logger)
	if err != nil {
		t.Fatalf("second seedMembers returned error: %v", err)
	}
	if second.Created != 0 || second.Skipped != 2 {
		t.Fatalf("expected existing members to be skipped, got %+v", second)
	}

	stored, err := harness.Members.GetMemberByEmail(ctx, "alice@conseil.example")
	if err != nil {
		t.Fatalf("expected the admin to be stored with a normalized email: %v", err)
	}
	if stored.Role != string(application.RoleAdmin) || stored.PasswordHash == testPassword {
		t.Fatalf("unexpected stored admin %+v", stored)
	}

	t.Run("invalid members abort the run", func(t *testing.T) {
		_, err := seedMembers(ctx, a.members, seedFile{Members: []seedMember{{Name: "Court", Email: "court@conseil.example", Password: "court"}}}, logger)
		var vErr *application.ValidationError
		if err == nil || !strings.Contains(err.Error(), "court@conseil.example") {
			t.Fatalf("expected a validation error naming the member, got %v", err)
		}
		if !errors.As(err, &vErr) {
			t.Fatalf("expected a ValidationError in the chain, got %T", err)
		}
	})
}

func TestPortalLifecycle(t *testing.T) {
	a, harness, _ := newTestApp(t)
	handler := a.handler
	ctx := context.Background()

	file := seedFile{Members: []seedMember{
		{Name: "Alice Admin", Email: "alice@conseil.example", Role: "admin", Password: testPassword},
		{Name: "Bob Membre", Email: "bob@conseil.example", Password: testPassword},
	}}
	if _, err := seedMembers(ctx, a.members, file, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		t.Fatalf("seedMembers returned error: %v", err)
	}

	if rec := call(t, handler, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected healthy store, got %d", rec.Code)
	}
	if rec := call(t, handler, http.MethodGet, "/sessions", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}

	adminToken := login(t, handler, "alice@conseil.example")
	memberToken := login(t, handler, "bob@conseil.example")

	rec := call(t, handler, http.MethodPost, "/sessions", memberToken, map[string]any{
		"date": "2024-03-04T14:00:00Z", "lieu": "Salle du conseil", "president": "Dr. Martin",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected members to be refused session creation, got %d", rec.Code)
	}

	rec = call(t, handler, http.MethodPost, "/sessions", adminToken, map[string]any{
		"date":      "2024-03-04T14:00:00Z",
		"lieu":      "Salle du conseil",
		"president": "Dr. Martin",
		"duree":     120,
		"quorum":    2,
		"ordre_du_jour": []map[string]any{
			{"titre": "Questions diverses", "ordre": 2},
			{"titre": "Budget", "ordre": 1},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Session struct {
			ID     uint   `json:"id"`
			Status string `json:"statut"`
			Agenda []struct {
				Title string `json:"titre"`
			} `json:"ordre_du_jour"`
		} `json:"session"`
	}
	decode(t, rec, &created)
	sessionID := created.Session.ID
	if created.Session.Status != string(application.SessionPlanned) || len(created.Session.Agenda) != 2 || created.Session.Agenda[0].Title != "Budget" {
		t.Fatalf("unexpected session %+v", created.Session)
	}

	rec = call(t, handler, http.MethodPost, fmt.Sprintf("/sessions/%d/convocations/send", sessionID), adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from bulk send, got %d: %s", rec.Code, rec.Body.String())
	}
	var bulk struct {
		Results []struct {
			MemberID      uint   `json:"membre_id"`
			ConvocationID *uint  `json:"convocation_id"`
			Sent          bool   `json:"envoye"`
			Error         string `json:"erreur"`
		} `json:"resultats"`
		Succeeded int `json:"succes"`
		Failed    int `json:"echecs"`
	}
	decode(t, rec, &bulk)
	if len(bulk.Results) != 2 || bulk.Succeeded != 0 || bulk.Failed != 2 {
		t.Fatalf("expected both active members convoked without mail relay, got %+v", bulk)
	}
	for _, result := range bulk.Results {
		if result.ConvocationID == nil || result.Sent || result.Error == "" {
			t.Fatalf("expected a stored convocation with a mail error, got %+v", result)
		}
	}

	rec = call(t, handler, http.MethodGet, "/notifications", memberToken, nil)
	var notifications struct {
		Notifications []struct {
			ConvocationID uint   `json:"convocation_id"`
			Message       string `json:"message"`
		} `json:"notifications"`
	}
	decode(t, rec, &notifications)
	if len(notifications.Notifications) != 1 || !strings.Contains(notifications.Notifications[0].Message, "04/03/2024") {
		t.Fatalf("expected one unread convocation for the member, got %+v", notifications)
	}
	convocationID := notifications.Notifications[0].ConvocationID

	rec = call(t, handler, http.MethodPost, fmt.Sprintf("/convocations/%d/read", convocationID), memberToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from mark read, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = call(t, handler, http.MethodGet, "/notifications", memberToken, nil)
	decode(t, rec, &notifications)
	if len(notifications.Notifications) != 0 {
		t.Fatalf("expected no notification after reading, got %+v", notifications)
	}

	rec = call(t, handler, http.MethodPost, "/minutes", adminToken, map[string]any{
		"session_id": sessionID,
		"contenu":    "La séance est ouverte.\nLe budget est adopté.",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 from minutes creation, got %d: %s", rec.Code, rec.Body.String())
	}
	var minutes struct {
		Minutes struct {
			ID     uint   `json:"id"`
			Author string `json:"auteur"`
		} `json:"proces_verbal"`
	}
	decode(t, rec, &minutes)
	if minutes.Minutes.Author != "Alice Admin" {
		t.Fatalf("expected the author to default to the redactor, got %q", minutes.Minutes.Author)
	}

	rec = call(t, handler, http.MethodPost, "/minutes", adminToken, map[string]any{"session_id": sessionID, "contenu": "Doublon"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected a second minutes record to conflict, got %d", rec.Code)
	}

	rec = call(t, handler, http.MethodGet, fmt.Sprintf("/minutes/%d/export", minutes.Minutes.ID), memberToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from export, got %d", rec.Code)
	}
	wantName := fmt.Sprintf("proces-verbal-session-%d-2024-03-04.html", sessionID)
	if !strings.Contains(rec.Header().Get("Content-Disposition"), wantName) {
		t.Fatalf("expected attachment %s, got %q", wantName, rec.Header().Get("Content-Disposition"))
	}
	if !strings.Contains(rec.Body.String(), "Le budget est adopté.") {
		t.Fatal("expected the minutes content in the export")
	}

	rec = call(t, handler, http.MethodGet, "/dashboard", memberToken, nil)
	var dashboard struct {
		ByStatus      map[string]int64 `json:"sessions_par_statut"`
		TotalSessions int64            `json:"total_sessions"`
		ActiveMembers int64            `json:"membres_actifs"`
		MinutesCount  int64            `json:"proces_verbaux"`
	}
	decode(t, rec, &dashboard)
	if dashboard.TotalSessions != 1 || dashboard.ActiveMembers != 2 || dashboard.MinutesCount != 1 || dashboard.ByStatus[string(application.SessionPlanned)] != 1 {
		t.Fatalf("unexpected dashboard %+v", dashboard)
	}

	rec = call(t, handler, http.MethodDelete, fmt.Sprintf("/sessions/%d", sessionID), adminToken, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 from session delete, got %d", rec.Code)
	}
	remaining, err := harness.Convocations.ListConvocations(ctx, persistence.ConvocationFilter{SessionID: &sessionID})
	if err != nil {
		t.Fatalf("ListConvocations returned error: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("expected session delete to cascade, %d convocations left", len(remaining))
	}
}

func TestMemberDeletionRevokesTokens(t *testing.T) {
	a, harness, _ := newTestApp(t)
	hash, err := application.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	admin := harness.InsertMember(testfixtures.WithMemberAdmin(), testfixtures.WithMemberPasswordHash(hash))
	member := harness.InsertMember(testfixtures.WithMemberPasswordHash(hash))

	adminToken := login(t, a.handler, admin.Email)
	memberToken := login(t, a.handler, member.Email)

	if rec := call(t, a.handler, http.MethodDelete, fmt.Sprintf("/members/%d", admin.ID), adminToken, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected self deletion to be rejected, got %d", rec.Code)
	}
	if rec := call(t, a.handler, http.MethodDelete, fmt.Sprintf("/members/%d", member.ID), adminToken, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := call(t, a.handler, http.MethodGet, "/auth/me", memberToken, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected the deleted member's token to stop working, got %d", rec.Code)
	}
}

func TestConvocationTimestamps(t *testing.T) {
	a, harness, clock := newTestApp(t)
	hash, err := application.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	admin := harness.InsertMember(testfixtures.WithMemberAdmin(), testfixtures.WithMemberPasswordHash(hash))
	member := harness.InsertMember(testfixtures.WithMemberPasswordHash(hash))
	session := harness.InsertSession()

	adminToken := login(t, a.handler, admin.Email)
	memberToken := login(t, a.handler, member.Email)

	type convocationBody struct {
		Convocation struct {
			ID     uint    `json:"id"`
			Status string  `json:"statut"`
			SentAt *string `json:"date_envoi"`
			ReadAt *string `json:"date_lecture"`
		} `json:"convocation"`
	}
	stamp := func(tm time.Time) string { return tm.UTC().Format(time.RFC3339) }
	expect := func(t *testing.T, rec *httptest.ResponseRecorder, status string, sentAt time.Time, readAt *time.Time) uint {
		t.Helper()
		if rec.Code != http.StatusOK && rec.Code != http.StatusCreated {
			t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
		}
		var body convocationBody
		decode(t, rec, &body)
		c := body.Convocation
		if c.Status != status {
			t.Fatalf("expected status %q, got %q", status, c.Status)
		}
		if c.SentAt == nil || *c.SentAt != stamp(sentAt) {
			t.Fatalf("expected date_envoi %s, got %v", stamp(sentAt), c.SentAt)
		}
		switch {
		case readAt == nil && c.ReadAt != nil:
			t.Fatalf("expected no date_lecture, got %s", *c.ReadAt)
		case readAt != nil && (c.ReadAt == nil || *c.ReadAt != stamp(*readAt)):
			t.Fatalf("expected date_lecture %s, got %v", stamp(*readAt), c.ReadAt)
		}
		return c.ID
	}

	sentAt := clock.Now()
	rec := call(t, a.handler, http.MethodPost, "/convocations", adminToken, map[string]any{"session_id": session.ID, "membre_id": member.ID})
	memberConv := expect(t, rec, string(application.ConvocationSent), sentAt, nil)
	rec = call(t, a.handler, http.MethodPost, "/convocations", adminToken, map[string]any{"session_id": session.ID, "membre_id": admin.ID})
	adminConv := expect(t, rec, string(application.ConvocationSent), sentAt, nil)

	t.Run("read then confirm keeps the first read time", func(t *testing.T) {
		readAt := clock.Advance(10 * time.Minute)
		rec := call(t, a.handler, http.MethodPost, fmt.Sprintf("/convocations/%d/read", memberConv), memberToken, nil)
		expect(t, rec, string(application.ConvocationRead), sentAt, &readAt)

		clock.Advance(5 * time.Minute)
		rec = call(t, a.handler, http.MethodPatch, fmt.Sprintf("/convocations/%d", memberConv), memberToken, map[string]any{"statut": string(application.ConvocationConfirmed)})
		expect(t, rec, string(application.ConvocationConfirmed), sentAt, &readAt)

		clock.Advance(5 * time.Minute)
		rec = call(t, a.handler, http.MethodPost, fmt.Sprintf("/convocations/%d/read", memberConv), memberToken, nil)
		expect(t, rec, string(application.ConvocationConfirmed), sentAt, &readAt)

		stored, err := harness.Convocations.GetConvocation(context.Background(), memberConv)
		if err != nil {
			t.Fatalf("GetConvocation returned error: %v", err)
		}
		if stored.ReadAt == nil || !stored.ReadAt.Equal(readAt) || stored.SentAt == nil || !stored.SentAt.Equal(sentAt) {
			t.Fatalf("unexpected stored stamps sent=%v read=%v", stored.SentAt, stored.ReadAt)
		}
	})

	t.Run("confirming an unread convocation stamps the read time", func(t *testing.T) {
		confirmedAt := clock.Advance(time.Minute)
		rec := call(t, a.handler, http.MethodPatch, fmt.Sprintf("/convocations/%d", adminConv), adminToken, map[string]any{"statut": string(application.ConvocationConfirmed)})
		expect(t, rec, string(application.ConvocationConfirmed), sentAt, &confirmedAt)
	})
}
