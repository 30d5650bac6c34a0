package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/council-portal/internal/application"
	"github.com/example/council-portal/internal/persistence"
)

var (
	memberCounter  uint64
	sessionCounter uint64
)

var referenceTime = time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ---------------------------- Member fixtures ----------------------------

// MemberFixture represents a deterministic council member. ID stays zero
// unless set, so the fixture can be inserted and numbered by the store.
type MemberFixture struct {
	ID           uint
	Name         string
	Email        string
	Function     string
	Role         application.Role
	PasswordHash string
	PhotoURL     *string
	Active       bool
}

// MemberOption configures the generated member fixture.
type MemberOption func(*MemberFixture)

// NewMemberFixture returns an active, non-admin member with a unique email.
func NewMemberFixture(opts ...MemberOption) MemberFixture {
	idx := atomic.AddUint64(&memberCounter, 1)
	fixture := MemberFixture{
		Name:         fmt.Sprintf("Membre %03d", idx),
		Email:        fmt.Sprintf("membre-%03d@conseil.example", idx),
		Function:     "Professeur",
		Role:         application.RoleMember,
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		Active:       true,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMemberID sets the member id.
func WithMemberID(id uint) MemberOption {
	return func(f *MemberFixture) { f.ID = id }
}

// WithMemberEmail overrides the generated email address.
func WithMemberEmail(email string) MemberOption {
	return func(f *MemberFixture) { f.Email = email }
}

// WithMemberName overrides the generated name.
func WithMemberName(name string) MemberOption {
	return func(f *MemberFixture) { f.Name = name }
}

// WithMemberAdmin gives the member the admin role.
func WithMemberAdmin() MemberOption {
	return func(f *MemberFixture) { f.Role = application.RoleAdmin }
}

// WithMemberInactive deactivates the member.
func WithMemberInactive() MemberOption {
	return func(f *MemberFixture) { f.Active = false }
}

// WithMemberPasswordHash overrides the stored hash.
func WithMemberPasswordHash(hash string) MemberOption {
	return func(f *MemberFixture) { f.PasswordHash = hash }
}

// Application returns the fixture as an application.Member.
func (f MemberFixture) Application() application.Member {
	return application.Member{
		ID:       f.ID,
		Name:     f.Name,
		Email:    f.Email,
		Function: f.Function,
		Role:     f.Role,
		PhotoURL: f.PhotoURL,
		Active:   f.Active,
	}
}

// Principal returns the principal acting as this member.
func (f MemberFixture) Principal() application.Principal {
	return application.Principal{MemberID: f.ID, Role: f.Role}
}

// Persistence returns the fixture as a persistence.Member.
func (f MemberFixture) Persistence() persistence.Member {
	return persistence.Member{
		ID:           f.ID,
		Name:         f.Name,
		Email:        f.Email,
		Function:     f.Function,
		Role:         string(f.Role),
		PasswordHash: f.PasswordHash,
		PhotoURL:     f.PhotoURL,
		Active:       f.Active,
	}
}

// --------------------------- Session fixtures ----------------------------

// SessionFixture represents a deterministic council session. Each new
// fixture is dated one week after the previous one.
type SessionFixture struct {
	ID              uint
	Date            time.Time
	Location        string
	President       string
	Title           *string
	Status          application.SessionStatus
	DurationMinutes int
	Quorum          int
	Agenda          []string
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a planned session with a two item agenda.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	fixture := SessionFixture{
		Date:            referenceTime.AddDate(0, 0, 7*int(idx)),
		Location:        "Salle du conseil",
		President:       "Dr. Martin",
		Status:          application.SessionPlanned,
		DurationMinutes: 120,
		Quorum:          5,
		Agenda:          []string{"Approbation du procès-verbal", "Questions diverses"},
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionID sets the session id.
func WithSessionID(id uint) SessionOption {
	return func(f *SessionFixture) { f.ID = id }
}

// WithSessionDate overrides the session date.
func WithSessionDate(date time.Time) SessionOption {
	return func(f *SessionFixture) { f.Date = date }
}

// WithSessionStatus overrides the session status.
func WithSessionStatus(status application.SessionStatus) SessionOption {
	return func(f *SessionFixture) { f.Status = status }
}

// WithSessionTitle sets the optional title.
func WithSessionTitle(title string) SessionOption {
	return func(f *SessionFixture) { f.Title = &title }
}

// WithSessionAgenda replaces the agenda titles, kept in the given order.
func WithSessionAgenda(titles ...string) SessionOption {
	return func(f *SessionFixture) { f.Agenda = titles }
}

// Application returns the fixture as an application.Session.
func (f SessionFixture) Application() application.Session {
	agenda := make([]application.AgendaItem, 0, len(f.Agenda))
	for i, title := range f.Agenda {
		agenda = append(agenda, application.AgendaItem{Title: title, Position: i + 1})
	}
	return application.Session{
		ID:              f.ID,
		Date:            f.Date,
		Location:        f.Location,
		President:       f.President,
		Title:           f.Title,
		Status:          f.Status,
		DurationMinutes: f.DurationMinutes,
		Quorum:          f.Quorum,
		Agenda:          agenda,
	}
}

// Input returns the fixture as the payload of a session creation.
func (f SessionFixture) Input() application.SessionInput {
	agenda := make([]application.AgendaItemInput, 0, len(f.Agenda))
	for _, title := range f.Agenda {
		agenda = append(agenda, application.AgendaItemInput{Title: title})
	}
	return application.SessionInput{
		Date:            f.Date,
		Location:        f.Location,
		President:       f.President,
		Title:           f.Title,
		Status:          f.Status,
		DurationMinutes: f.DurationMinutes,
		Quorum:          f.Quorum,
		Agenda:          agenda,
	}
}

// Persistence returns the fixture as a persistence.Session.
func (f SessionFixture) Persistence() persistence.Session {
	items := make([]persistence.AgendaItem, 0, len(f.Agenda))
	for i, title := range f.Agenda {
		items = append(items, persistence.AgendaItem{Title: title, Position: i + 1})
	}
	return persistence.Session{
		ID:              f.ID,
		Date:            f.Date,
		Location:        f.Location,
		President:       f.President,
		Title:           f.Title,
		Status:          string(f.Status),
		DurationMinutes: f.DurationMinutes,
		Quorum:          f.Quorum,
		AgendaItems:     items,
	}
}

// ------------------------- Convocation fixtures --------------------------

// ConvocationFixture links a member to a session.
type ConvocationFixture struct {
	ID        uint
	SessionID uint
	MemberID  uint
	Status    application.ConvocationStatus
	Response  string
	SentAt    *time.Time
	ReadAt    *time.Time
}

// ConvocationOption configures the generated convocation fixture.
type ConvocationOption func(*ConvocationFixture)

// NewConvocationFixture returns a sent convocation for the given pair.
func NewConvocationFixture(sessionID, memberID uint, opts ...ConvocationOption) ConvocationFixture {
	sent := referenceTime
	fixture := ConvocationFixture{
		SessionID: sessionID,
		MemberID:  memberID,
		Status:    application.ConvocationSent,
		SentAt:    &sent,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithConvocationRead marks the convocation read at the given time.
func WithConvocationRead(at time.Time) ConvocationOption {
	return func(f *ConvocationFixture) {
		f.Status = application.ConvocationRead
		f.ReadAt = &at
	}
}

// WithConvocationResponse sets the member response.
func WithConvocationResponse(response string) ConvocationOption {
	return func(f *ConvocationFixture) { f.Response = response }
}

// Persistence returns the fixture as a persistence.Convocation.
func (f ConvocationFixture) Persistence() persistence.Convocation {
	return persistence.Convocation{
		ID:        f.ID,
		SessionID: f.SessionID,
		MemberID:  f.MemberID,
		Status:    string(f.Status),
		Response:  f.Response,
		SentAt:    f.SentAt,
		ReadAt:    f.ReadAt,
	}
}

// --------------------------- Minutes fixtures ----------------------------

// MinutesFixture is the written record of a session.
type MinutesFixture struct {
	ID         uint
	SessionID  uint
	Content    string
	Author     string
	RedactorID *uint
	WrittenAt  time.Time
}

// MinutesOption configures the generated minutes fixture.
type MinutesOption func(*MinutesFixture)

// NewMinutesFixture returns minutes for sessionID written at the reference time.
func NewMinutesFixture(sessionID uint, opts ...MinutesOption) MinutesFixture {
	fixture := MinutesFixture{
		SessionID: sessionID,
		Content:   "La séance est ouverte à 14h.",
		Author:    "Secrétariat",
		WrittenAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMinutesRedactor records the member who wrote the minutes.
func WithMinutesRedactor(memberID uint) MinutesOption {
	return func(f *MinutesFixture) { f.RedactorID = &memberID }
}

// WithMinutesContent overrides the minutes body.
func WithMinutesContent(content string) MinutesOption {
	return func(f *MinutesFixture) { f.Content = content }
}

// Persistence returns the fixture as a persistence.Minutes.
func (f MinutesFixture) Persistence() persistence.Minutes {
	return persistence.Minutes{
		ID:         f.ID,
		SessionID:  f.SessionID,
		Content:    f.Content,
		Author:     f.Author,
		RedactorID: f.RedactorID,
		WrittenAt:  f.WrittenAt,
	}
}
