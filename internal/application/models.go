package application

import "time"

// Role is the access level of a member.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "membre"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// SessionStatus is the lifecycle state of a council session.
type SessionStatus string

const (
	SessionPlanned    SessionStatus = "planifiée"
	SessionInProgress SessionStatus = "en cours"
	SessionFinished   SessionStatus = "terminée"
)

// SessionStatuses lists every session status in lifecycle order.
var SessionStatuses = []SessionStatus{SessionPlanned, SessionInProgress, SessionFinished}

// Valid reports whether s is a known session status.
func (s SessionStatus) Valid() bool {
	for _, status := range SessionStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ConvocationStatus is the lifecycle state of a convocation.
type ConvocationStatus string

const (
	ConvocationSent      ConvocationStatus = "envoyée"
	ConvocationRead      ConvocationStatus = "lue"
	ConvocationConfirmed ConvocationStatus = "confirmée"
)

// rank orders convocation statuses; unknown statuses rank below zero.
func (s ConvocationStatus) rank() int {
	switch s {
	case ConvocationSent:
		return 0
	case ConvocationRead:
		return 1
	case ConvocationConfirmed:
		return 2
	default:
		return -1
	}
}

// Valid reports whether s is a known convocation status.
func (s ConvocationStatus) Valid() bool {
	return s.rank() >= 0
}

// Principal represents the authenticated member invoking a service method.
type Principal struct {
	MemberID uint
	Role     Role
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Authenticated reports whether the principal identifies a member.
func (p Principal) Authenticated() bool {
	return p.MemberID != 0
}

// Member is a council member as exposed by the services. The password hash
// never leaves the credential paths.
type Member struct {
	ID        uint
	Name      string
	Email     string
	Function  string
	Role      Role
	PhotoURL  *string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary returns the reduced projection embedded in convocations.
func (m Member) Summary() MemberSummary {
	return MemberSummary{ID: m.ID, Name: m.Name, Email: m.Email, Function: m.Function}
}

// MemberSummary is the member projection attached to convocations.
type MemberSummary struct {
	ID       uint
	Name     string
	Email    string
	Function string
}

// MemberCredentials pairs a member with its stored password hash.
type MemberCredentials struct {
	Member       Member
	PasswordHash string
}

// MemberInput captures the fields needed to create a member.
type MemberInput struct {
	Name     string
	Email    string
	Function string
	Role     Role
	Password string
	Active   *bool
}

// MemberUpdate carries optional member changes; nil fields are left untouched.
type MemberUpdate struct {
	Name     *string
	Email    *string
	Function *string
	Role     *Role
	Password *string
	Active   *bool
}

// CreateMemberParams wraps the data required to create a member.
type CreateMemberParams struct {
	Principal Principal
	Input     MemberInput
}

// UpdateMemberParams wraps the data required to update a member.
type UpdateMemberParams struct {
	Principal Principal
	MemberID  uint
	Update    MemberUpdate
}

// UploadPhotoParams wraps a member photo upload.
type UploadPhotoParams struct {
	Principal   Principal
	MemberID    uint
	ContentType string
	Data        []byte
}

// AgendaItem is one ordered entry of a session agenda.
type AgendaItem struct {
	ID          uint
	Title       string
	Description string
	Position    int
}

// Session is a council meeting with its agenda.
type Session struct {
	ID              uint
	Date            time.Time
	Location        string
	President       string
	Title           *string
	Status          SessionStatus
	DurationMinutes int
	Quorum          int
	Agenda          []AgendaItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AgendaItemInput describes an agenda entry. Position defaults to the entry index plus one.
type AgendaItemInput struct {
	Title       string
	Description string
	Position    *int
}

// SessionInput captures the fields needed to create a session.
type SessionInput struct {
	Date            time.Time
	Location        string
	President       string
	Title           *string
	Status          SessionStatus
	DurationMinutes int
	Quorum          int
	Agenda          []AgendaItemInput
}

// SessionUpdate carries optional session changes. A non-nil Agenda replaces
// the whole agenda.
type SessionUpdate struct {
	Date            *time.Time
	Location        *string
	President       *string
	Title           *string
	Status          *SessionStatus
	DurationMinutes *int
	Quorum          *int
	Agenda          *[]AgendaItemInput
}

// CreateSessionParams wraps the data required to create a session.
type CreateSessionParams struct {
	Principal Principal
	Input     SessionInput
}

// UpdateSessionParams wraps the data required to update a session.
type UpdateSessionParams struct {
	Principal Principal
	SessionID uint
	Update    SessionUpdate
}

// Convocation summons a member to a session.
type Convocation struct {
	ID        uint
	SessionID uint
	MemberID  uint
	Status    ConvocationStatus
	Response  string
	SentAt    *time.Time
	ReadAt    *time.Time
	Session   Session
	Member    MemberSummary
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConvocationFilter narrows convocation listings.
type ConvocationFilter struct {
	SessionID *uint
	MemberID  *uint
	Status    ConvocationStatus
	// UnreadOnly keeps convocations without a read timestamp.
	UnreadOnly bool
}

// CreateConvocationParams wraps the data required to create a convocation.
type CreateConvocationParams struct {
	Principal Principal
	SessionID uint
	MemberID  uint
	Status    *ConvocationStatus
	Response  string
}

// CreateConvocationResult reports the stored convocation and whether its
// notice email went out.
type CreateConvocationResult struct {
	Convocation Convocation
	EmailSent   bool
}

// ConvocationUpdate carries optional convocation changes. Only administrators
// may move a convocation to another session or member.
type ConvocationUpdate struct {
	Status    *ConvocationStatus
	Response  *string
	SessionID *uint
	MemberID  *uint
}

// UpdateConvocationParams wraps the data required to update a convocation.
type UpdateConvocationParams struct {
	Principal     Principal
	ConvocationID uint
	Update        ConvocationUpdate
}

// BulkSendParams wraps a batch of convocations for one session.
type BulkSendParams struct {
	Principal Principal
	SessionID uint
	// MemberIDs selects the recipients; empty means every active member.
	MemberIDs []uint
}

// BulkSendOutcome is the per-member result of a batch send.
type BulkSendOutcome struct {
	MemberID      uint
	ConvocationID uint
	EmailSent     bool
	Error         string
}

// BulkSendResult aggregates a batch send.
type BulkSendResult struct {
	SessionID uint
	Outcomes  []BulkSendOutcome
	Succeeded int
	Failed    int
}

// ConvocationNotice is the data rendered into a convocation email.
type ConvocationNotice struct {
	ConvocationID uint
	Member        MemberSummary
	Session       Session
}

// Notification is a derived, unread convocation notice for the caller.
type Notification struct {
	ID            uint
	Type          string
	Message       string
	CreatedAt     time.Time
	ConvocationID uint
}

// Minutes is the written record of a session.
type Minutes struct {
	ID         uint
	SessionID  uint
	Content    string
	Author     string
	RedactorID *uint
	WrittenAt  time.Time
	Session    Session
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MinutesInput captures the fields needed to create minutes.
type MinutesInput struct {
	SessionID uint
	Content   string
	Author    string
	WrittenAt *time.Time
}

// MinutesUpdate carries optional minutes changes.
type MinutesUpdate struct {
	Content   *string
	Author    *string
	WrittenAt *time.Time
}

// CreateMinutesParams wraps the data required to create minutes.
type CreateMinutesParams struct {
	Principal Principal
	Input     MinutesInput
}

// UpdateMinutesParams wraps the data required to update minutes.
type UpdateMinutesParams struct {
	Principal Principal
	MinutesID uint
	Update    MinutesUpdate
}

// MinutesExport is a rendered minutes document ready for download.
type MinutesExport struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Dashboard aggregates portal counts for the home page.
type Dashboard struct {
	SessionsByStatus map[SessionStatus]int64
	TotalSessions    int64
	ActiveMembers    int64
	MinutesCount     int64
	RecentSessions   []Session
}

// AuthenticateParams captures login credentials.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult carries the authenticated member and its signed token.
type AuthenticateResult struct {
	Member    Member
	Token     string
	ExpiresAt time.Time
}
