package persistence

import "time"

// Convocation statuses as stored.
const (
	ConvocationSent      = "envoyée"
	ConvocationRead      = "lue"
	ConvocationConfirmed = "confirmée"
)

// Member represents a council member account.
type Member struct {
	ID           uint    `gorm:"primaryKey"`
	Name         string  `gorm:"size:200;not null"`
	Email        string  `gorm:"size:320;not null;uniqueIndex:uk_member_email"`
	Function     string  `gorm:"size:200"`
	Role         string  `gorm:"size:20;not null"`
	PasswordHash string  `gorm:"not null"`
	PhotoURL     *string `gorm:"size:500"`
	Active       bool    `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents a scheduled council meeting.
type Session struct {
	ID              uint         `gorm:"primaryKey"`
	Date            time.Time    `gorm:"not null;index"`
	Location        string       `gorm:"size:200;not null"`
	President       string       `gorm:"size:200;not null"`
	Title           *string      `gorm:"size:300"`
	Status          string       `gorm:"size:20;not null;index"`
	DurationMinutes int          `gorm:"not null"`
	Quorum          int          `gorm:"not null"`
	AgendaItems     []AgendaItem `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AgendaItem is one ordered entry of a session agenda.
type AgendaItem struct {
	ID          uint   `gorm:"primaryKey"`
	SessionID   uint   `gorm:"not null;index"`
	Title       string `gorm:"size:300;not null"`
	Description string `gorm:"type:text"`
	Position    int    `gorm:"not null"`
}

// Convocation links a member to a session they are summoned to.
type Convocation struct {
	ID        uint   `gorm:"primaryKey"`
	MemberID  uint   `gorm:"not null;uniqueIndex:uk_convocation_member_session"`
	SessionID uint   `gorm:"not null;uniqueIndex:uk_convocation_member_session;index"`
	Status    string `gorm:"size:20;not null;index"`
	Response  string `gorm:"type:text"`
	SentAt    *time.Time
	ReadAt    *time.Time
	Member    Member  `gorm:"constraint:OnDelete:CASCADE"`
	Session   Session `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Minutes holds the written record of a session. At most one exists per session.
type Minutes struct {
	ID         uint      `gorm:"primaryKey"`
	SessionID  uint      `gorm:"not null;uniqueIndex:uk_minutes_session"`
	Content    string    `gorm:"type:text;not null"`
	Author     string    `gorm:"size:200"`
	RedactorID *uint     `gorm:"index"`
	WrittenAt  time.Time `gorm:"not null"`
	Session    Session   `gorm:"constraint:OnDelete:CASCADE"`
	Redactor   *Member   `gorm:"constraint:OnDelete:SET NULL"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName keeps the singular-looking plural as is.
func (Minutes) TableName() string { return "minutes" }

// SessionStatusCount is a grouped count of sessions by status.
type SessionStatusCount struct {
	Status string
	Count  int64
}
