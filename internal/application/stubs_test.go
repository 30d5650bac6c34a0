package application

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/example/council-portal/internal/persistence"
)

var referenceTime = time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)

func fixedClock() func() time.Time {
	return func() time.Time { return referenceTime }
}

var (
	adminPrincipal = Principal{MemberID: 1, Role: RoleAdmin}
	alicePrincipal = Principal{MemberID: 2, Role: RoleMember}
	bobPrincipal   = Principal{MemberID: 3, Role: RoleMember}
)

type memberRepoStub struct {
	mu      sync.Mutex
	nextID  uint
	members map[uint]Member
	hashes  map[uint]string

	listErr error
	deleted []uint
}

func newMemberRepoStub(members ...Member) *memberRepoStub {
	r := &memberRepoStub{members: map[uint]Member{}, hashes: map[uint]string{}}
	for _, m := range members {
		r.members[m.ID] = m
		if m.ID > r.nextID {
			r.nextID = m.ID
		}
	}
	return r
}

// seedCouncil returns an admin (1), Alice (2), Bob (3) and an inactive Carol (4).
func seedCouncil() *memberRepoStub {
	return newMemberRepoStub(
		Member{ID: 1, Name: "Admin", Email: "admin@example.org", Role: RoleAdmin, Active: true},
		Member{ID: 2, Name: "Alice Martin", Email: "alice@example.org", Function: "Professeure", Role: RoleMember, Active: true},
		Member{ID: 3, Name: "Bob Durand", Email: "bob@example.org", Function: "Maître de conférences", Role: RoleMember, Active: true},
		Member{ID: 4, Name: "Carol Petit", Email: "carol@example.org", Role: RoleMember, Active: false},
	)
}

func (r *memberRepoStub) emailTaken(email string, except uint) bool {
	for id, m := range r.members {
		if id != except && m.Email == email {
			return true
		}
	}
	return false
}

func (r *memberRepoStub) CreateMember(ctx context.Context, member Member, passwordHash string) (Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailTaken(member.Email, 0) {
		return Member{}, persistence.ErrDuplicate
	}
	r.nextID++
	member.ID = r.nextID
	member.CreatedAt = referenceTime
	member.UpdatedAt = referenceTime
	r.members[member.ID] = member
	r.hashes[member.ID] = passwordHash
	return member, nil
}

func (r *memberRepoStub) UpdateMember(ctx context.Context, member Member, passwordHash *string) (Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[member.ID]; !ok {
		return Member{}, persistence.ErrNotFound
	}
	if r.emailTaken(member.Email, member.ID) {
		return Member{}, persistence.ErrDuplicate
	}
	r.members[member.ID] = member
	if passwordHash != nil {
		r.hashes[member.ID] = *passwordHash
	}
	return member, nil
}

func (r *memberRepoStub) GetMember(ctx context.Context, id uint) (Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	if !ok {
		return Member{}, persistence.ErrNotFound
	}
	return m, nil
}

func (r *memberRepoStub) GetMemberCredentialsByEmail(ctx context.Context, email string) (MemberCredentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, m := range r.members {
		if m.Email == email {
			return MemberCredentials{Member: m, PasswordHash: r.hashes[id]}, nil
		}
	}
	return MemberCredentials{}, persistence.ErrNotFound
}

func (r *memberRepoStub) ListMembers(ctx context.Context, activeOnly bool) ([]Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []Member
	for _, m := range r.members {
		if activeOnly && !m.Active {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memberRepoStub) DeleteMember(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.members[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.members, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *memberRepoStub) CountActiveMembers(ctx context.Context) (int64, error) {
	members, _ := r.ListMembers(ctx, true)
	return int64(len(members)), nil
}

type sessionRepoStub struct {
	mu         sync.Mutex
	nextID     uint
	nextItemID uint
	sessions   map[uint]Session
	order      []uint
}

func newSessionRepoStub() *sessionRepoStub {
	return &sessionRepoStub{sessions: map[uint]Session{}}
}

func cloneSession(s Session) Session {
	if s.Agenda != nil {
		s.Agenda = append([]AgendaItem(nil), s.Agenda...)
	}
	return s
}

func (r *sessionRepoStub) assignItemIDs(items []AgendaItem) {
	for i := range items {
		r.nextItemID++
		items[i].ID = r.nextItemID
	}
}

func (r *sessionRepoStub) CreateSession(ctx context.Context, session Session) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	session = cloneSession(session)
	session.ID = r.nextID
	session.CreatedAt = referenceTime.Add(time.Duration(session.ID) * time.Minute)
	r.assignItemIDs(session.Agenda)
	r.sessions[session.ID] = session
	r.order = append(r.order, session.ID)
	return cloneSession(session), nil
}

func (r *sessionRepoStub) UpdateSession(ctx context.Context, session Session, replaceAgenda bool) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.sessions[session.ID]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	session = cloneSession(session)
	if replaceAgenda {
		r.assignItemIDs(session.Agenda)
	} else {
		session.Agenda = existing.Agenda
	}
	r.sessions[session.ID] = session
	return cloneSession(session), nil
}

func (r *sessionRepoStub) GetSession(ctx context.Context, id uint) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, persistence.ErrNotFound
	}
	return cloneSession(s), nil
}

func (r *sessionRepoStub) ListSessions(ctx context.Context, status SessionStatus) ([]Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Session
	for _, s := range r.sessions {
		if status != "" && s.Status != status {
			continue
		}
		out = append(out, cloneSession(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (r *sessionRepoStub) DeleteSession(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *sessionRepoStub) CountSessionsByStatus(ctx context.Context) (map[SessionStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[SessionStatus]int64{}
	for _, s := range r.sessions {
		counts[s.Status]++
	}
	return counts, nil
}

func (r *sessionRepoStub) ListRecentSessions(ctx context.Context, limit int) ([]Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Session
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		if s, ok := r.sessions[r.order[i]]; ok {
			out = append(out, cloneSession(s))
		}
	}
	return out, nil
}

func (r *sessionRepoStub) mustCreate(date time.Time, location string, status SessionStatus) Session {
	s, _ := r.CreateSession(context.Background(), Session{
		Date:      date,
		Location:  location,
		President: "Dr. X",
		Status:    status,
	})
	return s
}

// convocationRepoStub enforces the (member, session) uniqueness and fills the
// session and member projections like the store does.
type convocationRepoStub struct {
	mu          sync.Mutex
	nextID      uint
	convs       map[uint]Convocation
	sessions    *sessionRepoStub
	members     *memberRepoStub
	createCalls int

	// racingInsert makes the next create lose against a concurrent insert of the same pair.
	racingInsert bool
}

func newConvocationRepoStub(sessions *sessionRepoStub, members *memberRepoStub) *convocationRepoStub {
	return &convocationRepoStub{convs: map[uint]Convocation{}, sessions: sessions, members: members}
}

func (r *convocationRepoStub) project(c Convocation) Convocation {
	if s, err := r.sessions.GetSession(context.Background(), c.SessionID); err == nil {
		c.Session = s
	}
	if m, err := r.members.GetMember(context.Background(), c.MemberID); err == nil {
		c.Member = m.Summary()
	}
	return c
}

func (r *convocationRepoStub) pairTaken(memberID, sessionID, except uint) bool {
	for id, c := range r.convs {
		if id != except && c.MemberID == memberID && c.SessionID == sessionID {
			return true
		}
	}
	return false
}

func (r *convocationRepoStub) insert(c Convocation) Convocation {
	r.nextID++
	c.ID = r.nextID
	c.Session = Session{}
	c.Member = MemberSummary{}
	c.CreatedAt = referenceTime
	c.UpdatedAt = referenceTime
	r.convs[c.ID] = c
	return c
}

func (r *convocationRepoStub) CreateConvocation(ctx context.Context, c Convocation) (Convocation, error) {
	r.mu.Lock()
	r.createCalls++
	if r.racingInsert {
		r.racingInsert = false
		r.insert(Convocation{MemberID: c.MemberID, SessionID: c.SessionID, Status: ConvocationConfirmed, ReadAt: timePtr(referenceTime)})
	}
	if r.pairTaken(c.MemberID, c.SessionID, 0) {
		r.mu.Unlock()
		return Convocation{}, persistence.ErrDuplicate
	}
	created := r.insert(c)
	r.mu.Unlock()
	return r.project(created), nil
}

func (r *convocationRepoStub) UpdateConvocation(ctx context.Context, c Convocation) (Convocation, error) {
	r.mu.Lock()
	if _, ok := r.convs[c.ID]; !ok {
		r.mu.Unlock()
		return Convocation{}, persistence.ErrNotFound
	}
	if r.pairTaken(c.MemberID, c.SessionID, c.ID) {
		r.mu.Unlock()
		return Convocation{}, persistence.ErrDuplicate
	}
	c.Session = Session{}
	c.Member = MemberSummary{}
	r.convs[c.ID] = c
	r.mu.Unlock()
	return r.project(c), nil
}

func (r *convocationRepoStub) GetConvocation(ctx context.Context, id uint) (Convocation, error) {
	r.mu.Lock()
	c, ok := r.convs[id]
	r.mu.Unlock()
	if !ok {
		return Convocation{}, persistence.ErrNotFound
	}
	return r.project(c), nil
}

func (r *convocationRepoStub) FindConvocation(ctx context.Context, memberID, sessionID uint) (Convocation, error) {
	r.mu.Lock()
	var found *Convocation
	for _, c := range r.convs {
		if c.MemberID == memberID && c.SessionID == sessionID {
			c := c
			found = &c
			break
		}
	}
	r.mu.Unlock()
	if found == nil {
		return Convocation{}, persistence.ErrNotFound
	}
	return r.project(*found), nil
}

func (r *convocationRepoStub) ListConvocations(ctx context.Context, filter ConvocationFilter) ([]Convocation, error) {
	r.mu.Lock()
	var out []Convocation
	for _, c := range r.convs {
		switch {
		case filter.SessionID != nil && c.SessionID != *filter.SessionID:
			continue
		case filter.MemberID != nil && c.MemberID != *filter.MemberID:
			continue
		case filter.Status != "" && c.Status != filter.Status:
			continue
		case filter.UnreadOnly && c.ReadAt != nil:
			continue
		}
		out = append(out, c)
	}
	r.mu.Unlock()
	for i := range out {
		out[i] = r.project(out[i])
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Session.Date.Equal(out[j].Session.Date) {
			return out[i].Session.Date.After(out[j].Session.Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *convocationRepoStub) DeleteConvocation(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.convs[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.convs, id)
	return nil
}

func (r *convocationRepoStub) MarkRead(ctx context.Context, id uint, readAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return false, persistence.ErrNotFound
	}
	if c.Status != ConvocationSent {
		return false, nil
	}
	c.Status = ConvocationRead
	if c.ReadAt == nil {
		c.ReadAt = timePtr(readAt)
	}
	r.convs[id] = c
	return true, nil
}

func (r *convocationRepoStub) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.convs)
}

type minutesRepoStub struct {
	mu       sync.Mutex
	nextID   uint
	minutes  map[uint]Minutes
	sessions *sessionRepoStub
}

func newMinutesRepoStub(sessions *sessionRepoStub) *minutesRepoStub {
	return &minutesRepoStub{minutes: map[uint]Minutes{}, sessions: sessions}
}

func (r *minutesRepoStub) project(m Minutes) Minutes {
	if s, err := r.sessions.GetSession(context.Background(), m.SessionID); err == nil {
		m.Session = s
	}
	return m
}

func (r *minutesRepoStub) CreateMinutes(ctx context.Context, m Minutes) (Minutes, error) {
	r.mu.Lock()
	for _, existing := range r.minutes {
		if existing.SessionID == m.SessionID {
			r.mu.Unlock()
			return Minutes{}, persistence.ErrDuplicate
		}
	}
	r.nextID++
	m.ID = r.nextID
	r.minutes[m.ID] = m
	r.mu.Unlock()
	return r.project(m), nil
}

func (r *minutesRepoStub) UpdateMinutes(ctx context.Context, m Minutes) (Minutes, error) {
	r.mu.Lock()
	if _, ok := r.minutes[m.ID]; !ok {
		r.mu.Unlock()
		return Minutes{}, persistence.ErrNotFound
	}
	m.Session = Session{}
	r.minutes[m.ID] = m
	r.mu.Unlock()
	return r.project(m), nil
}

func (r *minutesRepoStub) GetMinutes(ctx context.Context, id uint) (Minutes, error) {
	r.mu.Lock()
	m, ok := r.minutes[id]
	r.mu.Unlock()
	if !ok {
		return Minutes{}, persistence.ErrNotFound
	}
	return r.project(m), nil
}

func (r *minutesRepoStub) ListMinutes(ctx context.Context, sessionID *uint) ([]Minutes, error) {
	r.mu.Lock()
	var out []Minutes
	for _, m := range r.minutes {
		if sessionID != nil && m.SessionID != *sessionID {
			continue
		}
		out = append(out, m)
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].WrittenAt.After(out[j].WrittenAt) })
	for i := range out {
		out[i] = r.project(out[i])
	}
	return out, nil
}

func (r *minutesRepoStub) DeleteMinutes(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.minutes[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(r.minutes, id)
	return nil
}

func (r *minutesRepoStub) CountMinutes(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.minutes)), nil
}

// notifierStub records notices and fails delivery for selected members.
type notifierStub struct {
	mu      sync.Mutex
	failFor map[uint]bool
	notices []ConvocationNotice
}

func (n *notifierStub) NotifyConvocation(ctx context.Context, notice ConvocationNotice) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return !n.failFor[notice.Member.ID]
}

type photoStoreStub struct {
	saved map[uint][]byte
	err   error
}

func (p *photoStoreStub) SavePhoto(ctx context.Context, memberID uint, extension string, data []byte) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	if p.saved == nil {
		p.saved = map[uint][]byte{}
	}
	p.saved[memberID] = data
	return "/uploads/members/" + itoa(memberID) + extension, nil
}

type rendererStub struct {
	rendered []Minutes
}

func (r *rendererStub) RenderMinutes(minutes Minutes) (MinutesExport, error) {
	r.rendered = append(r.rendered, minutes)
	return MinutesExport{
		Filename:    "proces-verbal-session-" + itoa(minutes.SessionID) + ".html",
		ContentType: "text/html; charset=utf-8",
		Body:        []byte(minutes.Content),
	}, nil
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
