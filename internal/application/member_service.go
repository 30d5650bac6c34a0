package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
)

// MaxPhotoSize bounds member photo uploads.
const MaxPhotoSize = 5 << 20

// photoExtensions maps accepted photo content types to file extensions.
var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// PhotoStore persists member photos and returns their public URL.
type PhotoStore interface {
	SavePhoto(ctx context.Context, memberID uint, extension string, data []byte) (string, error)
}

// MemberService orchestrates validation, authorization, and persistence for members.
type MemberService struct {
	members MemberRepository
	photos  PhotoStore
	hash    PasswordHasher
	logger  *slog.Logger
}

// NewMemberService constructs a member service with the provided dependencies.
func NewMemberService(members MemberRepository, photos PhotoStore, hash PasswordHasher) *MemberService {
	return NewMemberServiceWithLogger(members, photos, hash, nil)
}

// NewMemberServiceWithLogger constructs a member service with a specified logger.
func NewMemberServiceWithLogger(members MemberRepository, photos PhotoStore, hash PasswordHasher, logger *slog.Logger) *MemberService {
	if hash == nil {
		hash = HashPassword
	}
	return &MemberService{members: members, photos: photos, hash: hash, logger: defaultLogger(logger)}
}

func (s *MemberService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MemberService", operation, attrs...)
}

// CreateMember validates input and persists a new member for administrators.
func (s *MemberService) CreateMember(ctx context.Context, params CreateMemberParams) (member Member, err error) {
	if s == nil || s.members == nil {
		err = fmt.Errorf("member service not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateMember", "principal_id", params.Principal.MemberID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create member", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("member_id", member.ID).InfoContext(ctx, "member created")
	}()

	if err = authorize(params.Principal, ActionCreate, Resource{Kind: ResourceMember}); err != nil {
		return
	}

	input := params.Input
	role := input.Role
	if role == "" {
		role = RoleMember
	}
	active := true
	if input.Active != nil {
		active = *input.Active
	}

	candidate := Member{
		Name:     strings.TrimSpace(input.Name),
		Email:    normalizeEmail(input.Email),
		Function: strings.TrimSpace(input.Function),
		Role:     role,
		Active:   active,
	}

	vErr := validateMember(candidate)
	if len(input.Password) < MinPasswordLength {
		vErr.add("password", "password is too short")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	hash, err = s.hash(input.Password)
	if err != nil {
		return
	}

	member, err = s.members.CreateMember(ctx, candidate, hash)
	err = mapRepoError(err)
	return
}

// GetMember returns a member to any authenticated principal.
func (s *MemberService) GetMember(ctx context.Context, principal Principal, memberID uint) (Member, error) {
	if s == nil || s.members == nil {
		return Member{}, fmt.Errorf("member service not configured")
	}
	if err := authorize(principal, ActionView, Resource{Kind: ResourceMember, OwnerID: memberID}); err != nil {
		return Member{}, err
	}
	member, err := s.members.GetMember(ctx, memberID)
	if err != nil {
		return Member{}, mapRepoError(err)
	}
	return member, nil
}

// ListMembers returns the member directory to any authenticated principal.
func (s *MemberService) ListMembers(ctx context.Context, principal Principal, activeOnly bool) (members []Member, err error) {
	if s == nil || s.members == nil {
		err = fmt.Errorf("member service not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListMembers", "principal_id", principal.MemberID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list members", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(members)).InfoContext(ctx, "members listed")
	}()

	if err = authorize(principal, ActionList, Resource{Kind: ResourceMember}); err != nil {
		return
	}
	members, err = s.members.ListMembers(ctx, activeOnly)
	err = mapRepoError(err)
	return
}

// UpdateMember applies the optional fields of params.Update. Members may edit
// their own profile but not their role or active flag.
func (s *MemberService) UpdateMember(ctx context.Context, params UpdateMemberParams) (member Member, err error) {
	if s == nil || s.members == nil {
		err = fmt.Errorf("member service not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateMember",
		"principal_id", params.Principal.MemberID,
		"member_id", params.MemberID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update member", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "member updated")
	}()

	update := params.Update
	if err = authorize(params.Principal, ActionUpdate, Resource{
		Kind:    ResourceMember,
		OwnerID: params.MemberID,
		Fields:  update.fields(),
	}); err != nil {
		return
	}

	var existing Member
	existing, err = s.members.GetMember(ctx, params.MemberID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	updated := existing
	if update.Name != nil {
		updated.Name = strings.TrimSpace(*update.Name)
	}
	if update.Email != nil {
		updated.Email = normalizeEmail(*update.Email)
	}
	if update.Function != nil {
		updated.Function = strings.TrimSpace(*update.Function)
	}
	if update.Role != nil {
		updated.Role = *update.Role
	}
	if update.Active != nil {
		updated.Active = *update.Active
	}

	vErr := validateMember(updated)
	if update.Password != nil && len(*update.Password) < MinPasswordLength {
		vErr.add("password", "password is too short")
	}
	if params.Principal.MemberID == existing.ID && existing.Role == RoleAdmin && updated.Role != RoleAdmin {
		vErr.add("role", "administrators cannot demote themselves")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var hash *string
	if update.Password != nil {
		var hashed string
		hashed, err = s.hash(*update.Password)
		if err != nil {
			return
		}
		hash = &hashed
	}

	member, err = s.members.UpdateMember(ctx, updated, hash)
	err = mapRepoError(err)
	return
}

// DeleteMember removes a member, cascading to their convocations.
func (s *MemberService) DeleteMember(ctx context.Context, principal Principal, memberID uint) error {
	if s == nil || s.members == nil {
		return fmt.Errorf("member service not configured")
	}
	if err := authorize(principal, ActionDelete, Resource{Kind: ResourceMember, OwnerID: memberID}); err != nil {
		return err
	}

	logger := s.loggerWith(ctx, "DeleteMember",
		"principal_id", principal.MemberID,
		"member_id", memberID,
	)

	if principal.MemberID == memberID {
		err := newValidationError("id", "administrators cannot delete themselves")
		logger.ErrorContext(ctx, "failed to delete member", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	if err := s.members.DeleteMember(ctx, memberID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete member", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "member deleted")
	return nil
}

// UploadPhoto stores a member photo and records its public URL.
func (s *MemberService) UploadPhoto(ctx context.Context, params UploadPhotoParams) (member Member, err error) {
	if s == nil || s.members == nil || s.photos == nil {
		err = fmt.Errorf("member service not configured")
		return
	}

	logger := s.loggerWith(ctx, "UploadPhoto",
		"principal_id", params.Principal.MemberID,
		"member_id", params.MemberID,
		"size", len(params.Data),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to upload photo", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "photo uploaded")
	}()

	if err = authorize(params.Principal, ActionUploadPhoto, Resource{Kind: ResourceMember, OwnerID: params.MemberID}); err != nil {
		return
	}

	ext, ok := photoExtensions[strings.ToLower(strings.TrimSpace(params.ContentType))]
	switch {
	case len(params.Data) == 0:
		err = newValidationError("photo", "photo is required")
		return
	case len(params.Data) > MaxPhotoSize:
		err = newValidationError("photo", "photo is too large")
		return
	case !ok:
		err = newValidationError("photo", "photo format is not supported")
		return
	}

	var existing Member
	existing, err = s.members.GetMember(ctx, params.MemberID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	var url string
	url, err = s.photos.SavePhoto(ctx, existing.ID, ext, params.Data)
	if err != nil {
		return
	}
	existing.PhotoURL = &url

	member, err = s.members.UpdateMember(ctx, existing, nil)
	err = mapRepoError(err)
	return
}

func (u MemberUpdate) fields() []string {
	var fields []string
	if u.Name != nil {
		fields = append(fields, "nom")
	}
	if u.Email != nil {
		fields = append(fields, "email")
	}
	if u.Function != nil {
		fields = append(fields, "fonction")
	}
	if u.Role != nil {
		fields = append(fields, "role")
	}
	if u.Password != nil {
		fields = append(fields, "password")
	}
	if u.Active != nil {
		fields = append(fields, "actif")
	}
	return fields
}

func validateMember(member Member) *ValidationError {
	vErr := &ValidationError{}
	if member.Name == "" {
		vErr.add("nom", "name is required")
	}
	if member.Email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(member.Email); err != nil {
		vErr.add("email", "email is invalid")
	}
	if !member.Role.Valid() {
		vErr.add("role", "role is invalid")
	}
	return vErr
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
