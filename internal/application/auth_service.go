package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/council-portal/internal/token"
)

// TokenService signs and verifies bearer tokens.
type TokenService interface {
	Issue(memberID uint, role string) (string, time.Time, error)
	Verify(raw string) (token.Claims, error)
}

// AuthService coordinates login and per-request credential verification.
type AuthService struct {
	members        MemberRepository
	tokens         TokenService
	verifyPassword PasswordVerifier
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(members MemberRepository, tokens TokenService, verify PasswordVerifier) *AuthService {
	return NewAuthServiceWithLogger(members, tokens, verify, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(members MemberRepository, tokens TokenService, verify PasswordVerifier, logger *slog.Logger) *AuthService {
	if verify == nil {
		verify = VerifyPassword
	}
	return &AuthService{
		members:        members,
		tokens:         tokens,
		verifyPassword: verify,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate validates credentials and issues a signed token.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.members == nil || s.tokens == nil {
		err = fmt.Errorf("auth service not configured")
		return
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))

	logger := s.loggerWith(ctx, "Authenticate", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("member_id", result.Member.ID).InfoContext(ctx, "authentication succeeded")
	}()

	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	var creds MemberCredentials
	creds, err = s.members.GetMemberCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}
	if !creds.Member.Active {
		err = ErrInvalidCredentials
		return
	}
	if err = s.verifyPassword(creds.PasswordHash, params.Password); err != nil {
		err = ErrInvalidCredentials
		return
	}

	var signed string
	var expiresAt time.Time
	signed, expiresAt, err = s.tokens.Issue(creds.Member.ID, string(creds.Member.Role))
	if err != nil {
		return
	}

	result = AuthenticateResult{Member: creds.Member, Token: signed, ExpiresAt: expiresAt}
	return
}

// ValidateSession verifies the token and resolves the member from the store on
// every call, so role changes and deletions apply to tokens already issued.
func (s *AuthService) ValidateSession(ctx context.Context, raw string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.members == nil || s.tokens == nil {
		err = fmt.Errorf("auth service not configured")
		return
	}

	logger := s.loggerWith(ctx, "ValidateSession", "token_provided", strings.TrimSpace(raw) != "")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "session validation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("principal_id", principal.MemberID).DebugContext(ctx, "session validated")
	}()

	var claims token.Claims
	claims, err = s.tokens.Verify(raw)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			err = ErrTokenExpired
			return
		}
		err = fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		return
	}

	var memberID uint
	memberID, err = claims.MemberID()
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrUnauthenticated, err)
		return
	}

	var member Member
	member, err = s.members.GetMember(ctx, memberID)
	if err != nil {
		if errors.Is(mapRepoError(err), ErrNotFound) {
			err = fmt.Errorf("%w: member %d no longer exists", ErrUnauthenticated, memberID)
		}
		return
	}
	if !member.Active {
		err = fmt.Errorf("%w: member %d is inactive", ErrUnauthenticated, memberID)
		return
	}

	principal = Principal{MemberID: member.ID, Role: member.Role}
	return
}

// CurrentMember returns the member behind the principal.
func (s *AuthService) CurrentMember(ctx context.Context, principal Principal) (Member, error) {
	if s == nil || s.members == nil {
		return Member{}, fmt.Errorf("auth service not configured")
	}
	if !principal.Authenticated() {
		return Member{}, ErrUnauthenticated
	}
	member, err := s.members.GetMember(ctx, principal.MemberID)
	if err != nil {
		return Member{}, mapRepoError(err)
	}
	return member, nil
}
