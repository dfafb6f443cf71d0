package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	pkg_hash "github.com/Skotchmaster/storefront/pkg/hash"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
	"github.com/google/uuid"
)

const verificationTTL = 24 * time.Hour

type AuthService struct {
	Repo          *repo.GormRepo
	AccessSecret  []byte
	RefreshSecret []byte
	// Publisher receives user_events; nil drops them.
	Publisher Publisher
	Now       func() time.Time
}

type VerificationOutcome string

const (
	VerificationSent            VerificationOutcome = "sent"
	VerificationAlreadyVerified VerificationOutcome = "already_verified"
)

type verificationEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type userEvent struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

type LoginResult struct {
	UserID       uuid.UUID
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	IsAdmin      bool
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: email required", ErrValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email", ErrValidation)
	}
	return email, nil
}

// Register creates an unverified customer and requests the verification email.
func (s *AuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	token := uuid.NewString()
	expires := nowFunc(s.Now).Add(verificationTTL)
	user, err := s.createUser(ctx, l, &models.User{
		Email:                 email,
		Role:                  models.RoleUser,
		VerificationToken:     &token,
		VerificationExpiresAt: &expires,
	}, password)
	if err != nil {
		return nil, err
	}
	s.requestVerification(ctx, user, token, expires)
	return user, nil
}

// SeedAdmin creates the admin account once; an existing account is left untouched.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string) error {
	l := logging.FromContext(ctx).With("svc", "auth.seed_admin")

	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	now := nowFunc(s.Now)
	admin := &models.User{Email: email, Role: models.RoleAdmin, EmailVerified: true, VerifiedAt: &now}
	if _, err := s.createUser(ctx, l, admin, password); err != nil {
		if errors.Is(err, ErrConflict) {
			l.Debug("admin_exists", "email", email)
			return nil
		}
		return err
	}
	l.Info("admin_seeded", "email", email)
	return nil
}

func hashPassword(l *slog.Logger, password string) (string, error) {
	pwHash, err := pkg_hash.HashPassword(password)
	if err != nil {
		if errors.Is(err, pkg_hash.ErrPasswordTooShort) || errors.Is(err, pkg_hash.ErrPasswordTooLong) {
			return "", fmt.Errorf("%w: %w", ErrValidation, err)
		}
		l.Error("hash_error", "error", err)
		return "", err
	}
	return pwHash, nil
}

func (s *AuthService) createUser(ctx context.Context, l *slog.Logger, user *models.User, password string) (*models.User, error) {
	pwHash, err := hashPassword(l, password)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = pwHash

	if err := s.Repo.CreateUserIfNotExists(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			return nil, fmt.Errorf("%w: user already exists", ErrConflict)
		}
		l.Error("create_user_error", "error", err)
		return nil, storeErr(err)
	}
	return user, nil
}

func (s *AuthService) requestVerification(ctx context.Context, user *models.User, token string, expires time.Time) {
	publish(ctx, s.Publisher, TopicUserEvents, user.ID.String(), EventEmailVerificationRequested, verificationEvent{
		UserID:    user.ID,
		Email:     user.Email,
		Token:     token,
		ExpiresAt: expires,
	})
}

// VerifyEmail consumes a verification token. Tokens are single use.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	now := nowFunc(s.Now)

	user, err := s.Repo.UserByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(storeErr(err), ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown verification token", ErrNotFound)
		}
		return nil, storeErr(err)
	}
	if user.VerificationExpiresAt != nil && !now.Before(*user.VerificationExpiresAt) {
		return nil, fmt.Errorf("%w: verification link expired", ErrValidation)
	}
	if err := s.Repo.MarkEmailVerified(ctx, user.ID, now); err != nil {
		return nil, storeErr(err)
	}
	user.EmailVerified = true
	user.VerifiedAt = &now
	user.VerificationToken = nil
	user.VerificationExpiresAt = nil

	publish(ctx, s.Publisher, TopicUserEvents, user.ID.String(), EventEmailVerified, userEvent{UserID: user.ID, Email: user.Email})
	return user, nil
}

// ResendVerification issues a fresh token; the previous one stops working.
func (s *AuthService) ResendVerification(ctx context.Context, email string) (VerificationOutcome, error) {
	l := logging.FromContext(ctx).With("svc", "auth.resend_verification")

	email, err := normalizeEmail(email)
	if err != nil {
		return "", err
	}
	user, err := s.Repo.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(storeErr(err), ErrNotFound) {
			return "", fmt.Errorf("%w: no account for %s", ErrNotFound, email)
		}
		l.Error("resend_verification_error", "error", err)
		return "", storeErr(err)
	}
	if user.EmailVerified {
		return VerificationAlreadyVerified, nil
	}

	token := uuid.NewString()
	expires := nowFunc(s.Now).Add(verificationTTL)
	if err := s.Repo.SetVerificationToken(ctx, user.ID, token, expires); err != nil {
		l.Error("resend_verification_error", "error", err)
		return "", storeErr(err)
	}
	s.requestVerification(ctx, user, token, expires)
	return VerificationSent, nil
}

// ChangePassword checks the current password, stores the new one and revokes every
// refresh token the user holds. The returned pair replaces the caller's session.
func (s *AuthService) ChangePassword(ctx context.Context, p Principal, current, next string) (*LoginResult, error) {
	if !p.Authenticated() {
		return nil, ErrUnauthorized
	}
	if current == "" || next == "" {
		return nil, fmt.Errorf("%w: current and new password required", ErrValidation)
	}
	if current == next {
		return nil, fmt.Errorf("%w: new password must differ from the current one", ErrValidation)
	}
	l := logging.FromContext(ctx).With("svc", "auth.change_password", "user_id", p.UserID)

	pwHash, err := hashPassword(l, next)
	if err != nil {
		return nil, err
	}

	var (
		res   *LoginResult
		email string
	)
	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		user, err := tx.UserByID(ctx, p.UserID)
		if err != nil {
			if errors.Is(storeErr(err), ErrNotFound) {
				return ErrUnauthorized
			}
			return storeErr(err)
		}
		if !pkg_hash.CheckPassword(user.PasswordHash, current) {
			return fmt.Errorf("%w: current password is incorrect", ErrValidation)
		}
		if err := tx.UpdatePasswordHash(ctx, user.ID, pwHash); err != nil {
			return storeErr(err)
		}
		revoked, err := tx.RevokeUserRefreshTokens(ctx, user.ID)
		if err != nil {
			return storeErr(err)
		}
		l.Info("sessions_revoked", "count", revoked)

		email = user.Email
		res, err = s.issue(ctx, tx, user)
		return err
	})
	if err != nil {
		if !isDomainErr(err) {
			l.Error("change_password_error", "error", err)
		}
		return nil, err
	}

	publish(ctx, s.Publisher, TopicUserEvents, p.UserID.String(), EventPasswordChanged, userEvent{UserID: p.UserID, Email: email})
	return res, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	l := logging.FromContext(ctx).With("svc", "auth.login", "email", email)

	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password required", ErrValidation)
	}

	user, err := s.Repo.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(storeErr(err), ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		l.Error("login_error", "error", err)
		return nil, storeErr(err)
	}
	if !pkg_hash.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	res, err := s.issue(ctx, s.Repo, user)
	if err != nil {
		l.Error("login_error", "error", err)
		return nil, err
	}
	return res, nil
}

func (s *AuthService) issue(ctx context.Context, r *repo.GormRepo, user *models.User) (*LoginResult, error) {
	now := nowFunc(s.Now)
	accessExp := now.Add(tokens.AccessTTL)
	refreshExp := now.Add(tokens.RefreshTTL)

	access, err := tokens.SignAccess(s.AccessSecret, user.ID.String(), user.Role, accessExp)
	if err != nil {
		return nil, err
	}
	refresh, jti, err := tokens.SignRefresh(s.RefreshSecret, user.ID.String(), refreshExp)
	if err != nil {
		return nil, err
	}

	if err := r.SaveRefreshToken(ctx, &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: tokens.Sha256Hex(refresh),
		JTI:       jti,
		ExpiresAt: refreshExp,
	}); err != nil {
		return nil, storeErr(err)
	}

	return &LoginResult{
		UserID:       user.ID,
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
		IsAdmin:      user.Role == models.RoleAdmin,
	}, nil
}

// Refresh rotates the refresh token: the presented one is revoked and a new pair issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	var res *LoginResult
	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		stored, err := tx.RefreshTokenByJTI(ctx, claims.ID)
		if err != nil {
			if errors.Is(storeErr(err), ErrNotFound) {
				return ErrInvalidRefreshToken
			}
			return storeErr(err)
		}
		if stored.UserID != userID || stored.TokenHash != tokens.Sha256Hex(refreshToken) || !stored.Usable(nowFunc(s.Now)) {
			return ErrInvalidRefreshToken
		}

		revoked, err := tx.RevokeRefreshToken(ctx, claims.ID)
		if err != nil {
			return storeErr(err)
		}
		if !revoked {
			return ErrInvalidRefreshToken
		}

		user, err := tx.UserByID(ctx, userID)
		if err != nil {
			if errors.Is(storeErr(err), ErrNotFound) {
				return ErrInvalidRefreshToken
			}
			return storeErr(err)
		}

		res, err = s.issue(ctx, tx, user)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrUnauthorized) {
			l.Error("refresh_error", "error", err)
		}
		return nil, err
	}
	return res, nil
}

// LogOut revokes the refresh token; an empty token is a no-op.
func (s *AuthService) LogOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret); err == nil {
		_, err := s.Repo.RevokeRefreshToken(ctx, claims.ID)
		return storeErr(err)
	}
	return storeErr(s.Repo.RevokeRefreshTokenByHash(ctx, tokens.Sha256Hex(refreshToken)))
}

func (s *AuthService) PruneRefreshTokens(ctx context.Context) (int64, error) {
	n, err := s.Repo.DeleteExpiredRefreshTokens(ctx, nowFunc(s.Now))
	return n, storeErr(err)
}
