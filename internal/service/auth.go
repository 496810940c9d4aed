package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mbelozerov/storefront/internal/events"
	"github.com/mbelozerov/storefront/internal/hash"
	"github.com/mbelozerov/storefront/internal/logging"
	"github.com/mbelozerov/storefront/internal/models"
	"github.com/mbelozerov/storefront/internal/repo"
	"github.com/mbelozerov/storefront/internal/tokens"
	"github.com/mbelozerov/storefront/internal/verification"
)

// EventPublisher and AuditSink are the two places auth events fan out
// to. Both are best-effort: a failure is logged, never surfaced.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type AuditSink interface {
	Add(ctx context.Context, event events.Event) error
}

type AuthService struct {
	Repo      *repo.GormRepo
	JWTSecret []byte
	Mailer    verification.Mailer
	Producer  EventPublisher
	Audit     AuditSink
}

func (s *AuthService) Signup(ctx context.Context, name, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.signup")
	email = normalizeEmail(email)

	if _, err := s.Repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}

	code, err := verification.GenerateCode()
	if err != nil {
		return nil, err
	}
	codeExp := time.Now().Add(verification.CodeTTL)

	user := &models.User{
		Name:             name,
		Email:            email,
		PasswordHash:     pwHash,
		Role:             models.RoleUser,
		VerificationCode: code,
		CodeExpiresAt:    &codeExp,
	}
	if err := s.Repo.Create(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	// The account keeps its pending code even if delivery fails; the
	// user can ask for the code to be re-sent.
	if err := s.Mailer.Send(ctx, user.Email, user.Name, code); err != nil {
		l.Error("verification mail failed", "user_id", user.ID, "error", err)
	}

	s.emit(ctx, events.TypeSignedUp, user)
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = normalizeEmail(email)

	user, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	// Unverified accounts are unusable whatever the password says.
	if !user.Verified {
		return "", nil, ErrNotVerified
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := tokens.Issue(user.ID, user.Email, string(user.Role), s.JWTSecret)
	if err != nil {
		return "", nil, err
	}

	s.emit(ctx, events.TypeLoggedIn, user)
	return token, user, nil
}

func (s *AuthService) Verify(ctx context.Context, email, code string) (string, *models.User, error) {
	email = normalizeEmail(email)

	user, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", nil, ErrUserNotFound
		}
		return "", nil, err
	}
	if user.VerificationCode == "" {
		return "", nil, ErrAlreadyVerified
	}
	if user.CodeExpiresAt != nil && time.Now().After(*user.CodeExpiresAt) {
		return "", nil, ErrCodeExpired
	}
	if user.VerificationCode != code {
		return "", nil, ErrCodeMismatch
	}

	user.VerificationCode = ""
	user.CodeExpiresAt = nil
	user.Verified = true
	if err := s.Repo.Save(ctx, user); err != nil {
		return "", nil, err
	}

	token, err := tokens.Issue(user.ID, user.Email, string(user.Role), s.JWTSecret)
	if err != nil {
		return "", nil, err
	}

	s.emit(ctx, events.TypeVerified, user)
	return token, user, nil
}

func (s *AuthService) ChangeEmail(ctx context.Context, userID uint, newEmail string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.change_email")
	newEmail = normalizeEmail(newEmail)

	user, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.Email == newEmail {
		return nil, ErrSameEmail
	}
	if _, err := s.Repo.GetByEmail(ctx, newEmail); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	code, err := verification.GenerateCode()
	if err != nil {
		return nil, err
	}
	codeExp := time.Now().Add(verification.CodeTTL)

	user.Email = newEmail
	user.Verified = false
	user.VerificationCode = code
	user.CodeExpiresAt = &codeExp
	if err := s.Repo.Save(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	if err := s.Mailer.Send(ctx, user.Email, user.Name, code); err != nil {
		l.Error("verification mail failed", "user_id", user.ID, "error", err)
	}

	s.emit(ctx, events.TypeEmailChange, user)
	return user, nil
}

// DeleteAccount removes targetID. Deleting anyone other than the acting
// user requires the admin role.
func (s *AuthService) DeleteAccount(ctx context.Context, actorID uint, actorRole models.Role, targetID uint) (*models.User, error) {
	if targetID != actorID && actorRole != models.RoleAdmin {
		return nil, ErrForbidden
	}

	user, err := s.Repo.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if err := s.Repo.Delete(ctx, targetID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	s.emit(ctx, events.TypeDeleted, user)
	return user, nil
}

func (s *AuthService) emit(ctx context.Context, eventType string, user *models.User) {
	l := logging.FromContext(ctx)
	event := events.Event{
		Type:   eventType,
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
		At:     time.Now().UTC(),
	}
	if s.Producer != nil {
		if err := s.Producer.Publish(ctx, event); err != nil {
			l.Error("event publish failed", "type", eventType, "user_id", user.ID, "error", err)
		}
	}
	if s.Audit != nil {
		if err := s.Audit.Add(ctx, event); err != nil {
			l.Error("audit index failed", "type", eventType, "user_id", user.ID, "error", err)
		}
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
