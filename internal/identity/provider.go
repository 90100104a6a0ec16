package identity

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-eval-api/internal/models"
	"github.com/noah-isme/gema-eval-api/internal/repository"
)

// Kind classifies a failed sign-in.
type Kind string

const (
	KindInvalidCredential Kind = "invalid_credential"
	KindUserNotFound      Kind = "user_not_found"
	KindWrongPassword     Kind = "wrong_password"
	KindOther             Kind = "other"
)

// AuthError is the typed failure returned by a Provider.
type AuthError struct {
	Kind Kind
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sign-in failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("sign-in failed (%s)", e.Kind)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from err, or KindOther when err is not an AuthError.
func KindOf(err error) Kind {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return KindOther
}

// Identity is a signed-in teacher.
type Identity struct {
	AccountID   uint   `json:"account_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// Provider authenticates teachers by email and password.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (Identity, error)
}

// NewPasswordProvider checks credentials against bcrypt hashes stored in teacher accounts.
func NewPasswordProvider(repo repository.TeacherRepository, logger zerolog.Logger) Provider {
	logger = logger.With().Str("component", "identity_provider").Logger()
	dummyHash, err := bcrypt.GenerateFromPassword([]byte("unknown-account"), bcrypt.DefaultCost)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to prepare placeholder password hash")
	}
	return &passwordProvider{
		repo:      repo,
		dummyHash: dummyHash,
		logger:    logger,
	}
}

type passwordProvider struct {
	repo      repository.TeacherRepository
	dummyHash []byte
	logger    zerolog.Logger
}

func (p *passwordProvider) SignIn(ctx context.Context, email, password string) (Identity, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil || password == "" {
		return Identity{}, &AuthError{Kind: KindInvalidCredential}
	}

	account, err := p.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Unknown accounts pay the same bcrypt cost as a wrong password.
			_ = bcrypt.CompareHashAndPassword(p.dummyHash, []byte(password))
			return Identity{}, &AuthError{Kind: KindUserNotFound}
		}
		p.logger.Error().Err(err).Msg("failed to load teacher account")
		return Identity{}, &AuthError{Kind: KindOther, Err: err}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return Identity{}, &AuthError{Kind: KindWrongPassword}
		}
		return Identity{}, &AuthError{Kind: KindOther, Err: err}
	}

	p.logger.Info().Uint("account_id", account.ID).Msg("teacher signed in")
	return identityOf(account), nil
}

func identityOf(account models.TeacherAccount) Identity {
	return Identity{AccountID: account.ID, Email: account.Email, DisplayName: account.DisplayName}
}

// CreateAccount hashes password and stores a new teacher account.
func CreateAccount(ctx context.Context, repo repository.TeacherRepository, email, displayName, password string) (Identity, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Identity{}, fmt.Errorf("hash password: %w", err)
	}
	account := &models.TeacherAccount{
		Email:        strings.TrimSpace(email),
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hash),
	}
	if err := repo.Create(ctx, account); err != nil {
		return Identity{}, fmt.Errorf("create teacher account: %w", err)
	}
	return identityOf(*account), nil
}
