package identity

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-eval-api/internal/models"
	"github.com/noah-isme/gema-eval-api/internal/repository"
)

func setupProvider(t *testing.T) (Provider, repository.TeacherRepository) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.TeacherAccount{}))

	repo := repository.NewTeacherRepository(db)
	return NewPasswordProvider(repo, zerolog.Nop()), repo
}

func TestSignInSucceeds(t *testing.T) {
	provider, repo := setupProvider(t)
	ctx := context.Background()

	created, err := CreateAccount(ctx, repo, "Teacher@School.Test", "Ms. Iyer", "s3cret!")
	require.NoError(t, err)
	require.NotZero(t, created.AccountID)

	identity, err := provider.SignIn(ctx, " teacher@school.test ", "s3cret!")
	require.NoError(t, err)
	require.Equal(t, created.AccountID, identity.AccountID)
	require.Equal(t, "teacher@school.test", identity.Email)
	require.Equal(t, "Ms. Iyer", identity.DisplayName)
}

func TestSignInFailureKinds(t *testing.T) {
	provider, repo := setupProvider(t)
	ctx := context.Background()

	_, err := CreateAccount(ctx, repo, "teacher@school.test", "Ms. Iyer", "s3cret!")
	require.NoError(t, err)

	cases := []struct {
		name     string
		email    string
		password string
		kind     Kind
	}{
		{name: "malformed email", email: "not-an-email", password: "x", kind: KindInvalidCredential},
		{name: "empty password", email: "teacher@school.test", password: "", kind: KindInvalidCredential},
		{name: "unknown user", email: "other@school.test", password: "s3cret!", kind: KindUserNotFound},
		{name: "wrong password", email: "teacher@school.test", password: "guess", kind: KindWrongPassword},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := provider.SignIn(ctx, tc.email, tc.password)
			require.Error(t, err)
			require.Equal(t, tc.kind, KindOf(err))
		})
	}
}

func TestUnknownAccountUsesPlaceholderHash(t *testing.T) {
	provider, _ := setupProvider(t)
	p, ok := provider.(*passwordProvider)
	require.True(t, ok)

	cost, err := bcrypt.Cost(p.dummyHash)
	require.NoError(t, err)
	require.Equal(t, bcrypt.DefaultCost, cost)
	require.ErrorIs(t, bcrypt.CompareHashAndPassword(p.dummyHash, []byte("s3cret!")), bcrypt.ErrMismatchedHashAndPassword)

	_, err = provider.SignIn(context.Background(), "ghost@school.test", "s3cret!")
	require.Equal(t, KindUserNotFound, KindOf(err))
}

func TestKindOfUntypedError(t *testing.T) {
	require.Equal(t, KindOther, KindOf(errors.New("boom")))

	wrapped := fmt.Errorf("sign in: %w", &AuthError{Kind: KindWrongPassword})
	require.Equal(t, KindWrongPassword, KindOf(wrapped))
}
