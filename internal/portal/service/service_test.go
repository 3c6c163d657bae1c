package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trialdiary/sponsorportal/internal/portal/domain"
	"github.com/trialdiary/sponsorportal/internal/portal/store/drivers/memory"
	"github.com/trialdiary/sponsorportal/pkg/cryptox"
	"github.com/trialdiary/sponsorportal/pkg/jwtx"
)

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "portal-service-test-pepper")
	cryptox.SetPepperPath(pepperPath)

	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

func newSigner(t *testing.T) *jwtx.EdDSASigner {
	t.Helper()

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	signer, err := jwtx.NewSignerEdDSA("test-key", pemKey)
	require.NoError(t, err)
	return signer
}

func newServices(t *testing.T) (*UserService, *ActivationService, *AuthService, *jwtx.EdDSAVerifier) {
	t.Helper()

	st := memory.NewStore()
	signer := newSigner(t)

	keys := jwtx.NewKeySet()
	keys.AddSigner(signer)

	tokens := &TokenService{
		Signer:     signer,
		Issuer:     "sponsor-portal",
		SessionTTL: time.Hour,
	}

	return &UserService{Store: st},
		&ActivationService{Store: st},
		&AuthService{Store: st, Tokens: tokens},
		jwtx.NewVerifierEdDSA(keys, "sponsor-portal")
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	users, _, _, _ := newServices(t)

	t.Run("provisions dormant account with linking code", func(t *testing.T) {
		u, err := users.Create(ctx, "Inv@Example.com", "Site Investigator",
			domain.RoleInvestigator, []string{"site-001"})
		require.NoError(t, err)

		require.Equal(t, "inv@example.com", u.Email, "email is lowercased")
		require.NotEmpty(t, u.ID)
		require.Len(t, u.LinkingCode, 11)
		require.True(t, u.IsActive)
		require.False(t, u.Activated(), "no password until the code is redeemed")
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		_, err := users.Create(ctx, "inv@example.com", "Someone Else",
			domain.RoleAdmin, nil)
		require.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("investigators require assigned sites", func(t *testing.T) {
		_, err := users.Create(ctx, "inv2@example.com", "No Sites",
			domain.RoleInvestigator, nil)
		require.ErrorIs(t, err, ErrSitesRequired)
	})

	t.Run("admins never carry site lists", func(t *testing.T) {
		u, err := users.Create(ctx, "adm@example.com", "Admin",
			domain.RoleAdmin, []string{"site-001"})
		require.NoError(t, err)
		require.Nil(t, u.AssignedSites)
	})

	t.Run("rejects unknown roles and junk input", func(t *testing.T) {
		_, err := users.Create(ctx, "x@example.com", "X", domain.Role("superuser"), nil)
		require.ErrorIs(t, err, ErrInvalidRole)

		_, err = users.Create(ctx, "not-an-email", "X", domain.RoleAdmin, nil)
		require.ErrorIs(t, err, ErrInvalidUserRequest)

		_, err = users.Create(ctx, "x@example.com", "", domain.RoleAdmin, nil)
		require.ErrorIs(t, err, ErrInvalidUserRequest)
	})
}

func TestActivationRedeem(t *testing.T) {
	ctx := context.Background()
	users, activation, _, _ := newServices(t)

	created, err := users.Create(ctx, "inv@example.com", "Investigator",
		domain.RoleInvestigator, []string{"site-001"})
	require.NoError(t, err)

	t.Run("weak password rejected before touching the code", func(t *testing.T) {
		_, err := activation.Redeem(ctx, created.LinkingCode, "short")
		require.ErrorIs(t, err, ErrWeakPassword)

		// Code still redeemable.
		_, err = activation.Redeem(ctx, created.LinkingCode, "correct horse battery")
		require.NoError(t, err)
	})

	t.Run("replay fails", func(t *testing.T) {
		_, err := activation.Redeem(ctx, created.LinkingCode, "another password")
		require.ErrorIs(t, err, ErrInvalidCode)
	})

	t.Run("normalizes case and surrounding whitespace", func(t *testing.T) {
		second, err := users.Create(ctx, "inv2@example.com", "Investigator Two",
			domain.RoleInvestigator, []string{"site-002"})
		require.NoError(t, err)

		lowered := "  " + second.LinkingCode + " "
		u, err := activation.Redeem(ctx, lowered, "correct horse battery")
		require.NoError(t, err)
		require.Equal(t, second.ID, u.ID)
	})

	t.Run("unknown and malformed codes look identical", func(t *testing.T) {
		_, err := activation.Redeem(ctx, "AB3D5-FG7H9", "correct horse battery")
		require.ErrorIs(t, err, ErrInvalidCode)

		_, err = activation.Redeem(ctx, "garbage", "correct horse battery")
		require.ErrorIs(t, err, ErrInvalidCode)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	users, activation, auth, verifier := newServices(t)

	created, err := users.Create(ctx, "inv@example.com", "Investigator",
		domain.RoleInvestigator, []string{"site-001"})
	require.NoError(t, err)

	t.Run("unactivated account cannot log in", func(t *testing.T) {
		_, err := auth.Login(ctx, "inv@example.com", "anything-at-all")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	_, err = activation.Redeem(ctx, created.LinkingCode, "correct horse battery")
	require.NoError(t, err)

	t.Run("issues a verifiable session token", func(t *testing.T) {
		token, err := auth.Login(ctx, "INV@example.com", "correct horse battery")
		require.NoError(t, err)
		require.Equal(t, "Bearer", token.TokenType)
		require.EqualValues(t, 3600, token.ExpiresIn)

		claims, err := verifier.Verify(token.Token)
		require.NoError(t, err)
		require.Equal(t, created.ID, claims.Subject)
		require.Equal(t, "investigator", claims.Role)
		require.Equal(t, "sponsor-portal", claims.Issuer)
	})

	t.Run("wrong password and unknown email are indistinguishable", func(t *testing.T) {
		_, errWrong := auth.Login(ctx, "inv@example.com", "wrong password")
		_, errUnknown := auth.Login(ctx, "ghost@example.com", "wrong password")
		require.ErrorIs(t, errWrong, ErrInvalidCredentials)
		require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	})

	t.Run("deactivated account is refused with the same error", func(t *testing.T) {
		require.NoError(t, users.SetActive(ctx, created.ID, false))

		_, err := auth.Login(ctx, "inv@example.com", "correct horse battery")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		require.NoError(t, users.SetActive(ctx, created.ID, true))
		_, err = auth.Login(ctx, "inv@example.com", "correct horse battery")
		require.NoError(t, err)
	})
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	users, activation, auth, _ := newServices(t)

	created, err := users.Create(ctx, "inv@example.com", "Investigator",
		domain.RoleInvestigator, []string{"site-001"})
	require.NoError(t, err)
	_, err = activation.Redeem(ctx, created.LinkingCode, "old password!")
	require.NoError(t, err)

	t.Run("requires the current password", func(t *testing.T) {
		err := auth.ChangePassword(ctx, created.ID, "not the password", "new password!")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("enforces the length policy", func(t *testing.T) {
		err := auth.ChangePassword(ctx, created.ID, "old password!", "tiny")
		require.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("old password stops working after a change", func(t *testing.T) {
		require.NoError(t, auth.ChangePassword(ctx, created.ID, "old password!", "new password!"))

		_, err := auth.Login(ctx, "inv@example.com", "old password!")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = auth.Login(ctx, "inv@example.com", "new password!")
		require.NoError(t, err)
	})
}

func TestSetActive(t *testing.T) {
	ctx := context.Background()
	users, _, _, _ := newServices(t)

	require.ErrorIs(t, users.SetActive(ctx, "missing", false), ErrUserNotFound)
}
