package services

import (
	"context"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/mailio/go-vault-server/repository"
	"github.com/mailio/go-vault-server/types"
	"github.com/mailio/go-vault-server/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testWords = util.WordList{"able", "bridge", "cedar", "delta", "ember", "frost", "grove", "harbor"}

func newTestSelector() *repository.RepositorySelector {
	sel := repository.NewRepositorySelector()
	sel.AddDB(repository.NewInMemoryRepository(repository.User))
	sel.AddDB(repository.NewInMemoryRepository(repository.VaultFile))
	return sel
}

func newKV() repository.KeyValueStore {
	return repository.NewMemoryKeyValueStore()
}

func newTestUserService(t *testing.T) *UserService {
	t.Helper()
	sessions := NewSessionService(newKV(), time.Hour)
	return NewUserService(newTestSelector(), sessions)
}

func testPassphraseInput() *types.InputPassphrase {
	return &types.InputPassphrase{
		PassphraseWrappedVaultKey: strings.Repeat("ab", util.WrappedVaultKeySize),
		PassphraseKeySalt:         strings.Repeat("01", util.KeySaltSize),
		PassphraseHash:            strings.Repeat("CD", 32),
	}
}

func TestCreateUser(t *testing.T) {
	us := newTestUserService(t)
	ctx := context.Background()

	user, err := us.CreateUser(ctx, "Alice42")
	require.NoError(t, err)
	assert.Equal(t, "alice42", user.Username)
	assert.NotEmpty(t, user.Handle)
	assert.False(t, user.HasPassphrase())

	_, err = us.CreateUser(ctx, "alice42")
	assert.ErrorIs(t, err, types.ErrUserExists)

	_, err = us.CreateUser(ctx, "  ")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestCreateRandomUser(t *testing.T) {
	us := newTestUserService(t)
	user, err := us.CreateRandomUser(context.Background(), testWords)
	require.NoError(t, err)

	found, err := us.GetUser(context.Background(), user.Username)
	require.NoError(t, err)
	assert.Equal(t, user.Handle, found.Handle)
}

func TestFindUserBySession(t *testing.T) {
	us := newTestUserService(t)
	ctx := context.Background()

	user, err := us.CreateUser(ctx, "alice42")
	require.NoError(t, err)
	token, err := us.StartSession(ctx, user)
	require.NoError(t, err)

	found, err := us.FindUserBySession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "alice42", found.Username)

	_, err = us.FindUserBySession(ctx, "bogus")
	assert.ErrorIs(t, err, types.ErrNotAuthorized)
	_, err = us.FindUserBySession(ctx, "")
	assert.ErrorIs(t, err, types.ErrNotAuthorized)

	require.NoError(t, us.EndSession(ctx, token))
	_, err = us.FindUserBySession(ctx, token)
	assert.ErrorIs(t, err, types.ErrNotAuthorized)
}

func TestSetPassphraseAndLogin(t *testing.T) {
	us := newTestUserService(t)
	ctx := context.Background()

	user, err := us.CreateUser(ctx, "alice42")
	require.NoError(t, err)

	input := testPassphraseInput()
	updated, err := us.SetPassphrase(ctx, user, input)
	require.NoError(t, err)
	assert.True(t, updated.HasPassphrase())
	assert.Equal(t, strings.ToLower(input.PassphraseHash), updated.PassphraseHash)

	_, err = us.SetPassphrase(ctx, updated, input)
	assert.ErrorIs(t, err, types.ErrConflict)

	loggedIn, err := us.Login(ctx, "alice42", input.PassphraseHash)
	require.NoError(t, err)
	assert.Equal(t, updated.PassphraseWrappedVaultKey, loggedIn.PassphraseWrappedVaultKey)
	assert.Equal(t, updated.PassphraseKeySalt, loggedIn.PassphraseKeySalt)
}

func TestSetPassphraseWithStaleUser(t *testing.T) {
	us := newTestUserService(t)
	ctx := context.Background()

	stale, err := us.CreateUser(ctx, "alice42")
	require.NoError(t, err)

	first := testPassphraseInput()
	_, err = us.SetPassphrase(ctx, stale, first)
	require.NoError(t, err)

	second := testPassphraseInput()
	second.PassphraseHash = strings.Repeat("ee", 32)
	second.PassphraseWrappedVaultKey = strings.Repeat("12", util.WrappedVaultKeySize)
	_, err = us.SetPassphrase(ctx, stale, second)
	assert.ErrorIs(t, err, types.ErrConflict)

	stored, err := us.GetUser(ctx, "alice42")
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(first.PassphraseHash), stored.PassphraseHash)
	assert.Equal(t, first.PassphraseWrappedVaultKey, stored.PassphraseWrappedVaultKey)
}

func TestUpdateUserRetriesOnConflict(t *testing.T) {
	us := newTestUserService(t)
	ctx := context.Background()

	_, err := us.CreateUser(ctx, "alice42")
	require.NoError(t, err)

	// a concurrent writer slips in between the first read and save
	calls := 0
	interfere := func(current *types.User) error {
		calls++
		if calls == 1 {
			_, err := us.AddCredential(ctx, "alice42", &webauthn.Credential{ID: []byte{9}})
			require.NoError(t, err)
		}
		return nil
	}
	fileID := "file-1"
	updated, err := us.UpdateUser(ctx, "alice42", types.UserFields{FileID: &fileID}, interfere)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "file-1", updated.FileID)
	require.Len(t, updated.Credentials, 1, "the concurrent write is kept")
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	us := newTestUserService(t)
	ctx := context.Background()

	withPass, err := us.CreateUser(ctx, "alice42")
	require.NoError(t, err)
	_, err = us.SetPassphrase(ctx, withPass, testPassphraseInput())
	require.NoError(t, err)
	_, err = us.CreateUser(ctx, "bob07")
	require.NoError(t, err)

	wrong := hex.EncodeToString(make([]byte, 32))
	cases := map[string][2]string{
		"wrong hash":      {"alice42", wrong},
		"unknown user":    {"carol99", wrong},
		"no passphrase":   {"bob07", wrong},
		"malformed hash":  {"alice42", "zz"},
		"truncated hash":  {"alice42", strings.Repeat("cd", 16)},
		"empty user name": {"", wrong},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := us.Login(ctx, c[0], c[1])
			assert.Equal(t, types.ErrInvalidCredential, err)
		})
	}
}

func TestAddCredentialReplacesSameID(t *testing.T) {
	us := newTestUserService(t)
	ctx := context.Background()

	_, err := us.CreateUser(ctx, "alice42")
	require.NoError(t, err)

	_, err = us.AddCredential(ctx, "alice42", &webauthn.Credential{ID: []byte{1}, AttestationType: "none"})
	require.NoError(t, err)
	_, err = us.AddCredential(ctx, "alice42", &webauthn.Credential{ID: []byte{1}, AttestationType: "packed"})
	require.NoError(t, err)
	user, err := us.AddCredential(ctx, "alice42", &webauthn.Credential{ID: []byte{2}})
	require.NoError(t, err)

	require.Len(t, user.Credentials, 2)
	assert.Equal(t, "packed", user.Credentials[0].AttestationType)
}
