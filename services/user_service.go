package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-kit/log/level"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
	"github.com/mailio/go-vault-server/global"
	"github.com/mailio/go-vault-server/metrics"
	"github.com/mailio/go-vault-server/repository"
	"github.com/mailio/go-vault-server/types"
	"github.com/mailio/go-vault-server/util"
)

const (
	maxUsernameAttempts = 10
	maxUpdateAttempts   = 3
)

// compared against when the user doesn't exist so a missing account costs the same as a wrong hash
var dummyPassphraseHash = make([]byte, 32)

type UserService struct {
	userRepo repository.Repository
	sessions *SessionService
}

func NewUserService(repoSelector repository.DBSelector, sessions *SessionService) *UserService {
	if repoSelector == nil {
		panic("repoSelector cannot be nil")
	}
	if sessions == nil {
		panic("session service cannot be nil")
	}
	userRepo, rErr := repoSelector.ChooseDB(repository.User)
	if rErr != nil {
		level.Error(global.Logger).Log("msg", "failed to choose user repository", "error", rErr)
		panic(rErr)
	}
	return &UserService{
		userRepo: userRepo,
		sessions: sessions,
	}
}

// CreateUser stores a new user record. Returns types.ErrUserExists if the username is taken.
func (us *UserService) CreateUser(ctx context.Context, username string) (*types.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, types.ErrInvalidInput
	}
	_, err := us.GetUser(ctx, username)
	if err == nil {
		return nil, types.ErrUserExists
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	user := &types.User{
		Username: username,
		Handle:   uuid.NewString(),
		Created:  time.Now().UTC().UnixMilli(),
	}
	if sErr := us.userRepo.Save(ctx, username, user); sErr != nil {
		if errors.Is(sErr, types.ErrConflict) {
			return nil, types.ErrUserExists
		}
		level.Error(global.Logger).Log("msg", "failed to save user", "error", sErr)
		return nil, sErr
	}
	// read back to pick up the revision
	return us.GetUser(ctx, username)
}

// CreateRandomUser creates a user with a generated username, retrying on collisions
func (us *UserService) CreateRandomUser(ctx context.Context, words util.WordList) (*types.User, error) {
	for i := 0; i < maxUsernameAttempts; i++ {
		username, err := util.GenerateUsername(words)
		if err != nil {
			return nil, err
		}
		user, err := us.CreateUser(ctx, username)
		if errors.Is(err, types.ErrUserExists) {
			level.Debug(global.Logger).Log("msg", "generated username taken", "username", username)
			continue
		}
		return user, err
	}
	return nil, types.ErrConflict
}

func (us *UserService) GetUser(ctx context.Context, username string) (*types.User, error) {
	resp, err := us.userRepo.GetByID(ctx, strings.ToLower(username))
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			level.Error(global.Logger).Log("msg", "failed to get user", "error", err)
		}
		return nil, err
	}
	var user types.User
	if mErr := repository.MapToObject(resp, &user); mErr != nil {
		level.Error(global.Logger).Log("msg", "failed to map user", "error", mErr)
		return nil, mErr
	}
	return &user, nil
}

// FindUserBySession resolves the user behind a session token. Every failure is types.ErrNotAuthorized
// except backing store errors.
func (us *UserService) FindUserBySession(ctx context.Context, token string) (*types.User, error) {
	username, err := us.sessions.Username(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := us.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.ErrNotAuthorized
		}
		return nil, err
	}
	return user, nil
}

// UserPrecondition inspects the freshly read user before an update; a non-nil error aborts the update
type UserPrecondition func(current *types.User) error

// UpdateUser applies the non-nil fields to the stored user, re-reading on revision conflicts.
// The preconditions run against every fresh read, so together with the revision check they hold at save time.
func (us *UserService) UpdateUser(ctx context.Context, username string, fields types.UserFields, preconditions ...UserPrecondition) (*types.User, error) {
	var lastErr error
	for i := 0; i < maxUpdateAttempts; i++ {
		user, err := us.GetUser(ctx, username)
		if err != nil {
			return nil, err
		}
		for _, check := range preconditions {
			if cErr := check(user); cErr != nil {
				return nil, cErr
			}
		}
		applyUserFields(user, fields)
		user.Modified = time.Now().UTC().UnixMilli()

		lastErr = us.userRepo.Save(ctx, user.Username, user)
		if lastErr == nil {
			return user, nil
		}
		if !errors.Is(lastErr, types.ErrConflict) {
			level.Error(global.Logger).Log("msg", "failed to update user", "error", lastErr)
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func applyUserFields(user *types.User, fields types.UserFields) {
	if fields.PassphraseHash != nil {
		user.PassphraseHash = *fields.PassphraseHash
	}
	if fields.PassphraseKeySalt != nil {
		user.PassphraseKeySalt = *fields.PassphraseKeySalt
	}
	if fields.PassphraseWrappedVaultKey != nil {
		user.PassphraseWrappedVaultKey = *fields.PassphraseWrappedVaultKey
	}
	if fields.FileID != nil {
		user.FileID = *fields.FileID
	}
	if fields.Credential != nil {
		for i, c := range user.Credentials {
			if string(c.ID) == string(fields.Credential.ID) {
				user.Credentials[i] = *fields.Credential
				return
			}
		}
		user.Credentials = append(user.Credentials, *fields.Credential)
	}
}

// SetPassphrase stores the client derived passphrase material. It can be set once per account.
func (us *UserService) SetPassphrase(ctx context.Context, user *types.User, input *types.InputPassphrase) (*types.User, error) {
	if user.HasPassphrase() {
		return nil, types.ErrConflict
	}
	hash := strings.ToLower(input.PassphraseHash)
	salt := strings.ToLower(input.PassphraseKeySalt)
	wrapped := strings.ToLower(input.PassphraseWrappedVaultKey)
	return us.UpdateUser(ctx, user.Username, types.UserFields{
		PassphraseHash:            &hash,
		PassphraseKeySalt:         &salt,
		PassphraseWrappedVaultKey: &wrapped,
	}, passphraseNotSet)
}

// the caller's copy of the user may be stale, the stored one decides
func passphraseNotSet(current *types.User) error {
	if current.HasPassphrase() {
		return types.ErrConflict
	}
	return nil
}

// AddCredential attaches a verified WebAuthn credential to the user
func (us *UserService) AddCredential(ctx context.Context, username string, credential *webauthn.Credential) (*types.User, error) {
	return us.UpdateUser(ctx, username, types.UserFields{Credential: credential})
}

// Login checks the submitted passphrase hash. Unknown users, users without a passphrase and wrong
// hashes all yield types.ErrInvalidCredential.
func (us *UserService) Login(ctx context.Context, username string, passphraseHash string) (*types.User, error) {
	submitted, dErr := util.DecodeHex(passphraseHash)

	user, err := us.GetUser(ctx, username)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return nil, err
	}

	stored := dummyPassphraseHash
	if user != nil && user.HasPassphrase() {
		if s, sErr := util.DecodeHex(user.PassphraseHash); sErr == nil {
			stored = s
		}
	}
	match := util.ConstantTimeEqual(submitted, stored)
	if dErr != nil || user == nil || !user.HasPassphrase() || !match {
		metrics.LoginFailuresTotal.Inc()
		return nil, types.ErrInvalidCredential
	}
	return user, nil
}

// StartSession creates a session token for the user
func (us *UserService) StartSession(ctx context.Context, user *types.User) (string, error) {
	return us.sessions.Create(ctx, user.Username)
}

func (us *UserService) EndSession(ctx context.Context, token string) error {
	return us.sessions.Delete(ctx, token)
}
