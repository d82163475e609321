package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/mailio/go-vault-server/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{blobs: map[string][]byte{}}
}

func (m *memoryBlobStore) Upload(ctx context.Context, key string, content []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	location := "s3://test/" + key
	m.blobs[location] = append([]byte(nil), content...)
	return location, nil
}

func (m *memoryBlobStore) Download(ctx context.Context, location string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[location]
	if !ok {
		return nil, types.ErrNotFound
	}
	return b, nil
}

func (m *memoryBlobStore) Delete(ctx context.Context, location string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[location]; !ok {
		return types.ErrNotFound
	}
	delete(m.blobs, location)
	return nil
}

func TestVaultFileSaveAndReplace(t *testing.T) {
	blobStores := map[string]BlobStore{
		"database": nil,
		"blob":     newMemoryBlobStore(),
	}
	for name, blobs := range blobStores {
		t.Run(name, func(t *testing.T) {
			sel := newTestSelector()
			us := NewUserService(sel, NewSessionService(newKV(), 0))
			vs := NewVaultFileService(sel, us, blobs, "vault")
			ctx := context.Background()

			user, err := us.CreateUser(ctx, "alice42")
			require.NoError(t, err)

			_, err = vs.GetFile(ctx, user)
			assert.ErrorIs(t, err, types.ErrNotFound)

			firstID, err := vs.SaveFile(ctx, user, json.RawMessage(`{"ciphertext":"AAAA"}`))
			require.NoError(t, err)

			user, err = us.GetUser(ctx, "alice42")
			require.NoError(t, err)
			assert.Equal(t, firstID, user.FileID)
			data, err := vs.GetFile(ctx, user)
			require.NoError(t, err)
			assert.JSONEq(t, `{"ciphertext":"AAAA"}`, string(data))

			secondID, err := vs.SaveFile(ctx, user, json.RawMessage(`"opaque"`))
			require.NoError(t, err)
			assert.NotEqual(t, firstID, secondID)

			user, err = us.GetUser(ctx, "alice42")
			require.NoError(t, err)
			data, err = vs.GetFile(ctx, user)
			require.NoError(t, err)
			assert.JSONEq(t, `"opaque"`, string(data))

			// the replaced file is gone
			_, err = vs.getByID(ctx, firstID)
			assert.ErrorIs(t, err, types.ErrNotFound)
			if mb, ok := blobs.(*memoryBlobStore); ok {
				assert.Len(t, mb.blobs, 1)
				for location := range mb.blobs {
					assert.True(t, strings.HasSuffix(location, fmt.Sprintf("vault/alice42/%s", secondID)))
				}
			}
		})
	}
}

func TestVaultFileRejectsEmptyData(t *testing.T) {
	sel := newTestSelector()
	us := NewUserService(sel, NewSessionService(newKV(), 0))
	vs := NewVaultFileService(sel, us, nil, "")

	user, err := us.CreateUser(context.Background(), "alice42")
	require.NoError(t, err)
	for _, data := range []json.RawMessage{nil, json.RawMessage("  "), json.RawMessage("null"), json.RawMessage(" null\n")} {
		_, err = vs.SaveFile(context.Background(), user, data)
		assert.True(t, errors.Is(err, types.ErrInvalidInput), "data %q", string(data))
	}
	user, err = us.GetUser(context.Background(), "alice42")
	require.NoError(t, err)
	assert.Empty(t, user.FileID)
}

func TestVaultFileSaveWithStaleUser(t *testing.T) {
	sel := newTestSelector()
	us := NewUserService(sel, NewSessionService(newKV(), 0))
	vs := NewVaultFileService(sel, us, nil, "")
	ctx := context.Background()

	stale, err := us.CreateUser(ctx, "alice42")
	require.NoError(t, err)

	// both saves start from the record read before either of them ran
	firstID, err := vs.SaveFile(ctx, stale, json.RawMessage(`"first"`))
	require.NoError(t, err)
	secondID, err := vs.SaveFile(ctx, stale, json.RawMessage(`"second"`))
	require.NoError(t, err)

	_, err = vs.getByID(ctx, firstID)
	assert.ErrorIs(t, err, types.ErrNotFound, "the replaced file must not be orphaned")

	user, err := us.GetUser(ctx, "alice42")
	require.NoError(t, err)
	assert.Equal(t, secondID, user.FileID)
	data, err := vs.GetFile(ctx, user)
	require.NoError(t, err)
	assert.JSONEq(t, `"second"`, string(data))
}

func TestVaultFileOwnerMismatch(t *testing.T) {
	sel := newTestSelector()
	us := NewUserService(sel, NewSessionService(newKV(), 0))
	vs := NewVaultFileService(sel, us, nil, "")
	ctx := context.Background()

	alice, err := us.CreateUser(ctx, "alice42")
	require.NoError(t, err)
	fileID, err := vs.SaveFile(ctx, alice, json.RawMessage(`"secret"`))
	require.NoError(t, err)

	bob := &types.User{Username: "bob07", FileID: fileID}
	_, err = vs.GetFile(ctx, bob)
	assert.ErrorIs(t, err, types.ErrNotFound)
}
