package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path"
	"time"

	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/mailio/go-vault-server/global"
	"github.com/mailio/go-vault-server/metrics"
	"github.com/mailio/go-vault-server/repository"
	"github.com/mailio/go-vault-server/types"
)

// BlobStore keeps vault file contents outside the document database
type BlobStore interface {
	Upload(ctx context.Context, key string, content []byte) (string, error)
	Download(ctx context.Context, location string) ([]byte, error)
	Delete(ctx context.Context, location string) error
}

// VaultFileService stores each user's single vault file. Saving replaces the previous file.
type VaultFileService struct {
	fileRepo    repository.Repository
	userService *UserService
	blobs       BlobStore
	blobPrefix  string
}

// NewVaultFileService creates the service; blobs may be nil in which case contents are kept in the document itself
func NewVaultFileService(repoSelector repository.DBSelector, userService *UserService, blobs BlobStore, blobPrefix string) *VaultFileService {
	if repoSelector == nil {
		panic("repoSelector cannot be nil")
	}
	if userService == nil {
		panic("user service cannot be nil")
	}
	fileRepo, rErr := repoSelector.ChooseDB(repository.VaultFile)
	if rErr != nil {
		level.Error(global.Logger).Log("msg", "failed to choose vault file repository", "error", rErr)
		panic(rErr)
	}
	return &VaultFileService{
		fileRepo:    fileRepo,
		userService: userService,
		blobs:       blobs,
		blobPrefix:  blobPrefix,
	}
}

// SaveFile stores data as the user's vault file and returns the new file id.
// The previous file is removed once the user points at the new one.
func (vs *VaultFileService) SaveFile(ctx context.Context, user *types.User, data json.RawMessage) (string, error) {
	if isBlankJSON(data) {
		return "", types.ErrInvalidInput
	}
	file := &types.VaultFile{
		Owner:   user.Username,
		Created: time.Now().UTC().UnixMilli(),
	}
	fileID := uuid.NewString()

	if vs.blobs != nil {
		location, err := vs.blobs.Upload(ctx, path.Join(vs.blobPrefix, user.Username, fileID), data)
		if err != nil {
			return "", err
		}
		file.Location = location
	} else {
		file.Data = data
	}

	if err := vs.fileRepo.Save(ctx, fileID, file); err != nil {
		level.Error(global.Logger).Log("msg", "failed to save vault file", "error", err)
		return "", err
	}

	// taken from the record the update is applied to, not the caller's possibly stale copy
	var previous string
	rememberPrevious := func(current *types.User) error {
		previous = current.FileID
		return nil
	}
	if _, err := vs.userService.UpdateUser(ctx, user.Username, types.UserFields{FileID: &fileID}, rememberPrevious); err != nil {
		vs.remove(ctx, fileID, file.Location)
		return "", err
	}
	if previous != "" {
		vs.removeByID(ctx, previous)
	}
	metrics.VaultFilesSavedTotal.Inc()
	return fileID, nil
}

// GetFile returns the contents of the user's vault file or types.ErrNotFound
func (vs *VaultFileService) GetFile(ctx context.Context, user *types.User) (json.RawMessage, error) {
	if user.FileID == "" {
		return nil, types.ErrNotFound
	}
	file, err := vs.getByID(ctx, user.FileID)
	if err != nil {
		return nil, err
	}
	if file.Owner != user.Username {
		level.Warn(global.Logger).Log("msg", "vault file owner mismatch", "fileId", user.FileID)
		return nil, types.ErrNotFound
	}
	if file.Location != "" {
		if vs.blobs == nil {
			level.Error(global.Logger).Log("msg", "vault file stored externally but no blob store configured", "fileId", user.FileID)
			return nil, types.ErrInternal
		}
		return vs.blobs.Download(ctx, file.Location)
	}
	return file.Data, nil
}

func (vs *VaultFileService) getByID(ctx context.Context, fileID string) (*types.VaultFile, error) {
	resp, err := vs.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	var file types.VaultFile
	if mErr := repository.MapToObject(resp, &file); mErr != nil {
		return nil, mErr
	}
	return &file, nil
}

func (vs *VaultFileService) removeByID(ctx context.Context, fileID string) {
	file, err := vs.getByID(ctx, fileID)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			level.Warn(global.Logger).Log("msg", "failed to load previous vault file", "fileId", fileID, "error", err)
		}
		return
	}
	vs.remove(ctx, fileID, file.Location)
}

// best effort, an orphaned file is never reachable through a user
func (vs *VaultFileService) remove(ctx context.Context, fileID string, location string) {
	if location != "" && vs.blobs != nil {
		if err := vs.blobs.Delete(ctx, location); err != nil && !errors.Is(err, types.ErrNotFound) {
			level.Warn(global.Logger).Log("msg", "failed to delete vault blob", "location", location, "error", err)
		}
	}
	if err := vs.fileRepo.Delete(ctx, fileID); err != nil && !errors.Is(err, types.ErrNotFound) {
		level.Warn(global.Logger).Log("msg", "failed to delete vault file", "fileId", fileID, "error", err)
	}
}

// empty input and a JSON null both mean "no file"
func isBlankJSON(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
