package repository

import (
	"encoding/json"
	"errors"

	"github.com/go-kit/log/level"
	"github.com/go-resty/resty/v2"
	"github.com/mailio/go-vault-server/global"
	"github.com/mailio/go-vault-server/types"
)

func handleError(reqErr *resty.Response) error {
	if reqErr.StatusCode() == 404 {
		return types.ErrNotFound
	}
	if reqErr.StatusCode() == 409 {
		return types.ErrConflict
	}
	if reqErr.IsError() {
		var dbErr types.CouchDBError
		uErr := json.Unmarshal(reqErr.Body(), &dbErr)
		if uErr != nil {
			level.Error(global.Logger).Log("msg", "failed to unmarshal couchdb error", "error", uErr)
			return uErr
		}
		if dbErr.Error != "" {
			return errors.New(dbErr.Error)
		}
		return types.ErrBadRequest
	}
	return nil
}
