package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mailio/go-vault-server/api/interceptors"
	"github.com/mailio/go-vault-server/services"
	"github.com/mailio/go-vault-server/types"
)

type VaultApi struct {
	vaultFileService *services.VaultFileService
	validate         *validator.Validate
}

func NewVaultApi(vaultFileService *services.VaultFileService) *VaultApi {
	return &VaultApi{
		vaultFileService: vaultFileService,
		validate:         validator.New(),
	}
}

// GetFile godoc
// @Summary Returns the vault file of the signed in user
// @Tags Vault
// @Produce json
// @Success 200 {object} types.OutputVaultFile
// @Failure 401 {object} api.ApiError "not authorized"
// @Failure 404 {object} api.ApiError "no vault file stored"
// @Router /api/v1/vault/file [get]
func (va *VaultApi) GetFile(c *gin.Context) {
	user, ok := interceptors.CurrentUser(c)
	if !ok {
		ApiErrorf(c, http.StatusUnauthorized, "not authorized")
		return
	}
	data, err := va.vaultFileService.GetFile(c.Request.Context(), user)
	if err != nil {
		ApiErrorFromErr(c, err)
		return
	}
	c.JSON(http.StatusOK, types.OutputVaultFile{Data: data})
}

// SaveFile godoc
// @Summary Replaces the vault file of the signed in user
// @Tags Vault
// @Accept json
// @Param file body types.InputVaultFile true "opaque encrypted vault"
// @Success 201
// @Failure 400 {object} api.ApiError "invalid input parameters"
// @Failure 401 {object} api.ApiError "not authorized"
// @Router /api/v1/vault/file [post]
func (va *VaultApi) SaveFile(c *gin.Context) {
	user, ok := interceptors.CurrentUser(c)
	if !ok {
		ApiErrorf(c, http.StatusUnauthorized, "not authorized")
		return
	}
	var input types.InputVaultFile
	if !bindAndValidate(c, va.validate, &input) {
		return
	}
	if _, err := va.vaultFileService.SaveFile(c.Request.Context(), user, input.Data); err != nil {
		ApiErrorFromErr(c, err)
		return
	}
	c.Status(http.StatusCreated)
}
