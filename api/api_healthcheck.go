package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mailio/go-vault-server/global"
)

type HealthCheckAPI struct {
}

func NewHealthCheckAPI() *HealthCheckAPI {
	return &HealthCheckAPI{}
}

func (ha *HealthCheckAPI) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": global.Conf.Version, "mode": global.Conf.Mode, "rpId": global.Conf.WebAuthn.RPID})
}
