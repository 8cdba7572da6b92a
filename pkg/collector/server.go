package collector

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"vflowgateway/pkg/apis/response"
	"vflowgateway/pkg/register"
)

func InstallHandler(group *gin.RouterGroup, mgr *Manager, configPath string) {
	group.GET("/registers/definitions", getRegisterDefinitions(mgr))
	group.GET("/live-data", getLiveData(mgr))
	group.PUT("/modbus-config", setModbusConfig(configPath))
}

func getRegisterDefinitions(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, mgr.Metadata())
	}
}

func getLiveData(mgr *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, mgr.LiveData())
	}
}

func setModbusConfig(configPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var target struct {
			IP   string `json:"ip"`
			Port int    `json:"port"`
		}
		if err := c.ShouldBindJSON(&target); err != nil {
			klog.V(2).InfoS("Failed to parse device endpoint", "err", err)
			if errors.Is(err, io.EOF) {
				c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrRequestBody))
				return
			}
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMalformedJSON))
			return
		}
		if len(target.IP) == 0 {
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMissingField("ip")))
			return
		}
		if target.Port <= 0 {
			c.JSON(http.StatusBadRequest, response.NewMultiError(response.ErrMissingField("port")))
			return
		}

		if err := register.UpdateDeviceConfig(configPath, target.IP, target.Port); err != nil {
			klog.V(2).InfoS("Failed to update device endpoint", "err", err)
			c.JSON(http.StatusInternalServerError, response.NewMultiError(response.ErrConfigRewrite(err)))
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "Modbus configuration updated. A restart is required for the change to take effect.",
		})
	}
}
