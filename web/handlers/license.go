package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mneo.com/vms/security"
	"mneo.com/vms/web/common"
	"mneo.com/vms/web/middlewares"
)

// LicenseEndpoint drives activation and login. These routes are the only
// unauthenticated ones besides /ping: a kiosk with no session yet has to be
// able to reach them.
type LicenseEndpoint struct {
	Manager       *security.Manager
	SessionSecret []byte
	SessionTTL    time.Duration
}

func RegisterLicenseRoutes(rg *gin.RouterGroup, ep *LicenseEndpoint) {
	rg.GET("/license/status", ep.Status)
	rg.GET("/license/device", ep.Device)
	rg.POST("/license/activate", ep.Activate)
	rg.POST("/license/login", ep.Login)
	rg.POST("/license/logout", ep.Logout)
}

func licenseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, security.ErrInvalidKey):
		c.JSON(http.StatusUnauthorized, common.NewErrorResponse("license key does not match this device"))
	case errors.Is(err, security.ErrExpired):
		c.JSON(http.StatusUnauthorized, common.NewErrorResponse("license has expired"))
	case errors.Is(err, security.ErrNotActivated):
		c.JSON(http.StatusUnauthorized, common.NewErrorResponse("no active license on this device"))
	case errors.Is(err, security.ErrSealedForOther):
		c.JSON(http.StatusUnauthorized, common.NewErrorResponse("stored license belongs to another device"))
	default:
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
	}
}

// session mints the token handed to the kiosk UI after a successful license
// step.
func (ep *LicenseEndpoint) session(c *gin.Context) {
	info, err := ep.Manager.DeviceInfo("")
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	token, err := middlewares.CreateSessionToken(info.MACAddress, ep.SessionSecret, ep.SessionTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{"sessionToken": token}))
}

func (ep *LicenseEndpoint) Status(c *gin.Context) {
	if err := ep.Manager.Check(); err != nil {
		licenseError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{"licensed": true}))
}

// Device returns the MAC the operator quotes when requesting a key.
func (ep *LicenseEndpoint) Device(c *gin.Context) {
	info, err := ep.Manager.DeviceInfo(c.Query("expiry"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	// The sample key is for the operator CLI only, never shown to kiosk users.
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{"macAddress": info.MACAddress}))
}

type ActivateRequest struct {
	LicenseKey string          `json:"licenseKey" binding:"required"`
	Expiry     common.DateOnly `json:"expiry" binding:"required"`
}

func (ep *LicenseEndpoint) Activate(c *gin.Context) {
	var req ActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	if err := ep.Manager.Activate(req.LicenseKey, req.Expiry.Format("2006-01-02")); err != nil {
		licenseError(c, err)
		return
	}
	ep.session(c)
}

type LoginRequest struct {
	LicenseKey string `json:"licenseKey" binding:"required"`
}

func (ep *LicenseEndpoint) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	if err := ep.Manager.LoginWithKey(req.LicenseKey); err != nil {
		licenseError(c, err)
		return
	}
	ep.session(c)
}

func (ep *LicenseEndpoint) Logout(c *gin.Context) {
	if err := ep.Manager.Logout(); err != nil {
		licenseError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{}))
}
