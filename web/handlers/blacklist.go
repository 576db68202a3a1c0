package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mneo.com/vms/core"
	"mneo.com/vms/utils"
	"mneo.com/vms/web/common"
)

type BlacklistEndpoint struct {
	Store *core.Store
}

func RegisterBlacklistRoutes(rg *gin.RouterGroup, store *core.Store) {
	ep := &BlacklistEndpoint{Store: store}

	rg.GET("/blacklist", ep.List)
	rg.POST("/blacklist", ep.Add)
	rg.DELETE("/blacklist/:hpNo", ep.Remove)
	rg.POST("/blacklist/import", ep.Import)
}

func (ep *BlacklistEndpoint) List(c *gin.Context) {
	entries, err := ep.Store.Blacklist()
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(entries))
}

type AddBlacklistRequest struct {
	HpNo   string `json:"hpNo" binding:"required,hpno"`
	Reason string `json:"reason"`
}

func (ep *BlacklistEndpoint) Add(c *gin.Context) {
	var req AddBlacklistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	entry, err := ep.Store.AddToBlacklist(req.HpNo, req.Reason)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, common.NewSuccessResponse(entry))
}

func (ep *BlacklistEndpoint) Remove(c *gin.Context) {
	if err := ep.Store.RemoveFromBlacklist(c.Param("hpNo")); err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{}))
}

// Import accepts a CSV body of hp_no[,reason] lines and bulk-adds them.
func (ep *BlacklistEndpoint) Import(c *gin.Context) {
	rows, err := utils.ParseCSV(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("malformed CSV: "+err.Error()))
		return
	}

	added, skipped, err := ep.Store.ImportBlacklist(rows)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{
		"added":   added,
		"skipped": skipped,
	}))
}
