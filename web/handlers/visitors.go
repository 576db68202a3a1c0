package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mneo.com/vms/core"
	"mneo.com/vms/export"
	"mneo.com/vms/utils"
	"mneo.com/vms/web/common"
)

// defaultSearchLimit caps a search with no explicit paging. Export bypasses
// it: a spreadsheet covers the whole filtered range.
const defaultSearchLimit = 1000

// VisitorEndpoint exposes the register's lifecycle operations and canned
// views to the kiosk UI.
type VisitorEndpoint struct {
	Store *core.Store
}

func RegisterVisitorRoutes(rg *gin.RouterGroup, store *core.Store) {
	ep := &VisitorEndpoint{Store: store}

	rg.POST("/visitors", ep.Create)
	rg.POST("/visitors/:id/checkout", ep.CheckOut)
	rg.GET("/visitors/active", ep.Active)
	rg.GET("/visitors/today", ep.Today)
	rg.GET("/visitors", ep.Search)
	rg.GET("/visitors/prefill", ep.Prefill)
	rg.GET("/visitors/export", ep.Export)
	rg.GET("/dashboard/stats", ep.Stats)
	rg.GET("/dashboard/daily", ep.Daily)
}

// storeError maps the store's taxonomy onto HTTP responses. Checkout replay
// is deliberately a warning, not an error dialog.
func storeError(c *gin.Context, err error) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(ve.Error()))
	case errors.Is(err, core.ErrInvalidRange):
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("check-out time cannot be before check-in time"))
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, common.NewErrorResponse("visitor record not found"))
	case errors.Is(err, core.ErrAlreadyCheckedOut):
		c.JSON(http.StatusConflict, common.NewWarningResponse("visitor was already checked out"))
	case errors.Is(err, core.ErrActiveVisit):
		c.JSON(http.StatusConflict, common.NewErrorResponse("visitor already has an active visit"))
	case errors.Is(err, core.ErrBlacklisted):
		c.JSON(http.StatusForbidden, common.NewErrorResponse("this HP number is blacklisted"))
	default:
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
	}
}

// VisitorRow is a VisitorRecord plus the display fields the UI tables render.
type VisitorRow struct {
	core.VisitorRecord
	DurationText string `json:"durationText"`
}

func toRow(r core.VisitorRecord) VisitorRow {
	return VisitorRow{VisitorRecord: r, DurationText: core.FormatDuration(r.Duration)}
}

type CreateVisitorRequest struct {
	NRIC          string                `json:"nric" binding:"nric"`
	HpNo          string                `json:"hpNo" binding:"hpno"`
	FirstName     string                `json:"firstName" binding:"required"`
	LastName      string                `json:"lastName" binding:"required"`
	Category      string                `json:"category" binding:"required"`
	Purpose       string                `json:"purpose" binding:"required"`
	Destination   string                `json:"destination" binding:"required"`
	Company       string                `json:"company"`
	VehicleNumber string                `json:"vehicleNumber"`
	IDNumber      string                `json:"idNumber"`
	Remarks       string                `json:"remarks"`
	PersonVisited string                `json:"personVisited" binding:"required"`
	CheckInTime   *common.LocalDateTime `json:"checkInTime"`
}

func (ep *VisitorEndpoint) Create(c *gin.Context) {
	var req CreateVisitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}

	params := core.CreateVisitParams{
		NRIC:          req.NRIC,
		HpNo:          req.HpNo,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Category:      req.Category,
		Purpose:       req.Purpose,
		Destination:   req.Destination,
		Company:       req.Company,
		VehicleNumber: req.VehicleNumber,
		IDNumber:      req.IDNumber,
		Remarks:       req.Remarks,
		PersonVisited: req.PersonVisited,
	}
	if req.CheckInTime != nil {
		params.CheckInTime = req.CheckInTime.Time
	}

	record, err := ep.Store.CreateVisit(params)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, common.NewSuccessResponse(toRow(*record)))
}

type CheckOutRequest struct {
	CheckOutTime *common.LocalDateTime `json:"checkOutTime"`
}

func (ep *VisitorEndpoint) CheckOut(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("invalid visitor id"))
		return
	}

	var req CheckOutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
			return
		}
	}

	var checkOutTime time.Time
	if req.CheckOutTime != nil {
		checkOutTime = req.CheckOutTime.Time
	}

	record, err := ep.Store.CheckOut(id, checkOutTime)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(toRow(*record)))
}

func (ep *VisitorEndpoint) Active(c *gin.Context) {
	records, err := ep.Store.ActiveVisitors()
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(utils.Map(records, toRow)))
}

func (ep *VisitorEndpoint) Today(c *gin.Context) {
	records, err := ep.Store.TodaysHistory()
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(utils.Map(records, toRow)))
}

// searchParams reads the shared filter query parameters: start, end
// (yyyy-MM-dd, inclusive), name, company.
func searchParams(c *gin.Context) (core.SearchParams, error) {
	params := core.SearchParams{
		Name:    c.Query("name"),
		Company: c.Query("company"),
	}

	if s := c.Query("start"); s != "" {
		start, err := utils.ParseDate(s)
		if err != nil {
			return params, err
		}
		params.Start = start
	}
	if s := c.Query("end"); s != "" {
		end, err := utils.ParseDate(s)
		if err != nil {
			return params, err
		}
		params.End = end
	}
	return params, nil
}

func (ep *VisitorEndpoint) Search(c *gin.Context) {
	params, err := searchParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error()))
		return
	}

	params.Limit = defaultSearchLimit
	if val, err := strconv.Atoi(c.Query("limit")); err == nil {
		params.Limit = val
	}
	if val, err := strconv.Atoi(c.Query("offset")); err == nil {
		params.Offset = val
	}

	records, total, err := ep.Store.SearchRecords(params)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSearchResponse(utils.Map(records, toRow), total))
}

// Prefill returns the most recent details for a returning visitor, looked up
// by NRIC/HP (completed visits) or by first/last name.
func (ep *VisitorEndpoint) Prefill(c *gin.Context) {
	var record *core.VisitorRecord
	var err error

	if nric, hpNo := c.Query("nric"), c.Query("hpNo"); nric != "" || hpNo != "" {
		record, err = ep.Store.FindRecentCompletedVisit(nric, hpNo)
	} else if first, last := c.Query("firstName"), c.Query("lastName"); first != "" && last != "" {
		record, err = ep.Store.FindExistingVisitor(first, last)
	} else {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse("provide nric/hpNo or firstName and lastName"))
		return
	}

	if err != nil {
		storeError(c, err)
		return
	}
	if record == nil {
		c.JSON(http.StatusOK, common.NewSuccessResponse(nil))
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(toRow(*record)))
}

func (ep *VisitorEndpoint) Export(c *gin.Context) {
	params, err := searchParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(err.Error()))
		return
	}

	records, _, err := ep.Store.SearchRecords(params)
	if err != nil {
		storeError(c, err)
		return
	}

	filename := export.SuggestedFilename(time.Now())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := export.WriteRecords(records, c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
}

func (ep *VisitorEndpoint) Stats(c *gin.Context) {
	stats, err := ep.Store.Stats()
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(stats))
}

func (ep *VisitorEndpoint) Daily(c *gin.Context) {
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	counts, err := ep.Store.DailyCheckInsSince(monthStart)
	if err != nil {
		storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(counts))
}
