package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"casework-backend/internal/beds"
	"casework-backend/internal/model"
	"casework-backend/internal/mw"
	"casework-backend/internal/parse"
	"casework-backend/internal/validate"
)

func siteIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("site_id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid site ID")
		return 0, false
	}
	return id, true
}

// ListSites handles GET /api/sites.
func (h *Handler) ListSites(c *gin.Context) {
	sites, err := h.store.ListSites(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sites)
}

// CreateSite handles POST /api/sites.
func (h *Handler) CreateSite(c *gin.Context) {
	var req SiteRequest
	if err := bind(c, validate.Site, &req); err != nil {
		h.writeError(c, err)
		return
	}
	locationID := req.LocationID
	if locationID == "" {
		locationID = mw.LocationID(c)
	}
	site := model.Site{Name: req.Name, LocationID: locationID}
	if err := h.store.CreateSite(c.Request.Context(), &site); err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, "Site created", gin.H{"site": site})
}

// ListBeds handles GET /api/sites/:site_id/beds.
func (h *Handler) ListBeds(c *gin.Context) {
	siteID, valid := siteIDParam(c)
	if !valid {
		return
	}
	list, err := h.store.ListBeds(c.Request.Context(), siteID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// AvailableBeds handles GET /api/sites/:site_id/beds/available. The optional
// current_bed_id keeps the bed a check-in already holds among the options.
func (h *Handler) AvailableBeds(c *gin.Context) {
	siteID, valid := siteIDParam(c)
	if !valid {
		return
	}
	var current int64
	if raw := c.Query("current_bed_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, "Invalid current_bed_id")
			return
		}
		current = id
	}
	list, err := h.store.AvailableBeds(c.Request.Context(), siteID, current)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateBed handles POST /api/sites/:site_id/beds.
func (h *Handler) CreateBed(c *gin.Context) {
	siteID, valid := siteIDParam(c)
	if !valid {
		return
	}
	var req BedRequest
	if err := bind(c, validate.Bed, &req); err != nil {
		h.writeError(c, err)
		return
	}

	bed := model.Bed{
		SiteID:      siteID,
		Name:        req.BedName,
		Room:        req.Room,
		BedTypeID:   req.BedTypeID,
		BedTypeName: req.BedTypeName,
		Status:      beds.Status(req.Status),
	}
	if req.Label != "" {
		label, err := parse.ParseBedLabel(req.Label)
		if err != nil {
			h.writeError(c, validate.Errors{"label": err.Error()})
			return
		}
		if bed.Name == "" {
			bed.Name = label.Bed
		}
		if bed.Room == "" {
			bed.Room = label.Room
		}
	}

	if err := h.store.CreateBed(c.Request.Context(), &bed); err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, "Bed created", gin.H{"bed": bed})
}
