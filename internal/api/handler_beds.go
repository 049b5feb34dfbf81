package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"casework-backend/internal/beds"
	"casework-backend/internal/mw"
	"casework-backend/internal/notification"
	"casework-backend/internal/parse"
	"casework-backend/internal/store"
	"casework-backend/internal/validate"
)

func (h *Handler) date(field, raw string) (time.Time, error) {
	t, err := parse.Date(raw, h.loc)
	if err != nil {
		return time.Time{}, validate.Errors{field: err.Error()}
	}
	return t, nil
}

func (h *Handler) optionalDate(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := h.date(field, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func bedIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("bed_id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid bed ID")
		return 0, false
	}
	return id, true
}

// CheckIn handles POST /api/beds/check-in.
func (h *Handler) CheckIn(c *gin.Context) {
	var req CheckInRequest
	err := bind(c, validate.CheckIn, &req)
	if err != nil {
		h.countBed(beds.CheckIn, err)
		h.writeError(c, err)
		return
	}
	in := store.CheckInInput{
		CaseID:     req.CaseID,
		BedID:      req.BedID,
		Notes:      req.Notes,
		UserID:     mw.UserID(c),
		LocationID: mw.LocationID(c),
	}
	if in.CheckInDate, err = h.date("checkInDate", req.CheckInDate); err == nil {
		in.ScheduledCheckout, err = h.optionalDate("scheduledCheckoutDate", req.ScheduledCheckoutDate)
	}
	if err != nil {
		h.countBed(beds.CheckIn, err)
		h.writeError(c, err)
		return
	}

	ci, err := h.store.CheckIn(c.Request.Context(), in)
	h.countBed(beds.CheckIn, err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, "Checked in successfully", gin.H{"checkIn": ci})
}

// EditCheckIn handles POST /api/beds/check-in/edit.
func (h *Handler) EditCheckIn(c *gin.Context) {
	var req EditCheckInRequest
	err := bind(c, validate.EditCheckIn, &req)
	if err != nil {
		h.countBed(beds.EditCheckIn, err)
		h.writeError(c, err)
		return
	}
	in := store.EditCheckInInput{
		CheckInID: req.CheckInID,
		CaseID:    req.CaseID,
		BedID:     req.BedID,
		Notes:     req.Notes,
		UserID:    mw.UserID(c),
	}
	if in.CheckInDate, err = h.date("checkInDate", req.CheckInDate); err == nil {
		in.ScheduledCheckout, err = h.optionalDate("scheduledCheckoutDate", req.ScheduledCheckoutDate)
	}
	if err != nil {
		h.countBed(beds.EditCheckIn, err)
		h.writeError(c, err)
		return
	}

	ci, err := h.store.EditCheckIn(c.Request.Context(), in)
	h.countBed(beds.EditCheckIn, err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, "Check-in updated", gin.H{"checkIn": ci})
}

// CheckOut handles POST /api/beds/check-out.
func (h *Handler) CheckOut(c *gin.Context) {
	var req CheckOutRequest
	if err := bind(c, validate.CheckOut, &req); err != nil {
		h.countBed(beds.CheckOut, err)
		h.writeError(c, err)
		return
	}
	date, err := h.date("checkOutDate", req.CheckOutDate)
	if err != nil {
		h.countBed(beds.CheckOut, err)
		h.writeError(c, err)
		return
	}

	stay, err := h.store.CheckOut(c.Request.Context(), store.CheckOutInput{
		CheckInID:    req.CheckInID,
		CheckOutDate: date,
		Notes:        req.CheckOutNotes,
		UserID:       mw.UserID(c),
	})
	h.countBed(beds.CheckOut, err)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.notify(notification.Event{
		Kind:   notification.BedAvailable,
		SiteID: stay.SiteID,
		BedID:  stay.BedID,
		Title:  "Bed available",
		Body:   fmt.Sprintf("A bed freed up after %s checked out", stay.CaseName),
	})
	ok(c, http.StatusOK, "Checked out successfully", gin.H{"stay": stay})
}

// ArchiveBed handles POST /api/beds/:bed_id/archive.
func (h *Handler) ArchiveBed(c *gin.Context) {
	id, valid := bedIDParam(c)
	if !valid {
		return
	}
	bed, err := h.store.ArchiveBed(c.Request.Context(), id)
	h.countBed(beds.Archive, err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, "Bed archived", gin.H{"bed": bed})
}

// SetBedStatus handles POST /api/beds/:bed_id/status.
func (h *Handler) SetBedStatus(c *gin.Context) {
	id, valid := bedIDParam(c)
	if !valid {
		return
	}
	var req StatusRequest
	if err := bind(c, validate.Table{Fields: map[string][]validate.Rule{
		"status": {{Tag: "required", Message: "status is required"}, {Tag: "oneof=Available Unavailable", Message: "status must be Available or Unavailable"}},
	}}, &req); err != nil {
		h.writeError(c, err)
		return
	}

	status := beds.Status(req.Status)
	action := beds.MarkClosed
	if status == beds.Available {
		action = beds.MarkOpen
	}
	bed, err := h.store.SetBedStatus(c.Request.Context(), id, status)
	h.countBed(action, err)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if status == beds.Available {
		h.notify(notification.Event{
			Kind:   notification.BedAvailable,
			SiteID: bed.SiteID,
			BedID:  bed.ID,
			Title:  "Bed available",
			Body:   fmt.Sprintf("Bed %s is available again", bed.Name),
		})
	}
	ok(c, http.StatusOK, "Bed status updated", gin.H{"bed": bed})
}

// GetBed handles GET /api/beds/:bed_id.
func (h *Handler) GetBed(c *gin.Context) {
	id, valid := bedIDParam(c)
	if !valid {
		return
	}
	bed, err := h.store.GetBed(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, bed)
}

// BedHistory handles GET /api/beds/:bed_id/stays.
func (h *Handler) BedHistory(c *gin.Context) {
	id, valid := bedIDParam(c)
	if !valid {
		return
	}
	stays, err := h.store.BedHistory(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stays)
}
