package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"casework-backend/internal/merge"
	"casework-backend/internal/metrics"
	"casework-backend/internal/model"
	"casework-backend/internal/mw"
	"casework-backend/internal/store"
	"casework-backend/internal/validate"
)

var activityTable = validate.Table{
	Fields: map[string][]validate.Rule{
		"type":   {{Tag: "required", Message: "activity type is required"}},
		"detail": {{Tag: "required", Message: "activity detail is required"}},
	},
}

// ListCases handles GET /api/cases.
func (h *Handler) ListCases(c *gin.Context) {
	cases, err := h.store.ListCases(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cases)
}

// GetCase handles GET /api/cases/:case_id.
func (h *Handler) GetCase(c *gin.Context) {
	kase, err := h.store.GetCase(c.Request.Context(), c.Param("case_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, kase)
}

// CreateCase handles POST /api/cases. A missing caseId is generated.
func (h *Handler) CreateCase(c *gin.Context) {
	var draft map[string]any
	if err := c.ShouldBindBodyWith(&draft, binding.JSON); err != nil || draft == nil {
		h.writeError(c, validate.Errors{"body": "request body must be a JSON object"})
		return
	}
	if id, _ := draft["caseId"].(string); strings.TrimSpace(id) == "" {
		draft["caseId"] = uuid.NewString()
	}
	if errs := validate.Case.Check(draft); errs != nil {
		h.writeError(c, errs)
		return
	}

	var kase model.Case
	if err := merge.FromRecord(draft, &kase); err != nil {
		h.writeError(c, validate.Errors{"body": "request body has fields of the wrong type"})
		return
	}
	kase.MergedFrom, kase.MergedIntoID, kase.RetiredAt = nil, "", nil
	if err := h.store.CreateCase(c.Request.Context(), &kase); err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, "Case created", gin.H{"case": kase})
}

// loadPair fetches both sides of a merge as records. Retired cases cannot
// take part.
func (h *Handler) loadPair(c *gin.Context, keptID, removedID string) (merge.Record, merge.Record, error) {
	if keptID == "" || removedID == "" {
		return nil, nil, merge.ErrMissingCase
	}
	if keptID == removedID {
		return nil, nil, store.ErrSameCase
	}
	var recs [2]merge.Record
	for i, id := range []string{keptID, removedID} {
		kase, err := h.store.GetCase(c.Request.Context(), id)
		if err != nil {
			return nil, nil, err
		}
		if kase.Retired() {
			return nil, nil, fmt.Errorf("case %s: %w", id, store.ErrCaseRetired)
		}
		if recs[i], err = merge.ToRecord(kase); err != nil {
			return nil, nil, err
		}
	}
	return recs[0], recs[1], nil
}

// MergePreview handles GET /api/cases/merge/preview?keep=&merge=. The kept
// case is the left side.
func (h *Handler) MergePreview(c *gin.Context) {
	left, right, err := h.loadPair(c, c.Query("keep"), c.Query("merge"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	rec := merge.Reconcile(left, right, merge.CaseFields)
	c.JSON(http.StatusOK, MergePreview{
		KeptCaseID:    rec.KeptID(),
		RemovedCaseID: rec.RemovedID(),
		HasConflicts:  rec.HasConflicts(),
		Diffs:         rec.Diffs(),
		Selections:    rec.Selections(),
	})
}

// MergeCases handles POST /api/cases/merge.
func (h *Handler) MergeCases(c *gin.Context) {
	kase, err := h.mergeCases(c)
	if h.metrics != nil {
		h.metrics.Merges.WithLabelValues(metrics.Outcome(err)).Inc()
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, "Cases merged successfully", gin.H{"case": kase})
}

func (h *Handler) mergeCases(c *gin.Context) (model.Case, error) {
	var req MergeRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		return model.Case{}, validate.Errors{"body": "request body must be a merge request"}
	}

	merged := merge.Record(req.MergedFields)
	mergedAt := h.now()
	if merged == nil {
		left, right, err := h.loadPair(c, req.KeptCaseID, req.RemovedCaseID)
		if err != nil {
			return model.Case{}, err
		}
		rec := merge.Reconcile(left, right, merge.CaseFields)
		if err := rec.Apply(req.Selections); err != nil {
			return model.Case{}, err
		}
		out, err := rec.Assemble(mergedAt)
		if err != nil {
			return model.Case{}, err
		}
		merged = out.Record
	} else if req.KeptCaseID == "" || req.RemovedCaseID == "" {
		return model.Case{}, merge.ErrMissingCase
	}

	if errs := validate.Case.Check(merged); errs != nil {
		return model.Case{}, errs
	}
	if merge.RecordID(merged) != req.KeptCaseID {
		return model.Case{}, validate.Errors{"caseId": "merged fields must carry the kept case id"}
	}

	var kase model.Case
	if err := merge.FromRecord(merged, &kase); err != nil {
		return model.Case{}, validate.Errors{"mergedFields": "merged fields have values of the wrong type"}
	}

	actor := req.ActingUserID
	if actor == "" {
		actor = mw.UserID(c)
	}
	location := req.ActiveLocationID
	if location == "" {
		location = mw.LocationID(c)
	}
	out, err := h.store.MergeCases(c.Request.Context(), store.MergeInput{
		KeptCaseID:    req.KeptCaseID,
		RemovedCaseID: req.RemovedCaseID,
		Merged:        kase,
		ActingUserID:  actor,
		LocationID:    location,
		MergedAt:      mergedAt,
	})
	if err != nil {
		return model.Case{}, err
	}
	h.log.Info("cases merged",
		zap.String("kept_case_id", req.KeptCaseID),
		zap.String("removed_case_id", req.RemovedCaseID),
		zap.String("user_id", actor))
	return out, nil
}

// MergeHistory handles GET /api/cases/:case_id/merges.
func (h *Handler) MergeHistory(c *gin.Context) {
	id := c.Param("case_id")
	if _, err := h.store.GetCase(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	logs, err := h.store.MergeHistory(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// ListActivities handles GET /api/cases/:case_id/activities.
func (h *Handler) ListActivities(c *gin.Context) {
	activities, err := h.store.ListActivities(c.Request.Context(), c.Param("case_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, activities)
}

// AddActivity handles POST /api/cases/:case_id/activities.
func (h *Handler) AddActivity(c *gin.Context) {
	var req ActivityRequest
	if err := bind(c, activityTable, &req); err != nil {
		h.writeError(c, err)
		return
	}
	detail, err := model.DecodeActivityDetail(model.ActivityType(req.Type), req.Detail)
	if err != nil {
		if !errors.Is(err, model.ErrUnknownActivity) {
			err = validate.Errors{"detail": err.Error()}
		}
		h.writeError(c, err)
		return
	}
	activity, err := model.NewActivity(c.Param("case_id"), detail, mw.UserID(c))
	if err != nil {
		h.writeError(c, validate.Errors{"detail": err.Error()})
		return
	}
	if err := h.store.AddActivity(c.Request.Context(), &activity); err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, http.StatusCreated, "Activity added", gin.H{"activity": activity})
}
