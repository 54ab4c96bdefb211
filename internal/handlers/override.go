package handlers

import (
	"fmt"
	"net/http"
	"time"

	"zone_controller/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOverrideApplied   = "override_applied"
	statusOverrideCancelled = "override_cancelled"

	errInvalidBodyPref = "invalid body: "
	errApplyOverride   = "failed to apply override"
	errCancelOverride  = "failed to cancel override"
	errGetOverride     = "failed to load override"
)

type overrideRequest struct {
	Mode            string `json:"mode" binding:"required"`
	DurationMinutes int    `json:"duration_minutes"`
	Source          string `json:"source,omitempty"`
}

// OverrideRequest is an exported model for Swagger docs of the override payload.
type OverrideRequest struct {
	// Mode to force. Allowed: HEAT_ON, COOL_ON, FAN_ONLY, OFF
	Mode string `json:"mode" example:"HEAT_ON"`
	// How long the override lasts, in minutes (> 0)
	DurationMinutes int `json:"duration_minutes" example:"30"`
	// Origin label recorded in the audit journal (default "api")
	Source string `json:"source,omitempty" example:"api"`
}

// OverrideResponse is returned after a successful override.
type OverrideResponse struct {
	Status        string    `json:"status" example:"override_applied"`
	OverrideMode  string    `json:"override_mode" example:"HEAT_ON"`
	OverrideUntil time.Time `json:"override_until"`
	AuditHash     string    `json:"audit_hash"`
}

// initiatedBy identifies the caller for the audit journal.
func initiatedBy(c *gin.Context) string {
	if id, ok := currentUserID(c); ok {
		return fmt.Sprintf("user:%d@%s", id, c.ClientIP())
	}
	return "anonymous@" + c.ClientIP()
}

// @Summary      Get override
// @Description  Effective override (manual, schedule or default) and the stored manual record.
// @Tags         override
// @Produce      json
// @Success      200  {object}  service.OverrideStatus
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/override [get]
// @Security     BearerAuth
func (h *Handler) getOverride(c *gin.Context) {
	st, err := h.services.Overrides.Current(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetOverride, "override_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Apply override
// @Description  Forces a mode for duration_minutes. The heat/cool interlock still applies.
// @Tags         override
// @Accept       json
// @Produce      json
// @Param        body  body   OverrideRequest  true  "Override payload"
// @Success      200   {object}  OverrideResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/override [post]
// @Security     BearerAuth
func (h *Handler) applyOverride(c *gin.Context) {
	var req overrideRequest
	if !h.bindJSONOrBadRequest(c, &req) {
		return
	}
	applied, err := h.services.Overrides.Apply(c.Request.Context(), service.OverrideParams{
		Mode:            req.Mode,
		DurationMinutes: req.DurationMinutes,
		Source:          req.Source,
		InitiatedBy:     initiatedBy(c),
	})
	switch {
	case err == nil:
	case service.IsInvalidOverride(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case service.IsRateLimited(err):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
		return
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errApplyOverride, "override_apply_failed", err, "mode", req.Mode)
		return
	}
	c.JSON(http.StatusOK, OverrideResponse{
		Status:        statusOverrideApplied,
		OverrideMode:  string(applied.Record.Mode),
		OverrideUntil: applied.Until,
		AuditHash:     applied.Event.Hash,
	})
}

// @Summary      Cancel override
// @Tags         override
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, cancelled"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/override [delete]
// @Security     BearerAuth
func (h *Handler) cancelOverride(c *gin.Context) {
	cancelled, err := h.services.Overrides.Cancel(c.Request.Context(), initiatedBy(c))
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errCancelOverride, "override_cancel_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOverrideCancelled, "cancelled": cancelled})
}
