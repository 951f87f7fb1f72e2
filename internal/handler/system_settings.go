package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"stockwatch/internal/auth"
	"stockwatch/internal/repository"
	"stockwatch/internal/service"
)

// AdminHandler exposes operator endpoints: feature switches and an on-demand
// scheduled pass. All routes need the admin bearer token.
type AdminHandler struct {
	Settings   *service.SystemSettingsService
	Checker    *service.StockChecker
	AdminToken string
}

func (h *AdminHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/admin", auth.RequireAdminToken(h.AdminToken))
	g.GET("/system-settings", h.listSettings)
	g.GET("/switches", h.listSwitches)
	g.PUT("/switches/:name", h.putSwitch)
	g.POST("/run-check", h.runCheck)
}

// @Summary List system settings
// @Tags admin
// @Produce json
// @Param prefix query string false "key prefix"
// @Success 200 {object} apiResponse
// @Router /api/v1/admin/system-settings [get]
func (h *AdminHandler) listSettings(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 200)
	offset := intQuery(c, "offset", 0)
	params := repository.ListSystemSettingsParams{
		Limit:   limit,
		Offset:  offset,
		Prefix:  stringQueryPtr(c, "prefix"),
		OrderBy: "key",
		Asc:     boolPtr(true),
	}
	items, total, err := h.Settings.List(c.Request.Context(), params)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary List feature switches
// @Tags admin
// @Produce json
// @Success 200 {object} apiResponse
// @Router /api/v1/admin/switches [get]
func (h *AdminHandler) listSwitches(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	prefix := "feature."
	items, _, err := h.Settings.List(c.Request.Context(), repository.ListSystemSettingsParams{
		Limit:   200,
		Prefix:  &prefix,
		OrderBy: "key",
		Asc:     boolPtr(true),
	})
	if err != nil {
		ServiceError(c, err)
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		enabled := false
		_ = json.Unmarshal(it.Value, &enabled)
		out = append(out, map[string]any{
			"name":        strings.TrimPrefix(it.Key, prefix),
			"key":         it.Key,
			"enabled":     enabled,
			"description": it.Description,
			"updated_at":  it.UpdatedAt,
		})
	}
	Ok(c, out, nil)
}

type putSwitchRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// @Summary Turn a feature switch on or off
// @Tags admin
// @Accept json
// @Produce json
// @Param name path string true "stock_checker or alert_delivery"
// @Param body body putSwitchRequest true "new state"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Router /api/v1/admin/switches/{name} [put]
func (h *AdminHandler) putSwitch(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	var req putSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	key := "feature." + name
	if err := h.Settings.SetEnabled(c.Request.Context(), key, *req.Enabled); err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, map[string]any{
		"name":    name,
		"key":     key,
		"enabled": *req.Enabled,
	}, nil)
}

// @Summary Run the scheduled pass now
// @Tags admin
// @Produce json
// @Success 200 {object} apiResponse
// @Router /api/v1/admin/run-check [post]
func (h *AdminHandler) runCheck(c *gin.Context) {
	if h.Checker == nil {
		Error(c, http.StatusInternalServerError, "checker unavailable", nil)
		return
	}
	out, err := h.Checker.RunScheduled(c.Request.Context())
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, out, nil)
}
