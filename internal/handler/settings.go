package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"optionchains/internal/repository"
	"optionchains/internal/service"
)

type SettingsHandler struct {
	Repo     repository.Repository
	Settings *service.SystemSettingsService
}

func (h *SettingsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/settings")
	g.GET("", h.list)
	g.GET("/switches", h.listSwitches)
	g.PUT("/switches/:key", h.putSwitch)
}

// @Summary List stored settings
// @Tags settings
// @Produce json
// @Param prefix query string false "key prefix"
// @Success 200 {object} apiResponse
// @Router /api/v1/settings [get]
func (h *SettingsHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 200)
	offset := intQuery(c, "offset", 0)
	params := repository.ListSystemSettingsParams{
		Limit:   limit,
		Offset:  offset,
		Prefix:  strQueryPtr(c, "prefix"),
		OrderBy: "key",
		Asc:     boolPtr(true),
	}
	items, err := h.Repo.ListSystemSettings(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountSystemSettings(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary List feature switches
// @Tags settings
// @Produce json
// @Success 200 {object} apiResponse
// @Router /api/v1/settings/switches [get]
func (h *SettingsHandler) listSwitches(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	Ok(c, h.Settings.Switches(c.Request.Context()), nil)
}

type putSwitchRequest struct {
	Enabled *bool `json:"enabled"`
}

// @Summary Toggle a feature switch
// @Tags settings
// @Accept json
// @Produce json
// @Param key path string true "switch key, e.g. feature.chain_detection"
// @Param body body putSwitchRequest true "new value"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/v1/settings/switches/{key} [put]
func (h *SettingsHandler) putSwitch(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	key := strings.TrimSpace(c.Param("key"))
	var req putSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if err := h.Settings.SetEnabled(c.Request.Context(), key, *req.Enabled); err != nil {
		if errors.Is(err, service.ErrUnknownSetting) {
			Error(c, http.StatusNotFound, "unknown switch", nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{
		"key":     key,
		"enabled": *req.Enabled,
	}, nil)
}
