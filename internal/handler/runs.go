package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"optionchains/internal/repository"
)

type RunsHandler struct {
	Repo repository.Repository
}

func (h *RunsHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/runs", h.list)
}

var runOrderColumns = map[string]string{
	"started_at":      "started_at",
	"chains_accepted": "chains_accepted",
	"orders_seen":     "orders_seen",
}

// @Summary List detection runs
// @Tags runs
// @Produce json
// @Param user_id query string false "user id"
// @Param status query string false "running|succeeded|failed"
// @Param order_by query string false "started_at|chains_accepted|orders_seen"
// @Param asc query bool false "ascending order"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/runs [get]
func (h *RunsHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListDetectionRunsParams{
		Limit:   limit,
		Offset:  offset,
		UserID:  strQueryPtr(c, "user_id"),
		Status:  strQueryPtr(c, "status"),
		OrderBy: parseOrder(c.Query("order_by"), runOrderColumns),
		Asc:     boolQueryPtr(c, "asc"),
	}
	items, err := h.Repo.ListDetectionRuns(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountDetectionRuns(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}
