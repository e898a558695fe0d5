package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"optionchains/internal/client/broker"
	"optionchains/internal/repository"
	"optionchains/internal/rollchain"
	"optionchains/internal/service"
)

type ChainsHandler struct {
	Repo      repository.Repository
	Detection *service.ChainDetectionService
}

func (h *ChainsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/chains")
	g.POST("/detect", h.detect)
	g.GET("", h.list)
	g.GET("/summary", h.summary)
	g.GET("/:chain_id", h.get)
}

type detectRequest struct {
	UserID     string `json:"user_id"`
	FullResync bool   `json:"full_resync"`
}

// @Summary Detect rolled chains for a user
// @Tags chains
// @Accept json
// @Produce json
// @Param body body detectRequest true "user and resync flag"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Failure 422 {object} apiResponse
// @Failure 502 {object} apiResponse
// @Failure 503 {object} apiResponse
// @Router /api/v1/chains/detect [post]
func (h *ChainsHandler) detect(c *gin.Context) {
	if h.Detection == nil {
		Error(c, http.StatusInternalServerError, "detection service unavailable", nil)
		return
	}
	var req detectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		Error(c, http.StatusBadRequest, "user_id is required", nil)
		return
	}
	res, err := h.Detection.Detect(c.Request.Context(), userID, req.FullResync)
	if err != nil {
		meta := map[string]any{"run_id": res.RunID}
		switch {
		case errors.Is(err, service.ErrUnknownUser), errors.Is(err, broker.ErrUnknownUser):
			Error(c, http.StatusNotFound, "unknown user", meta)
		case errors.Is(err, rollchain.ErrNoOrders):
			Error(c, http.StatusUnprocessableEntity, "no orders to process", meta)
		case broker.IsUnavailable(err):
			Error(c, http.StatusServiceUnavailable, "broker unavailable", meta)
		case isBrokerError(err):
			Error(c, http.StatusBadGateway, err.Error(), meta)
		default:
			Error(c, http.StatusInternalServerError, err.Error(), meta)
		}
		return
	}
	Ok(c, res, map[string]any{
		"chains":   len(res.Chains),
		"rejected": res.Report.TotalRejected(),
	})
}

func isBrokerError(err error) bool {
	var apiErr *broker.APIError
	return errors.As(err, &apiErr) || errors.Is(err, broker.ErrTooManyPages)
}

var chainOrderColumns = map[string]string{
	"started_at":  "started_at",
	"ended_at":    "ended_at",
	"net_premium": "net_premium",
	"roll_count":  "roll_count",
	"symbol":      "symbol",
}

// @Summary List stored chains
// @Tags chains
// @Produce json
// @Param user_id query string true "user id"
// @Param symbol query string false "underlying symbol"
// @Param status query string false "active or closed"
// @Param enhanced query bool false "only traced chains"
// @Param order_by query string false "started_at|ended_at|net_premium|roll_count|symbol"
// @Param asc query bool false "ascending order"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/v1/chains [get]
func (h *ChainsHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		Error(c, http.StatusBadRequest, "user_id is required", nil)
		return
	}
	status := strQueryPtr(c, "status")
	if status != nil {
		v := strings.ToLower(*status)
		if v != string(rollchain.StatusActive) && v != string(rollchain.StatusClosed) {
			Error(c, http.StatusBadRequest, "invalid status", nil)
			return
		}
		status = &v
	}
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)
	params := repository.ListChainsParams{
		Limit:    limit,
		Offset:   offset,
		UserID:   userID,
		Symbol:   strQueryPtr(c, "symbol"),
		Status:   status,
		Enhanced: boolQueryPtr(c, "enhanced"),
		OrderBy:  parseOrder(c.Query("order_by"), chainOrderColumns),
		Asc:      boolQueryPtr(c, "asc"),
	}
	items, err := h.Repo.ListChains(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountChains(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

// @Summary Summarize stored chains
// @Tags chains
// @Produce json
// @Param user_id query string true "user id"
// @Success 200 {object} apiResponse
// @Router /api/v1/chains/summary [get]
func (h *ChainsHandler) summary(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	userID := strings.TrimSpace(c.Query("user_id"))
	if userID == "" {
		Error(c, http.StatusBadRequest, "user_id is required", nil)
		return
	}
	out, err := h.Repo.SummarizeChains(c.Request.Context(), userID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, out, nil)
}

// @Summary Get one chain with its orders
// @Tags chains
// @Produce json
// @Param chain_id path string true "chain id"
// @Param user_id query string true "user id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/v1/chains/{chain_id} [get]
func (h *ChainsHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	userID := strings.TrimSpace(c.Query("user_id"))
	chainID := strings.TrimSpace(c.Param("chain_id"))
	if userID == "" || chainID == "" {
		Error(c, http.StatusBadRequest, "user_id and chain_id are required", nil)
		return
	}
	item, err := h.Repo.GetChain(c.Request.Context(), userID, chainID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "chain not found", nil)
		return
	}
	Ok(c, item, nil)
}
