package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockwatch/internal/auth"
	"stockwatch/internal/models"
	"stockwatch/internal/repository"
	"stockwatch/internal/service"
)

type PortfolioHandler struct {
	Service    *service.PortfolioService
	Tokens     auth.JWT
	CookieName string
}

func (h *PortfolioHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/portfolio", auth.RequireUser(h.Tokens, h.CookieName))
	g.GET("", h.get)
	g.POST("", h.create)
	g.PUT("", h.update)
	g.DELETE("", h.delete)
	g.POST("/stocks", h.addStock)
	g.DELETE("/stocks/:symbol", h.removeStock)
	g.POST("/refresh", h.refresh)
	g.POST("/check-alerts", h.checkAlerts)
	g.POST("/test-notification", h.testNotification)
	g.GET("/alerts", h.listAlerts)
}

type createPortfolioRequest struct {
	Name        string `json:"name" binding:"required,max=120"`
	PollingRate int    `json:"polling_rate"`
}

type updatePortfolioRequest struct {
	Name        *string `json:"name"`
	PollingRate *int    `json:"polling_rate"`
}

type addStockRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

// @Summary Get the caller's portfolio
// @Tags portfolio
// @Produce json
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/v1/portfolio [get]
func (h *PortfolioHandler) get(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	view, err := h.Service.Get(c.Request.Context(), userID)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, view, nil)
}

// @Summary Create the caller's portfolio
// @Tags portfolio
// @Accept json
// @Produce json
// @Param body body createPortfolioRequest true "name and polling rate in hours"
// @Success 201 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/v1/portfolio [post]
func (h *PortfolioHandler) create(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var req createPortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	p, err := h.Service.Create(c.Request.Context(), userID, req.Name, req.PollingRate)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, p)
}

// @Summary Update name or polling rate
// @Tags portfolio
// @Accept json
// @Produce json
// @Param body body updatePortfolioRequest true "fields to change"
// @Success 200 {object} apiResponse
// @Router /api/v1/portfolio [put]
func (h *PortfolioHandler) update(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var req updatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	view, err := h.Service.Update(c.Request.Context(), userID, service.PortfolioUpdate{
		Name:        req.Name,
		PollingRate: req.PollingRate,
	})
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, view, nil)
}

// @Summary Delete the portfolio and its stocks
// @Tags portfolio
// @Success 200 {object} apiResponse
// @Router /api/v1/portfolio [delete]
func (h *PortfolioHandler) delete(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	if err := h.Service.Delete(c.Request.Context(), userID); err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, gin.H{"deleted": true}, nil)
}

// @Summary Track a stock
// @Tags portfolio
// @Accept json
// @Produce json
// @Param body body addStockRequest true "ticker symbol"
// @Success 201 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Router /api/v1/portfolio/stocks [post]
func (h *PortfolioHandler) addStock(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var req addStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	st, err := h.Service.AddStock(c.Request.Context(), userID, req.Symbol)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Created(c, st)
}

// @Summary Stop tracking a stock
// @Tags portfolio
// @Param symbol path string true "ticker symbol"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/v1/portfolio/stocks/{symbol} [delete]
func (h *PortfolioHandler) removeStock(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	if err := h.Service.RemoveStock(c.Request.Context(), userID, c.Param("symbol")); err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, gin.H{"deleted": true}, nil)
}

// @Summary Refresh metrics without sending alerts
// @Tags portfolio
// @Produce json
// @Success 200 {object} apiResponse
// @Router /api/v1/portfolio/refresh [post]
func (h *PortfolioHandler) refresh(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	sum, err := h.Service.Refresh(c.Request.Context(), userID)
	if err != nil {
		ServiceError(c, err)
		return
	}
	h.respondWithPortfolio(c, userID, sum)
}

// @Summary Run the alert check now
// @Tags portfolio
// @Produce json
// @Success 200 {object} apiResponse
// @Router /api/v1/portfolio/check-alerts [post]
func (h *PortfolioHandler) checkAlerts(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	sum, err := h.Service.CheckAlerts(c.Request.Context(), userID)
	if err != nil {
		ServiceError(c, err)
		return
	}
	h.respondWithPortfolio(c, userID, sum)
}

// @Summary Send a sample alert to the caller
// @Tags portfolio
// @Produce json
// @Success 200 {object} apiResponse
// @Failure 502 {object} apiResponse
// @Router /api/v1/portfolio/test-notification [post]
func (h *PortfolioHandler) testNotification(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	sent, err := h.Service.SendTestNotification(c.Request.Context(), userID)
	if err != nil {
		ServiceError(c, err)
		return
	}
	if !sent {
		Error(c, http.StatusBadGateway, "notification was not delivered", nil)
		return
	}
	Ok(c, gin.H{"sent": true}, nil)
}

var alertOrderColumns = map[string]string{
	"created_at": "created_at",
	"symbol":     "symbol",
	"id":         "id",
}

// @Summary Alert delivery history
// @Tags portfolio
// @Produce json
// @Param limit query int false "page size"
// @Param offset query int false "offset"
// @Param symbol query string false "filter by symbol"
// @Param trigger query string false "scheduled, manual or test"
// @Param success query bool false "filter by outcome"
// @Param order_by query string false "created_at, symbol or id"
// @Param asc query bool false "ascending order"
// @Success 200 {object} apiResponse
// @Router /api/v1/portfolio/alerts [get]
func (h *PortfolioHandler) listAlerts(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	params := repository.ListAlertDeliveriesParams{
		Limit:   limit,
		Offset:  offset,
		Symbol:  stringQueryPtr(c, "symbol"),
		Trigger: stringQueryPtr(c, "trigger"),
		Success: boolQueryPtr(c, "success"),
		OrderBy: parseOrder(c.Query("order_by"), alertOrderColumns),
		Asc:     boolQueryPtr(c, "asc"),
	}
	items, total, err := h.Service.ListAlerts(c.Request.Context(), userID, params)
	if err != nil {
		ServiceError(c, err)
		return
	}
	if items == nil {
		items = []models.AlertDelivery{}
	}
	Ok(c, items, paginationMeta(limit, offset, total))
}

func (h *PortfolioHandler) respondWithPortfolio(c *gin.Context, userID uint64, sum service.CheckSummary) {
	view, err := h.Service.Get(c.Request.Context(), userID)
	if err != nil {
		ServiceError(c, err)
		return
	}
	Ok(c, view, map[string]any{"summary": sum})
}

func (h *PortfolioHandler) userID(c *gin.Context) (uint64, bool) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "portfolio service unavailable", nil)
		return 0, false
	}
	id, ok := auth.IdentityFromGin(c)
	if !ok {
		Error(c, http.StatusUnauthorized, "not authenticated", nil)
		return 0, false
	}
	return id.UserID, true
}
