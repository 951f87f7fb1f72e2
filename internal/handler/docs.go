package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func RegisterDocs(r *gin.Engine) {
	r.GET("/docs", func(c *gin.Context) {
		c.Header("Content-Type", "text/markdown; charset=utf-8")
		c.String(http.StatusOK, `# stockwatch

Tracks a portfolio of tickers against their 200-day moving average and sends
one alert per dip when a stock trades at the average or up to 15% below it.

## Auth

Register or log in with a PIN (4 letters followed by 2 digits). The session
token is set as the access_token cookie and returned in the body; either the
cookie or an Authorization: Bearer header is accepted.
Admin routes take the configured admin token as a Bearer header.

## Routes

- GET /healthz
- GET /readyz
- GET /metrics
- GET /swagger/index.html
- POST /api/v1/auth/register
- POST /api/v1/auth/login
- POST /api/v1/auth/logout
- GET /api/v1/auth/me
- GET|POST|PUT|DELETE /api/v1/portfolio
- POST /api/v1/portfolio/stocks
- DELETE /api/v1/portfolio/stocks/{symbol}
- POST /api/v1/portfolio/refresh
- POST /api/v1/portfolio/check-alerts
- POST /api/v1/portfolio/test-notification
- GET /api/v1/portfolio/alerts
- GET /api/v1/stream (websocket)
- GET /api/v1/admin/system-settings
- GET /api/v1/admin/switches
- PUT /api/v1/admin/switches/{name}
- POST /api/v1/admin/run-check
`)
	})
}
