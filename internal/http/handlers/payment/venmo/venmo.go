// Package venmo содержит заглушку интеграции с Venmo.
// Реальные переводы не выполняются: платежи способом venmo записываются вручную через /payments/log.
package venmo

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subshare/internal/http/response"
)

// ServeHTTP godoc
// @Summary Интеграция с Venmo
// @Description Заглушка: интеграция не реализована.
// @Tags Payments
// @Produce  json
// @Success 200 {object} response.Response
// @Router /payments/venmo/integrate [get]
func ServeHTTP(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, response.OKWithData(map[string]any{
		"integrated": false,
		"message":    "Venmo integration is not available yet, log venmo payments manually",
	}))
}
