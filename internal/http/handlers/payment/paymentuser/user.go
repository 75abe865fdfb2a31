// Package paymentuser реализует HTTP-обработчик списка платежей вызывающего.
package paymentuser

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subshare/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subshare/internal/http/response"
	"github.com/magabrotheeeer/subshare/internal/models"
)

// Handler обрабатывает запросы платежей пользователя.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс выборки платежей пользователя.
type Service interface {
	ForUser(ctx context.Context, caller models.Caller) ([]*models.Payment, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Мои платежи
// @Description Платежи, где плательщик совпадает с email вызывающего, во всех группах.
// @Tags Payments
// @Produce  json
// @Success 200 {object} response.Response "Список платежей"
// @Router /payments/user [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.user"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	caller, ok := middlewarectx.CallerFrom(r.Context())
	if !ok {
		log.Error("caller not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	payments, err := h.service.ForUser(r.Context(), caller)
	if err != nil {
		response.WriteError(w, r, log, err, "could not list payments")
		return
	}
	if payments == nil {
		payments = []*models.Payment{}
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"payments": payments,
	}))
}
