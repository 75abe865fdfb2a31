// Package paymentgroup реализует HTTP-обработчик списка платежей группы.
package paymentgroup

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subshare/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subshare/internal/http/response"
	"github.com/magabrotheeeer/subshare/internal/models"
)

// Handler обрабатывает запросы платежей группы.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс выборки платежей группы.
type Service interface {
	ForGroup(ctx context.Context, caller models.Caller, groupID string) ([]*models.Payment, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Платежи группы
// @Description Платежи группы по возрастанию даты.
// @Tags Payments
// @Produce  json
// @Param id path string true "ID группы"
// @Success 200 {object} response.Response "Список платежей"
// @Failure 404 {object} response.ErrorResponse "Группа не найдена"
// @Router /payments/group/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.group"
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

	payments, err := h.service.ForGroup(r.Context(), caller, chi.URLParam(r, "id"))
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
