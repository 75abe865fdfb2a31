// Package pay реализует HTTP-обработчик отметки группы как оплаченной.
//
// Тело запроса необязательно: {} или {"paid_by": "..."}. Повторная отметка не считается ошибкой.
package pay

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subshare/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subshare/internal/http/response"
	"github.com/magabrotheeeer/subshare/internal/lib/sl"
	"github.com/magabrotheeeer/subshare/internal/models"
)

// Handler обрабатывает отметку оплаты.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики отметки оплаты.
type Service interface {
	MarkAsPaid(ctx context.Context, caller models.Caller, groupID, paidBy string) (*models.Group, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Отметить группу оплаченной
// @Description Владелец отмечает, что подписка оплачена. Повторный вызов возвращает группу без изменений.
// @Tags Subscription
// @Accept  json
// @Produce  json
// @Param id path string true "ID группы"
// @Param request body models.MarkPaidRequest false "Кто оплатил"
// @Success 200 {object} response.Response "Группа"
// @Failure 403 {object} response.ErrorResponse "Вызывающий не владелец"
// @Failure 404 {object} response.ErrorResponse "Группа не найдена"
// @Router /subscription/{id}/pay [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.pay"
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

	var req models.MarkPaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	g, err := h.service.MarkAsPaid(r.Context(), caller, chi.URLParam(r, "id"), req.PaidBy)
	if err != nil {
		response.WriteError(w, r, log, err, "could not mark group as paid")
		return
	}

	log.Info("group paid", sl.GroupID(g.ID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"group": g,
	}))
}
