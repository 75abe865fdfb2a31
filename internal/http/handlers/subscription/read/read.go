// Package read реализует HTTP-обработчик получения группы по ID.
//
// Handler возвращает группу со статусами участников, пересчитанными по реестру платежей,
// и сводку: сколько собрано, сколько осталось и кто еще не заплатил.
package read

import (
	"context"
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

// Handler обрабатывает запросы на получение группы.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис бизнес-логики групп
}

// Service описывает интерфейс бизнес-логики чтения группы.
type Service interface {
	Details(ctx context.Context, caller models.Caller, groupID string) (*models.GroupDetails, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить группу
// @Description Возвращает группу и сводку по платежам.
// @Tags Subscription
// @Produce  json
// @Param id path string true "ID группы"
// @Success 200 {object} response.Response "Группа и сводка"
// @Failure 404 {object} response.ErrorResponse "Группа не найдена"
// @Router /subscription/{id} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.read"
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
	groupID := chi.URLParam(r, "id")

	d, err := h.service.Details(r.Context(), caller, groupID)
	if err != nil {
		response.WriteError(w, r, log, err, "could not read group")
		return
	}

	log.Debug("group read", sl.GroupID(groupID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"group":   d.Group,
		"summary": d.Summary,
	}))
}
