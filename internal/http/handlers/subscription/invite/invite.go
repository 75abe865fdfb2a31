// Package invite реализует HTTP-обработчик приглашения участников в группу.
package invite

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/subshare/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subshare/internal/http/response"
	"github.com/magabrotheeeer/subshare/internal/lib/sl"
	"github.com/magabrotheeeer/subshare/internal/models"
)

// Handler обрабатывает приглашения участников.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики приглашения.
type Service interface {
	Invite(ctx context.Context, caller models.Caller, groupID string, emails []string) (*models.Group, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Пригласить участников
// @Description Добавляет email в группу. Уже приглашенные адреса пропускаются. Доступно только владельцу.
// @Tags Subscription
// @Accept  json
// @Produce  json
// @Param id path string true "ID группы"
// @Param request body models.InviteRequest true "Список email"
// @Success 200 {object} response.Response "Обновленная группа"
// @Failure 403 {object} response.ErrorResponse "Вызывающий не владелец"
// @Failure 404 {object} response.ErrorResponse "Группа не найдена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /subscription/{id}/invite [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.invite"
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

	var req models.InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	g, err := h.service.Invite(r.Context(), caller, groupID, req.Invitees)
	if err != nil {
		response.WriteError(w, r, log, err, "could not invite members")
		return
	}

	log.Info("members invited", sl.GroupID(g.ID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"group": g,
	}))
}
