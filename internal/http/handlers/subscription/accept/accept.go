// Package accept реализует HTTP-обработчик подтверждения приглашения в группу.
package accept

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

// Handler обрабатывает подтверждение приглашений.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики подтверждения.
type Service interface {
	Accept(ctx context.Context, caller models.Caller, groupID string) (*models.Group, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Принять приглашение
// @Description Переводит приглашение вызывающего из Invited в Accepted.
// @Tags Subscription
// @Produce  json
// @Param id path string true "ID группы"
// @Success 200 {object} response.Response "Обновленная группа"
// @Failure 404 {object} response.ErrorResponse "Группа или приглашение не найдены"
// @Router /subscription/{id}/accept [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.accept"
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

	g, err := h.service.Accept(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, r, log, err, "could not accept invitation")
		return
	}

	log.Info("invitation accepted", sl.GroupID(g.ID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"group": g,
	}))
}
