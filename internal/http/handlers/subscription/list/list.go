// Package list реализует HTTP-обработчик списка групп вызывающего.
package list

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

// Handler обрабатывает запросы на список групп.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики списка групп.
type Service interface {
	List(ctx context.Context, caller models.Caller) ([]*models.Group, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Список групп
// @Description Группы, где вызывающий владелец или приглашенный, в порядке создания.
// @Tags Subscription
// @Produce  json
// @Success 200 {object} response.Response "Список групп"
// @Router /subscription [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.list"
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

	groups, err := h.service.List(r.Context(), caller)
	if err != nil {
		response.WriteError(w, r, log, err, "could not list groups")
		return
	}
	if groups == nil {
		groups = []*models.Group{}
	}

	log.Debug("groups listed", slog.Int("count", len(groups)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"groups": groups,
	}))
}
