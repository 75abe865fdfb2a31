// Package paymentlog реализует HTTP-обработчик записи платежа в реестр группы.
//
// Ответ содержит сам платеж и актуальные статусы участников после пересчета.
package paymentlog

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/subshare/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subshare/internal/http/response"
	"github.com/magabrotheeeer/subshare/internal/lib/sl"
	"github.com/magabrotheeeer/subshare/internal/models"
)

// Handler обрабатывает запись платежей.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики записи платежа.
type Service interface {
	Log(ctx context.Context, caller models.Caller, req models.LogPaymentRequest) (*models.PaymentReceipt, error)
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Записать платеж
// @Description Добавляет платеж в реестр группы и пересчитывает статусы участников.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body models.LogPaymentRequest true "Платеж"
// @Success 201 {object} response.Response "Платеж и статусы участников"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Платеж за другого может записать только владелец"
// @Failure 404 {object} response.ErrorResponse "Группа не найдена"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /payments/log [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.log"
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

	var req models.LogPaymentRequest
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

	receipt, err := h.service.Log(r.Context(), caller, req)
	if err != nil {
		response.WriteError(w, r, log, err, "could not log payment")
		return
	}

	log.Info("payment logged", sl.GroupID(req.GroupID), slog.String("payment_id", receipt.Payment.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(receipt))
}
