package paymentgroup

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subshare/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subshare/internal/lib/apperr"
	"github.com/magabrotheeeer/subshare/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) ForGroup(ctx context.Context, caller models.Caller, groupID string) ([]*models.Payment, error) {
	args := m.Called(ctx, caller, groupID)
	p, _ := args.Get(0).([]*models.Payment)
	return p, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestGroupPaymentsHandler(t *testing.T) {
	caller := models.Caller{UserID: "user-a", Email: "a@x.com"}

	tests := []struct {
		name           string
		payments       []*models.Payment
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "платежей нет",
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"payments":[]}}`,
		},
		{
			name:           "группа не найдена",
			err:            apperr.NotFound("group not found"),
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"status":"Error","error":"group not found"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			svc.On("ForGroup", mock.Anything, caller, "g1").Return(tt.payments, tt.err)

			r := chi.NewRouter()
			r.Method(http.MethodGet, "/payments/group/{id}", New(newNoopLogger(), svc))
			req := httptest.NewRequest(http.MethodGet, "/payments/group/g1", nil)
			req = req.WithContext(middlewarectx.WithCaller(req.Context(), caller))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}
