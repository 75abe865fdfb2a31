package paymentuser

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/subshare/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subshare/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) ForUser(ctx context.Context, caller models.Caller) ([]*models.Payment, error) {
	args := m.Called(ctx, caller)
	p, _ := args.Get(0).([]*models.Payment)
	return p, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestUserPaymentsHandler(t *testing.T) {
	caller := models.Caller{UserID: "user-a", Email: "a@x.com"}
	svc := new(MockService)
	svc.On("ForUser", mock.Anything, caller).Return([]*models.Payment{
		{ID: "p1", GroupID: "g1", PayerEmail: "a@x.com", Amount: decimal.NewFromInt(5), Method: models.MethodVenmo},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/payments/user", nil)
	req = req.WithContext(middlewarectx.WithCaller(req.Context(), caller))
	w := httptest.NewRecorder()
	New(newNoopLogger(), svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"p1"`)
	assert.Contains(t, w.Body.String(), `"method":"venmo"`)

	w = httptest.NewRecorder()
	New(newNoopLogger(), svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/payments/user", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
