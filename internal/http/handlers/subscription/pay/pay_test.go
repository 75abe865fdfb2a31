package pay

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

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

func (m *MockService) MarkAsPaid(ctx context.Context, caller models.Caller, groupID, paidBy string) (*models.Group, error) {
	args := m.Called(ctx, caller, groupID, paidBy)
	g, _ := args.Get(0).(*models.Group)
	return g, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestPayHandler(t *testing.T) {
	owner := models.Caller{UserID: "owner-1", Email: "owner@x.com"}
	paidAt := time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC)
	paid := &models.Group{ID: "g1", Paid: true, PaidAt: &paidAt, Invitees: []models.Invitee{}}

	tests := []struct {
		name           string
		body           string
		paidBy         string
		returnGroup    *models.Group
		returnErr      error
		expectedStatus int
	}{
		{name: "пустое тело", body: "", returnGroup: paid, expectedStatus: http.StatusOK},
		{name: "пустой объект", body: "{}", returnGroup: paid, expectedStatus: http.StatusOK},
		{name: "с указанием плательщика", body: `{"paid_by":"card"}`, paidBy: "card", returnGroup: paid, expectedStatus: http.StatusOK},
		{
			name:           "не владелец",
			body:           "{}",
			returnErr:      apperr.Authorization("only the group owner can mark the group as paid"),
			expectedStatus: http.StatusForbidden,
		},
		{name: "некорректный JSON", body: "{oops", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			if tt.expectedStatus != http.StatusBadRequest {
				svc.On("MarkAsPaid", mock.Anything, owner, "g1", tt.paidBy).Return(tt.returnGroup, tt.returnErr)
			}

			r := chi.NewRouter()
			r.Method(http.MethodPut, "/subscription/{id}/pay", New(newNoopLogger(), svc))
			req := httptest.NewRequest(http.MethodPut, "/subscription/g1/pay", strings.NewReader(tt.body))
			req = req.WithContext(middlewarectx.WithCaller(req.Context(), owner))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Contains(t, w.Body.String(), `"paid":true`)
			}
			svc.AssertExpectations(t)
		})
	}
}
