package create

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subshare/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subshare/internal/lib/apperr"
	"github.com/magabrotheeeer/subshare/internal/models"
)

// MockService реализует интерфейс create.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, caller models.Caller, req models.CreateGroupRequest) (*models.Group, error) {
	args := m.Called(ctx, caller, req)
	g, _ := args.Get(0).(*models.Group)
	return g, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestCreateHandler(t *testing.T) {
	caller := models.Caller{UserID: "owner-1", Email: "owner@x.com"}
	validBody := `{"service_name":"Netflix","cost":"15.99","due_date":"2025-01-01","invitees":["a@x.com","b@x.com"]}`

	tests := []struct {
		name           string
		body           string
		caller         *models.Caller
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "успешное создание группы",
			body:   validBody,
			caller: &caller,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, caller, mock.MatchedBy(func(req models.CreateGroupRequest) bool {
					return req.ServiceName == "Netflix" && req.Cost.Equal(decimal.RequireFromString("15.99")) &&
						len(req.Invitees) == 2
				})).Return(&models.Group{ID: "g1", ServiceName: "Netflix", Invitees: []models.Invitee{}}, nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "невалидный email приглашенного",
			body:           `{"service_name":"Netflix","cost":"1","due_date":"2025-01-01","invitees":["not-an-email"]}`,
			caller:         &caller,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:           "не указано название",
			body:           `{"cost":"1","due_date":"2025-01-01"}`,
			caller:         &caller,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field ServiceName is a required field"}`,
		},
		{
			name:           "некорректный JSON",
			body:           "not a json",
			caller:         &caller,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name:           "отсутствует авторизация",
			body:           validBody,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"unauthorized"}`,
		},
		{
			name:   "нулевая стоимость",
			body:   `{"service_name":"Netflix","cost":"0","due_date":"2025-01-01"}`,
			caller: &caller,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, caller, mock.Anything).
					Return(nil, apperr.Validation("cost must be greater than zero"))
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"cost must be greater than zero"}`,
		},
		{
			name:   "ошибка сервиса",
			body:   validBody,
			caller: &caller,
			setupMock: func(m *MockService) {
				m.On("Create", mock.Anything, caller, mock.Anything).Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"could not create group"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)
			handler := New(newNoopLogger(), mockService)

			req := httptest.NewRequest(http.MethodPost, "/subscription/create", bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Content-Type", "application/json")
			ctx := context.WithValue(req.Context(), middleware.RequestIDKey, "req-id")
			if tt.caller != nil {
				ctx = middlewarectx.WithCaller(ctx, *tt.caller)
			}
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}
			if tt.expectedStatus == http.StatusCreated {
				var resp struct {
					Status string `json:"status"`
					Data   struct {
						Group models.Group `json:"group"`
					} `json:"data"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, "OK", resp.Status)
				assert.Equal(t, "g1", resp.Data.Group.ID)
			}
			mockService.AssertExpectations(t)
		})
	}
}
