package read

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subshare/internal/http/middlewarectx"
	"github.com/magabrotheeeer/subshare/internal/lib/apperr"
	"github.com/magabrotheeeer/subshare/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Details(ctx context.Context, caller models.Caller, groupID string) (*models.GroupDetails, error) {
	args := m.Called(ctx, caller, groupID)
	d, _ := args.Get(0).(*models.GroupDetails)
	return d, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func serve(t *testing.T, svc Service, caller *models.Caller, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/subscription/{id}", New(newNoopLogger(), svc))
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if caller != nil {
		req = req.WithContext(middlewarectx.WithCaller(req.Context(), *caller))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestReadHandler(t *testing.T) {
	caller := models.Caller{UserID: "user-b", Email: "b@x.com"}

	t.Run("группа со сводкой", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Details", mock.Anything, caller, "g1").Return(&models.GroupDetails{
			Group: &models.Group{
				ID: "g1", ServiceName: "Netflix", Cost: decimal.RequireFromString("15.99"),
				Invitees: []models.Invitee{
					{Email: "a@x.com", Status: models.InviteePaid},
					{Email: "b@x.com", Status: models.InviteeInvited},
				},
			},
			Summary: models.Summary{
				Collected:   decimal.RequireFromString("7.99"),
				Remaining:   decimal.RequireFromString("8"),
				PaidCount:   1,
				Outstanding: []string{"b@x.com"},
			},
		}, nil)

		w := serve(t, svc, &caller, "/subscription/g1")
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data struct {
				Group   models.Group   `json:"group"`
				Summary models.Summary `json:"summary"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, models.InviteePaid, resp.Data.Group.Invitees[0].Status)
		assert.Equal(t, []string{"b@x.com"}, resp.Data.Summary.Outstanding)
		assert.True(t, resp.Data.Summary.Collected.Equal(decimal.RequireFromString("7.99")))
	})

	t.Run("группа не найдена", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Details", mock.Anything, caller, "missing").Return(nil, apperr.NotFound("group not found"))

		w := serve(t, svc, &caller, "/subscription/missing")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"status":"Error","error":"group not found"}`, w.Body.String())
	})

	t.Run("ошибка хранилища", func(t *testing.T) {
		svc := new(MockService)
		svc.On("Details", mock.Anything, caller, "g1").Return(nil, errors.New("db down"))

		w := serve(t, svc, &caller, "/subscription/g1")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"status":"Error","error":"could not read group"}`, w.Body.String())
	})

	t.Run("без авторизации", func(t *testing.T) {
		w := serve(t, new(MockService), nil, "/subscription/g1")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
