package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ai-stack-deploy/engine/internal/api/middleware"
	"github.com/ai-stack-deploy/engine/internal/api/types"
	"github.com/ai-stack-deploy/engine/internal/api/validators"
	"github.com/ai-stack-deploy/engine/internal/auth"
	"github.com/ai-stack-deploy/engine/internal/models"
	"github.com/ai-stack-deploy/engine/internal/provisioner"
	"github.com/ai-stack-deploy/engine/internal/repository"
	"github.com/ai-stack-deploy/engine/internal/services"
	appErr "github.com/ai-stack-deploy/engine/pkg/errors"
	"github.com/ai-stack-deploy/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type mockOrchestrator struct {
	mock.Mock
}

func (m *mockOrchestrator) Subscribe(ctx context.Context, caller *auth.Identity, planType, paymentMethodID string) (*services.SubscribeResult, error) {
	args := m.Called(ctx, caller, planType, paymentMethodID)
	if v := args.Get(0); v != nil {
		return v.(*services.SubscribeResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrchestrator) Deploy(ctx context.Context, caller *auth.Identity, templateID string) (*services.DeployResult, error) {
	args := m.Called(ctx, caller, templateID)
	if v := args.Get(0); v != nil {
		return v.(*services.DeployResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrchestrator) Teardown(ctx context.Context, caller *auth.Identity, deploymentID uuid.UUID) error {
	args := m.Called(ctx, caller, deploymentID)
	return args.Error(0)
}

func (m *mockOrchestrator) ListDeployments(ctx context.Context, userID string) ([]models.Deployment, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.([]models.Deployment), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockOrchestrator) ProfileCounts(ctx context.Context, userID string) (int64, int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

// Narrow fakes for driving the real workflow service under a handler. The
// embedded interfaces panic on anything a deploy should never touch.
type fakeSubLedger struct {
	repository.SubscriptionRepository
	active models.Subscription
}

func (f *fakeSubLedger) GetActiveByPlanPrefix(ctx context.Context, userID, prefix string, dest *models.Subscription) error {
	if userID == f.active.UserID && strings.HasPrefix(f.active.PlanType, prefix) {
		*dest = f.active
		return nil
	}
	return appErr.New(appErr.CodeNotFound, "no rows")
}

type fakeDepLedger struct {
	repository.DeploymentRepository
	created *models.Deployment
}

func (f *fakeDepLedger) Create(ctx context.Context, d *models.Deployment) error {
	f.created = d
	return nil
}

type fakeProvisioner struct {
	provisioner.Provisioner
	creates int
}

func (f *fakeProvisioner) Create(ctx context.Context, spec *provisioner.ResourceSpec) (*provisioner.ResourceHandle, error) {
	f.creates++
	return &provisioner.ResourceHandle{ID: "42", Name: "ai-stack-test", IPv4: "203.0.113.9"}, nil
}

var testIdentity = &auth.Identity{UserID: "user-1", Email: "u1@example.com", Role: auth.RoleAuthenticated}

func authedRequest(method, target string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(middleware.WithIdentity(req.Context(), testIdentity))
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) types.APIResponse {
	t.Helper()
	var resp types.APIResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestHealthEndpoints(t *testing.T) {
	h := NewHealthHandler()

	for _, tc := range []struct {
		name string
		fn   http.HandlerFunc
	}{
		{"root", h.Root},
		{"health", h.Health},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tc.fn(rr, httptest.NewRequest(http.MethodGet, "/", nil))
			require.Equal(t, http.StatusOK, rr.Code)
			assert.True(t, decodeResponse(t, rr).Success)
		})
	}
}

func TestTemplatesList(t *testing.T) {
	h := NewTemplatesHandler()
	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/templates", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Success bool                     `json:"success"`
		Data    []types.TemplateResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Data, 3)
	assert.Equal(t, "ollama-webui", resp.Data[0].ID)
	assert.Equal(t, 2000, resp.Data[0].Pricing["basic"].Price)
	assert.Equal(t, 3000, resp.Data[0].Port)
}

func TestCreateSubscription(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		orch := &mockOrchestrator{}
		h := NewSubscriptionsHandler(orch, nil, "", validators.New())

		subID := uuid.New()
		orch.On("Subscribe", mock.Anything, testIdentity, "ollama-webui-pro", "pm_123").
			Return(&services.SubscribeResult{
				SubscriptionID:       subID,
				StripeSubscriptionID: "sub_stripe",
				ClientSecret:         "cs_abc",
				Status:               "active",
			}, nil).Once()

		body, _ := json.Marshal(types.CreateSubscriptionRequest{PlanType: "ollama-webui-pro", PaymentMethodID: "pm_123"})
		rr := httptest.NewRecorder()
		h.Create(rr, authedRequest(http.MethodPost, "/create-subscription", body))

		require.Equal(t, http.StatusOK, rr.Code)
		var resp struct {
			Success bool                       `json:"success"`
			Data    types.SubscriptionResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, subID.String(), resp.Data.SubscriptionID)
		assert.Equal(t, "cs_abc", resp.Data.ClientSecret)
		orch.AssertExpectations(t)
	})

	t.Run("missing fields", func(t *testing.T) {
		orch := &mockOrchestrator{}
		h := NewSubscriptionsHandler(orch, nil, "", validators.New())

		rr := httptest.NewRecorder()
		h.Create(rr, authedRequest(http.MethodPost, "/create-subscription", []byte(`{"plan_type":"x"}`)))

		require.Equal(t, http.StatusBadRequest, rr.Code)
		orch.AssertNotCalled(t, "Subscribe")
	})

	t.Run("billing decline maps to 400", func(t *testing.T) {
		orch := &mockOrchestrator{}
		h := NewSubscriptionsHandler(orch, nil, "", validators.New())

		orch.On("Subscribe", mock.Anything, testIdentity, "ollama-webui-pro", "pm_123").
			Return(nil, appErr.New(appErr.CodeBilling, "Your card was declined.")).Once()

		body, _ := json.Marshal(types.CreateSubscriptionRequest{PlanType: "ollama-webui-pro", PaymentMethodID: "pm_123"})
		rr := httptest.NewRecorder()
		h.Create(rr, authedRequest(http.MethodPost, "/create-subscription", body))

		require.Equal(t, http.StatusBadRequest, rr.Code)
		resp := decodeResponse(t, rr)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "billing", resp.Error.Code)
	})
}

func TestDeployEndpoint(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		orch := &mockOrchestrator{}
		h := NewDeploymentsHandler(orch, validators.New())

		depID := uuid.New()
		subID := uuid.New()
		orch.On("Deploy", mock.Anything, testIdentity, "rag-app").
			Return(&services.DeployResult{
				DeploymentID:   depID,
				SubscriptionID: subID,
				URL:            "http://203.0.113.9:8501",
				Status:         models.DeploymentDeploying,
			}, nil).Once()

		rr := httptest.NewRecorder()
		h.Create(rr, authedRequest(http.MethodPost, "/deploy", []byte(`{"template_id":"rag-app"}`)))

		require.Equal(t, http.StatusOK, rr.Code)
		var resp struct {
			Data types.DeploymentResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, depID.String(), resp.Data.DeploymentID)
		assert.Equal(t, subID.String(), resp.Data.SubscriptionID)
		assert.Equal(t, "http://203.0.113.9:8501", resp.Data.URL)
		assert.Equal(t, models.DeploymentDeploying, resp.Data.Status)
	})

	// Runs the real workflow service under the handler: a tiered plan id in
	// the request must provision and come back with the matching
	// subscription_id.
	t.Run("tiered template id through the workflow", func(t *testing.T) {
		subID := uuid.New()
		subs := &fakeSubLedger{active: models.Subscription{
			ID:       subID,
			UserID:   "user-1",
			PlanType: "ollama-webui-pro",
			Status:   models.SubscriptionActive,
		}}
		deps := &fakeDepLedger{}
		prov := &fakeProvisioner{}
		orch := services.NewOrchestrator(subs, deps, nil, prov, nil)
		h := NewDeploymentsHandler(orch, validators.New())

		rr := httptest.NewRecorder()
		h.Create(rr, authedRequest(http.MethodPost, "/deploy", []byte(`{"template_id":"ollama-webui-pro"}`)))

		require.Equal(t, http.StatusOK, rr.Code)
		var resp struct {
			Data types.DeploymentResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, subID.String(), resp.Data.SubscriptionID)
		assert.Equal(t, "http://203.0.113.9:3000", resp.Data.URL)
		assert.Equal(t, models.DeploymentDeploying, resp.Data.Status)

		require.NotNil(t, deps.created)
		assert.Equal(t, "ollama-webui-pro", deps.created.TemplateID)
		assert.Equal(t, 1, prov.creates)
	})

	t.Run("invalid json", func(t *testing.T) {
		orch := &mockOrchestrator{}
		h := NewDeploymentsHandler(orch, validators.New())

		rr := httptest.NewRecorder()
		h.Create(rr, authedRequest(http.MethodPost, "/deploy", []byte(`{`)))
		require.Equal(t, http.StatusBadRequest, rr.Code)
		orch.AssertNotCalled(t, "Deploy")
	})

	t.Run("no subscription maps to 400", func(t *testing.T) {
		orch := &mockOrchestrator{}
		h := NewDeploymentsHandler(orch, validators.New())

		orch.On("Deploy", mock.Anything, testIdentity, "rag-app").
			Return(nil, appErr.New(appErr.CodeInvalid, "no active subscription found for this template")).Once()

		rr := httptest.NewRecorder()
		h.Create(rr, authedRequest(http.MethodPost, "/deploy", []byte(`{"template_id":"rag-app"}`)))
		require.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestListDeployments(t *testing.T) {
	orch := &mockOrchestrator{}
	h := NewDeploymentsHandler(orch, validators.New())

	orch.On("ListDeployments", mock.Anything, "user-1").
		Return([]models.Deployment{{ID: uuid.New(), UserID: "user-1", TemplateID: "rag-app"}}, nil).Once()

	rr := httptest.NewRecorder()
	h.List(rr, authedRequest(http.MethodGet, "/deployments", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decodeResponse(t, rr).Success)
}

func TestDeleteDeployment(t *testing.T) {
	newDeleteRequest := func(id string) *http.Request {
		req := authedRequest(http.MethodDelete, "/deployments/"+id, nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	t.Run("success", func(t *testing.T) {
		orch := &mockOrchestrator{}
		h := NewDeploymentsHandler(orch, validators.New())

		depID := uuid.New()
		orch.On("Teardown", mock.Anything, testIdentity, depID).Return(nil).Once()

		rr := httptest.NewRecorder()
		h.Delete(rr, newDeleteRequest(depID.String()))
		require.Equal(t, http.StatusOK, rr.Code)
		orch.AssertExpectations(t)
	})

	t.Run("bad id", func(t *testing.T) {
		orch := &mockOrchestrator{}
		h := NewDeploymentsHandler(orch, validators.New())

		rr := httptest.NewRecorder()
		h.Delete(rr, newDeleteRequest("not-a-uuid"))
		require.Equal(t, http.StatusBadRequest, rr.Code)
		orch.AssertNotCalled(t, "Teardown")
	})

	t.Run("not owned maps to 404", func(t *testing.T) {
		orch := &mockOrchestrator{}
		h := NewDeploymentsHandler(orch, validators.New())

		depID := uuid.New()
		orch.On("Teardown", mock.Anything, testIdentity, depID).
			Return(appErr.New(appErr.CodeNotFound, "deployment not found")).Once()

		rr := httptest.NewRecorder()
		h.Delete(rr, newDeleteRequest(depID.String()))
		require.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestProfile(t *testing.T) {
	orch := &mockOrchestrator{}
	h := NewProfileHandler(orch, nil)

	orch.On("ProfileCounts", mock.Anything, "user-1").Return(int64(1), int64(2), nil).Once()

	rr := httptest.NewRecorder()
	h.Get(rr, authedRequest(http.MethodGet, "/user/profile", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Data types.ProfileResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "user-1", resp.Data.UserID)
	assert.Equal(t, "u1@example.com", resp.Data.Email)
	assert.Equal(t, int64(1), resp.Data.SubscriptionCount)
	assert.Equal(t, int64(2), resp.Data.DeploymentCount)
}
