package test

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wrale/oauth2-device-client/cmd/oauth2-device-client/handlers/common"
	"github.com/wrale/oauth2-device-client/internal/deviceflow"
	"github.com/wrale/oauth2-device-client/internal/oauth"
)

// MockService provides a full implementation of deviceflow.Service for testing
type MockService struct {
	StartAuthorizationFunc func(ctx context.Context) (*deviceflow.Authorization, error)
	IsAuthorizedFunc       func(key string) (bool, error)
	StatusFunc             func(key string) (*deviceflow.StatusReport, error)
	FetchProfileFunc       func(ctx context.Context, key string) (*oauth.Profile, error)
	CancelFunc             func(key string) error
	CheckHealthFunc        func(ctx context.Context) error
}

// Ensure MockService implements the Service interface
var _ deviceflow.Service = (*MockService)(nil)

// StartAuthorization implements deviceflow.Service
func (m *MockService) StartAuthorization(ctx context.Context) (*deviceflow.Authorization, error) {
	if m.StartAuthorizationFunc != nil {
		return m.StartAuthorizationFunc(ctx)
	}
	return nil, nil
}

// IsAuthorized implements deviceflow.Service
func (m *MockService) IsAuthorized(key string) (bool, error) {
	if m.IsAuthorizedFunc != nil {
		return m.IsAuthorizedFunc(key)
	}
	return false, nil
}

// Status implements deviceflow.Service
func (m *MockService) Status(key string) (*deviceflow.StatusReport, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(key)
	}
	return nil, nil
}

// FetchProfile implements deviceflow.Service
func (m *MockService) FetchProfile(ctx context.Context, key string) (*oauth.Profile, error) {
	if m.FetchProfileFunc != nil {
		return m.FetchProfileFunc(ctx, key)
	}
	return nil, nil
}

// Cancel implements deviceflow.Service
func (m *MockService) Cancel(key string) error {
	if m.CancelFunc != nil {
		return m.CancelFunc(key)
	}
	return nil
}

// CheckHealth implements deviceflow.Service
func (m *MockService) CheckHealth(ctx context.Context) error {
	if m.CheckHealthFunc != nil {
		return m.CheckHealthFunc(ctx)
	}
	return nil
}

// WithSessionKey attaches a chi route context carrying the session key
func WithSessionKey(r *http.Request, key string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(common.SessionKeyParam, key)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
