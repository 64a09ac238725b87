package whoami

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"github.com/wrale/oauth2-device-client/cmd/oauth2-device-client/handlers/common"
	"github.com/wrale/oauth2-device-client/cmd/oauth2-device-client/handlers/common/test"
	"github.com/wrale/oauth2-device-client/internal/deviceflow"
	"github.com/wrale/oauth2-device-client/internal/oauth"
	"github.com/wrale/oauth2-device-client/internal/session"
)

func TestWhoAmIHandler(t *testing.T) {
	raw := json.RawMessage(`{"id":"person-1","displayName":"Device Owner","callingData":{"line":"+15550100"}}`)

	tests := []struct {
		name       string
		fetchFunc  func(ctx context.Context, key string) (*oauth.Profile, error)
		wantStatus int
		wantBody   map[string]any
		wantError  string
	}{
		{
			name: "provider document passed through",
			fetchFunc: func(ctx context.Context, key string) (*oauth.Profile, error) {
				return &oauth.Profile{ID: "person-1", DisplayName: "Device Owner", Raw: raw}, nil
			},
			wantStatus: http.StatusOK,
			wantBody: map[string]any{
				"id":          "person-1",
				"displayName": "Device Owner",
				"callingData": map[string]any{"line": "+15550100"},
			},
		},
		{
			name: "unknown session",
			fetchFunc: func(ctx context.Context, key string) (*oauth.Profile, error) {
				return nil, session.ErrUnknownSession
			},
			wantStatus: http.StatusNotFound,
			wantError:  common.ErrorCodeUnknownSession,
		},
		{
			name: "not authorized",
			fetchFunc: func(ctx context.Context, key string) (*oauth.Profile, error) {
				return nil, deviceflow.ErrNotAuthorized
			},
			wantStatus: http.StatusConflict,
			wantError:  common.ErrorCodeNotAuthorized,
		},
		{
			name: "refresh failed",
			fetchFunc: func(ctx context.Context, key string) (*oauth.Profile, error) {
				return nil, fmt.Errorf("%w: %w", deviceflow.ErrTokenRefreshFailed, oauth.ErrInvalidGrant)
			},
			wantStatus: http.StatusBadGateway,
			wantError:  common.ErrorCodeTokenRefreshFailed,
		},
		{
			name: "provider rejected",
			fetchFunc: func(ctx context.Context, key string) (*oauth.Profile, error) {
				return nil, fmt.Errorf("fetching profile: %w", oauth.ErrRequestFailed)
			},
			wantStatus: http.StatusBadGateway,
			wantError:  common.ErrorCodeProviderError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := New(&test.MockService{FetchProfileFunc: tt.fetchFunc}, zaptest.NewLogger(t))

			req := test.WithSessionKey(httptest.NewRequest(http.MethodGet, "/sessions/k/whoami", nil), "k")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %v, want %v", w.Code, tt.wantStatus)
			}

			if tt.wantError != "" {
				var resp common.ErrorResponse
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
					t.Fatalf("Failed to decode response: %v", err)
				}
				if resp.Error != tt.wantError {
					t.Errorf("error = %v, want %v", resp.Error, tt.wantError)
				}
				return
			}

			var got map[string]any
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if diff := cmp.Diff(tt.wantBody, got); diff != "" {
				t.Errorf("response mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
