package signin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/zap/zaptest"

	"github.com/wrale/oauth2-device-client/cmd/oauth2-device-client/handlers/common"
	"github.com/wrale/oauth2-device-client/cmd/oauth2-device-client/handlers/common/test"
	"github.com/wrale/oauth2-device-client/internal/deviceflow"
	"github.com/wrale/oauth2-device-client/internal/oauth"
)

func TestSignInHandler(t *testing.T) {
	expiresAt := time.Now().Add(5 * time.Minute).UTC().Truncate(time.Second)

	tests := []struct {
		name       string
		method     string
		startFunc  func(ctx context.Context) (*deviceflow.Authorization, error)
		wantStatus int
		wantBody   *Response
		wantError  string
	}{
		{
			name:       "wrong method",
			method:     http.MethodGet,
			wantStatus: http.StatusMethodNotAllowed,
			wantError:  common.ErrorCodeInvalidRequest,
		},
		{
			name:   "successful request",
			method: http.MethodPost,
			startFunc: func(ctx context.Context) (*deviceflow.Authorization, error) {
				return &deviceflow.Authorization{
					VerificationURI:         "https://idp.example.com/verify",
					VerificationURIComplete: "https://idp.example.com/verify?userCode=ABCD-EFGH",
					UserCode:                "ABCD-EFGH",
					SessionKey:              "0123456789abcdef0123456789abcdef",
					ExpiresAt:               expiresAt,
				}, nil
			},
			wantStatus: http.StatusOK,
			wantBody: &Response{
				VerificationURI:         "https://idp.example.com/verify",
				VerificationURIComplete: "https://idp.example.com/verify?userCode=ABCD-EFGH",
				UserCode:                "ABCD-EFGH",
				SessionKey:              "0123456789abcdef0123456789abcdef",
				ExpiresAt:               expiresAt,
			},
		},
		{
			name:   "provider failure",
			method: http.MethodPost,
			startFunc: func(ctx context.Context) (*deviceflow.Authorization, error) {
				return nil, fmt.Errorf("requesting device authorization: %w", oauth.ErrProviderUnavailable)
			},
			wantStatus: http.StatusBadGateway,
			wantError:  common.ErrorCodeProviderError,
		},
		{
			name:   "flow closed",
			method: http.MethodPost,
			startFunc: func(ctx context.Context) (*deviceflow.Authorization, error) {
				return nil, deviceflow.ErrFlowClosed
			},
			wantStatus: http.StatusServiceUnavailable,
			wantError:  common.ErrorCodeUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := &test.MockService{StartAuthorizationFunc: tt.startFunc}
			handler := New(flow, zaptest.NewLogger(t))

			req := httptest.NewRequest(tt.method, "/sign-in", nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %v, want %v", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Cache-Control"); got != "no-store" {
				t.Errorf("Cache-Control = %v, want no-store", got)
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

			var got Response
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if diff := cmp.Diff(tt.wantBody, &got, cmpopts.IgnoreFields(Response{}, "ExpiresIn")); diff != "" {
				t.Errorf("response mismatch (-want +got):\n%s", diff)
			}
			if got.ExpiresIn <= 0 || got.ExpiresIn > 300 {
				t.Errorf("expires_in = %d, want within (0, 300]", got.ExpiresIn)
			}
		})
	}
}
