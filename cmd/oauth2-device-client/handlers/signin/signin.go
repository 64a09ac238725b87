package signin

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/wrale/oauth2-device-client/cmd/oauth2-device-client/handlers/common"
	"github.com/wrale/oauth2-device-client/internal/deviceflow"
)

// Response tells the user where to approve the device, RFC 8628 section 3.3
type Response struct {
	VerificationURI         string    `json:"verification_uri"`
	VerificationURIComplete string    `json:"verification_uri_complete,omitempty"`
	UserCode                string    `json:"user_code"`
	SessionKey              string    `json:"session_key"`
	ExpiresIn               int       `json:"expires_in"`
	ExpiresAt               time.Time `json:"expires_at"`
}

// Handler starts device authorizations
type Handler struct {
	flow   deviceflow.Service
	logger *zap.Logger
}

// New creates a new sign-in handler
func New(flow deviceflow.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{flow: flow, logger: logger}
}

// ServeHTTP handles sign-in requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		common.WriteError(w, http.StatusMethodNotAllowed, common.ErrorCodeInvalidRequest, "POST method required")
		return
	}

	auth, err := h.flow.StartAuthorization(r.Context())
	if err != nil {
		h.logger.Warn("sign-in failed", zap.Error(err))
		common.WriteFlowError(w, err)
		return
	}

	expiresIn := int(time.Until(auth.ExpiresAt).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}

	common.WriteJSON(w, http.StatusOK, Response{
		VerificationURI:         auth.VerificationURI,
		VerificationURIComplete: auth.VerificationURIComplete,
		UserCode:                auth.UserCode,
		SessionKey:              auth.SessionKey,
		ExpiresIn:               expiresIn,
		ExpiresAt:               auth.ExpiresAt,
	})
}
