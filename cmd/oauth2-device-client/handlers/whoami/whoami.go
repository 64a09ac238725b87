package whoami

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/wrale/oauth2-device-client/cmd/oauth2-device-client/handlers/common"
	"github.com/wrale/oauth2-device-client/internal/deviceflow"
)

// Handler returns the provider profile of the user who authorized a session
type Handler struct {
	flow   deviceflow.Service
	logger *zap.Logger
}

// New creates a new profile handler
func New(flow deviceflow.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{flow: flow, logger: logger}
}

// ServeHTTP handles profile requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := common.SessionKey(r)

	profile, err := h.flow.FetchProfile(r.Context(), key)
	if err != nil {
		h.logger.Debug("profile request failed", zap.String("session", key), zap.Error(err))
		common.WriteFlowError(w, err)
		return
	}

	common.WriteJSON(w, http.StatusOK, profile)
}
