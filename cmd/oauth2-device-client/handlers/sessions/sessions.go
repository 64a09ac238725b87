// Package sessions serves per-session state: readiness, status and cancellation
package sessions

import (
	"net/http"

	"github.com/wrale/oauth2-device-client/cmd/oauth2-device-client/handlers/common"
	"github.com/wrale/oauth2-device-client/internal/deviceflow"
	"github.com/wrale/oauth2-device-client/internal/session"
)

// ReadyResponse reports whether tokens were issued
type ReadyResponse struct {
	TokenReady bool `json:"token_ready"`
}

// StatusResponse reports the session lifecycle state
type StatusResponse struct {
	Status     session.Status `json:"status"`
	Reason     string         `json:"reason,omitempty"`
	TokenReady bool           `json:"token_ready"`
}

// ReadyHandler answers whether a session's tokens are available
type ReadyHandler struct {
	flow deviceflow.Service
}

// NewReady creates a readiness handler
func NewReady(flow deviceflow.Service) *ReadyHandler {
	return &ReadyHandler{flow: flow}
}

// ServeHTTP handles readiness requests
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ready, err := h.flow.IsAuthorized(common.SessionKey(r))
	if err != nil {
		common.WriteFlowError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, ReadyResponse{TokenReady: ready})
}

// StatusHandler reports pending, authorized or failed with the failure reason
type StatusHandler struct {
	flow deviceflow.Service
}

// NewStatus creates a status handler
func NewStatus(flow deviceflow.Service) *StatusHandler {
	return &StatusHandler{flow: flow}
}

// ServeHTTP handles status requests
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report, err := h.flow.Status(common.SessionKey(r))
	if err != nil {
		common.WriteFlowError(w, err)
		return
	}
	common.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:     report.Status,
		Reason:     report.Reason,
		TokenReady: report.TokenReady,
	})
}

// CancelHandler stops polling for a session
type CancelHandler struct {
	flow deviceflow.Service
}

// NewCancel creates a cancellation handler
func NewCancel(flow deviceflow.Service) *CancelHandler {
	return &CancelHandler{flow: flow}
}

// ServeHTTP handles cancellation requests
func (h *CancelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.flow.Cancel(common.SessionKey(r)); err != nil {
		common.WriteFlowError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNoContent)
}
