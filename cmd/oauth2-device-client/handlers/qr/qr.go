package qr

import (
	"errors"
	"io/fs"
	"net/http"
	"os"

	"github.com/wrale/oauth2-device-client/cmd/oauth2-device-client/handlers/common"
	"github.com/wrale/oauth2-device-client/internal/deviceflow"
)

// Locator resolves where a session's QR code image is stored
type Locator interface {
	Path(key string) (string, error)
}

// Handler serves the QR code written for a session's verification URI
type Handler struct {
	flow  deviceflow.Service
	codes Locator
}

// New creates a new QR code handler
func New(flow deviceflow.Service, codes Locator) *Handler {
	return &Handler{flow: flow, codes: codes}
}

// ServeHTTP handles QR code image requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := common.SessionKey(r)

	if _, err := h.flow.Status(key); err != nil {
		common.WriteFlowError(w, err)
		return
	}

	path, err := h.codes.Path(key)
	if err != nil {
		common.WriteError(w, http.StatusNotFound, common.ErrorCodeUnknownSession, "No QR code for this session")
		return
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			common.WriteError(w, http.StatusNotFound, common.ErrorCodeUnknownSession, "No QR code for this session")
			return
		}
		common.WriteError(w, http.StatusInternalServerError, common.ErrorCodeServerError, "Unable to read QR code")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		common.WriteError(w, http.StatusInternalServerError, common.ErrorCodeServerError, "Unable to read QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
