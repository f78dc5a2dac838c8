package v1

import (
	"net/http"

	"github.com/wipeguard/wipeguard/internal/handlers/v1/mappers"
)

// (GET /api/v1/devices)
func (s *ServiceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.deviceSrv.ListTargets(r.Context())
	if err != nil {
		replyError(w, r, http.StatusInternalServerError, "failed to list devices")
		return
	}
	reply(w, r, http.StatusOK, mappers.DeviceListToApi(devices))
}
