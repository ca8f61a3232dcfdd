package lidar

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"tailscale.com/tsweb"

	"github.com/banshee-data/hamilton/internal/httputil"
)

// AttachAdminRoutes mounts scanner debug pages under /debug/.
func (s *RangeScanner) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.KVFunc("Lidar scans", func() any { return s.scans.Load() })

	debug.HandleFunc("lidar", "Range scanner status", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSONOK(w, s.Status())
	})

	debug.HandleFunc("lidar/scan.png", "Latest range scan", func(w http.ResponseWriter, r *http.Request) {
		scan, ok := s.LastScan()
		if !ok {
			httputil.NotFound(w, "no fresh scan")
			return
		}
		buf := bytes.NewBuffer(nil)
		if err := PlotScan(buf, scan); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("failed to plot scan: %v", err))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		io.Copy(w, buf)
	})

	debug.HandleSilentFunc("lidar/motor", func(w http.ResponseWriter, r *http.Request) {
		if httputil.MethodNotAllowed(w, r, http.MethodPost) {
			return
		}
		switch r.FormValue("spin") {
		case "true", "1", "on":
			s.StartMotor()
		case "false", "0", "off":
			s.StopMotor()
		default:
			httputil.BadRequest(w, "spin must be on or off")
			return
		}
		httputil.WriteJSONOK(w, map[string]bool{"spinning": s.Spinning()})
	})
}
