package navigation

import (
	"fmt"
	"net/http"
	"strconv"

	"tailscale.com/tsweb"

	"github.com/banshee-data/hamilton/internal/geometry"
	"github.com/banshee-data/hamilton/internal/httputil"
	"github.com/banshee-data/hamilton/internal/motion"
	"github.com/banshee-data/hamilton/internal/telemetry"
)

// AttachAdminRoutes mounts controller debug pages under /debug/.
func (c *Controller) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.KVFunc("Navigation mode", func() any { return c.Status().Mode })

	debug.HandleFunc("navigation", "Navigation controller status", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSONOK(w, c.Status())
	})

	// POST x, y, yaw (radians) sets the target; DELETE clears it.
	debug.HandleSilentFunc("navigation/target", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			vals, err := formFloats(r, "x", "y", "yaw")
			if err != nil {
				httputil.BadRequest(w, err.Error())
				return
			}
			pose := geometry.NewPose(vals[0], vals[1], vals[2])
			c.SetTarget(pose)
			httputil.WriteJSONOK(w, telemetry.FromPose(pose))
		case http.MethodDelete:
			c.ClearTarget()
			httputil.WriteJSONOK(w, map[string]bool{"cleared": true})
		default:
			httputil.MethodNotAllowed(w, r, http.MethodPost, http.MethodDelete)
		}
	})

	// POST forward, strafe, yaw issues a manual command stamped now.
	debug.HandleSilentFunc("navigation/move", func(w http.ResponseWriter, r *http.Request) {
		if httputil.MethodNotAllowed(w, r, http.MethodPost) {
			return
		}
		vals, err := formFloats(r, "forward", "strafe", "yaw")
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		cmd := motion.NewMoveCommand(vals[0], vals[1], vals[2])
		c.IssueUserCommand(cmd)
		httputil.WriteJSONOK(w, cmd)
	})
}

func formFloats(r *http.Request, keys ...string) ([]float64, error) {
	out := make([]float64, len(keys))
	for i, k := range keys {
		v := r.FormValue(k)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %v", k, err)
		}
		out[i] = f
	}
	return out, nil
}
