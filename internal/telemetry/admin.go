package telemetry

import (
	"net/http"
	"strconv"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/hamilton/internal/httputil"
)

const defaultRecentLimit = 50

// AttachAdminRoutes mounts tailsql and a recent-snapshots page on the debug
// handler of mux.
func (s *Store) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return err
	}
	tsql.SetDB("sqlite://"+s.path, s.db, &tailsql.DBOptions{
		Label: "Telemetry DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.KVFunc("Telemetry session", func() any { return s.session.String() })

	debug.HandleFunc("telemetry", "Recent controller snapshots (?n=)", func(w http.ResponseWriter, r *http.Request) {
		n := defaultRecentLimit
		if v := r.URL.Query().Get("n"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed <= 0 {
				httputil.BadRequest(w, "n must be a positive integer")
				return
			}
			n = parsed
		}
		snaps, err := s.Recent(r.Context(), n)
		if err != nil {
			httputil.InternalServerError(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, snaps)
	})
	return nil
}
