package lidar

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hamilton/internal/testutil"
)

func TestPlotScan(t *testing.T) {
	var buf bytes.Buffer
	scan := Scan{Points: []ScanPoint{obstacle(0, 1), obstacle(1, 2), {Angle: 2, Distance: 0}}}
	require.NoError(t, PlotScan(&buf, scan))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	buf.Reset()
	require.NoError(t, PlotScan(&buf, Scan{}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestAttachAdminRoutes(t *testing.T) {
	s, _ := newTestScanner(t, &fakeOpener{})
	mux := http.NewServeMux()
	s.AttachAdminRoutes(mux)

	t.Run("status", func(t *testing.T) {
		w := testutil.Serve(mux, testutil.LocalRequest(http.MethodGet, "/debug/lidar", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var st ScannerStatus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
		assert.Equal(t, DefaultPort, st.Port)
		assert.True(t, st.Spinning)
	})

	t.Run("no scan yet", func(t *testing.T) {
		w := testutil.Serve(mux, testutil.LocalRequest(http.MethodGet, "/debug/lidar/scan.png", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("scan png", func(t *testing.T) {
		s.store([]ScanPoint{obstacle(0, 1)})
		w := testutil.Serve(mux, testutil.LocalRequest(http.MethodGet, "/debug/lidar/scan.png", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	})

	t.Run("motor", func(t *testing.T) {
		w := testutil.Serve(mux, testutil.LocalForm(http.MethodPost, "/debug/lidar/motor", url.Values{"spin": {"off"}}))
		require.Equal(t, http.StatusOK, w.Code)
		assert.False(t, s.Spinning())

		w = testutil.Serve(mux, testutil.LocalRequest(http.MethodGet, "/debug/lidar/motor", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}
