package navigation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/hamilton/internal/geometry"
	"github.com/banshee-data/hamilton/internal/motion"
	"github.com/banshee-data/hamilton/internal/testutil"
)

func TestAttachAdminRoutes(t *testing.T) {
	h := newHarness(t)
	h.localise(geometry.NewPose(0.2, 0.3, 0))
	mux := http.NewServeMux()
	h.ctrl.AttachAdminRoutes(mux)

	t.Run("set target", func(t *testing.T) {
		w := testutil.Serve(mux, testutil.LocalForm(http.MethodPost, "/debug/navigation/target",
			url.Values{"x": {"0.5"}, "y": {"0.6"}, "yaw": {"1"}}))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		target, ok := h.ctrl.Target()
		require.True(t, ok)
		assert.Equal(t, 0.5, target.Position.X)
		assert.InDelta(t, 1.0, target.Yaw(), 1e-12)
	})

	t.Run("status", func(t *testing.T) {
		require.NoError(t, h.ctrl.Tick(context.Background()))

		w := testutil.Serve(mux, testutil.LocalRequest(http.MethodGet, "/debug/navigation", nil))
		require.Equal(t, http.StatusOK, w.Code)

		var st Status
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
		assert.Equal(t, ModeSeeking, st.Mode)
		require.NotNil(t, st.Pose)
		assert.Equal(t, 0.2, st.Pose.X)
	})

	t.Run("clear target", func(t *testing.T) {
		w := testutil.Serve(mux, testutil.LocalRequest(http.MethodDelete, "/debug/navigation/target", nil))
		require.Equal(t, http.StatusOK, w.Code)
		_, ok := h.ctrl.Target()
		assert.False(t, ok)
	})

	t.Run("bad target", func(t *testing.T) {
		w := testutil.Serve(mux, testutil.LocalForm(http.MethodPost, "/debug/navigation/target", url.Values{"x": {"north"}}))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("manual move", func(t *testing.T) {
		w := testutil.Serve(mux, testutil.LocalForm(http.MethodPost, "/debug/navigation/move",
			url.Values{"forward": {"0.3"}, "yaw": {"-0.2"}}))
		require.Equal(t, http.StatusOK, w.Code)

		require.NoError(t, h.ctrl.Tick(context.Background()))
		assert.Equal(t, motion.FromMove(motion.NewMoveCommand(0.3, 0, -0.2)), h.driver.last())
	})

	t.Run("move requires POST", func(t *testing.T) {
		w := testutil.Serve(mux, testutil.LocalRequest(http.MethodGet, "/debug/navigation/move", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}
