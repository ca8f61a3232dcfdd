package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	oldV, oldSHA, oldBuilt := Version, GitSHA, BuildTime
	t.Cleanup(func() { Version, GitSHA, BuildTime = oldV, oldSHA, oldBuilt })

	Version, GitSHA, BuildTime = "0.3.0", "abc123", "2024-05-01"
	assert.Equal(t, "hamilton 0.3.0 (abc123, built 2024-05-01)", String())
}
