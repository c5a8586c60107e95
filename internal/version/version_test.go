package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	orig := [3]string{Version, GitSHA, BuildTime}
	t.Cleanup(func() { Version, GitSHA, BuildTime = orig[0], orig[1], orig[2] })

	assert.Equal(t, "motion.report dev (unknown, built unknown)", String())

	Version, GitSHA, BuildTime = "1.2.0", "abc123", "2025-03-01T09:00:00Z"
	assert.Equal(t, "motion.report 1.2.0 (abc123, built 2025-03-01T09:00:00Z)", String())
}
