package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersion(t *testing.T) {
	assert.NotEmpty(t, GetVersion())
	assert.Equal(t, version, GetVersion())
}
