package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, Version)
	assert.Regexp(t, `^v\d+\.\d+\.\d+`, Version)
}
