package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildID_Deterministic(t *testing.T) {
	id1 := BuildID()
	id2 := BuildID()
	assert.Equal(t, id1, id2, "BuildID should be deterministic across calls")
	assert.NotEmpty(t, id1, "BuildID should not be empty")
}

func TestFullInfo(t *testing.T) {
	info := FullInfo()
	assert.True(t, strings.HasPrefix(info, "semdiff "+Version))
	assert.Contains(t, info, GitCommit)
}
