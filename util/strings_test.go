package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomString32(t *testing.T) {
	a, err := RandomString32()
	require.NoError(t, err)
	assert.Len(t, a, 32)

	b, err := RandomString32()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "hosting-and-infrastructure", Slugify("Hosting and Infrastructure"))
	assert.Equal(t, "a-b-c", Slugify("  A -- b // C!  "))
	assert.Equal(t, "version-1-0", Slugify("Version 1.0"))
	assert.Equal(t, "", Slugify("---"))
}

func TestTrunc(t *testing.T) {
	assert.Equal(t, "hello", Trunc("hello", 10))
	assert.Equal(t, "hell", Trunc("hello", 5))
	assert.Equal(t, "héll", Trunc("héllo", 5))
	assert.Equal(t, "hello", Trunc("  hello  ", 10))
}
