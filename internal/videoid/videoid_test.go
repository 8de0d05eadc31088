package videoid_test

import (
	"testing"

	"github.com/laytan/tubescript/internal/videoid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rickroll = "dQw4w9WgXcQ"

func TestExtractPassthrough(t *testing.T) {
	ids := []string{rickroll, "___________", "-----------", "a1B2c3D4e5F"}
	for _, id := range ids {
		got, ok := videoid.Extract(id)
		require.True(t, ok, id)
		assert.Equal(t, id, got)
	}

	// Surrounding whitespace is not part of the id.
	got, ok := videoid.Extract("  " + rickroll + "\n")
	require.True(t, ok)
	assert.Equal(t, rickroll, got)
}

func TestExtractURLShapes(t *testing.T) {
	shapes := []string{
		"https://www.youtube.com/watch?v=" + rickroll,
		"https://youtube.com/watch?v=" + rickroll + "&t=42",
		"https://www.youtube.com/embed/" + rickroll,
		"https://www.youtube.com/embed/" + rickroll + "?start=5",
		"https://www.youtube.com/shorts/" + rickroll,
		"https://www.youtube.com/shorts/" + rickroll + "/extra",
		"https://youtu.be/" + rickroll,
	}
	for _, shape := range shapes {
		got, ok := videoid.Extract(shape)
		require.True(t, ok, shape)
		assert.Equal(t, rickroll, got, shape)
	}
}

func TestExtractNone(t *testing.T) {
	references := []string{
		"",
		"   ",
		"not a url",
		"tooshortid",
		"onecharttoolong1",
		"bad!chars:)",
		"https://example.com/watch?v=" + rickroll,
		"https://www.youtube.com/watch",
		"https://www.youtube.com/watch?t=42",
		"https://www.youtube.com/playlist?list=abc",
		"https://youtu.be/",
	}
	for _, reference := range references {
		got, ok := videoid.Extract(reference)
		assert.False(t, ok, reference)
		assert.Empty(t, got, reference)
	}
}

func TestIsID(t *testing.T) {
	assert.True(t, videoid.IsID(rickroll))
	assert.False(t, videoid.IsID(rickroll+"a"))
	assert.False(t, videoid.IsID("dQw4w9WgXc!"))
	assert.False(t, videoid.IsID(""))
}
