package scriptparse

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSceneMarkers(t *testing.T) {
	content := "Opening notes that are ignored.\n" +
		"SCENE 1: The hero wakes in a dim room.\n" +
		"SCENE 2 - She walks into the rain.\n" +
		"## Scene 3. The city at night.\n"

	got := Parse(content)
	want := []Block{
		{Title: "SCENE 1", Description: "The hero wakes in a dim room."},
		{Title: "SCENE 2", Description: "She walks into the rain."},
		{Title: "## Scene 3", Description: "The city at night."},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSlugLines(t *testing.T) {
	content := "INT. KITCHEN - DAY\nMara pours coffee.\n\nEXT. ROOFTOP - NIGHT\nWind howls."

	got := Parse(content)
	require.Len(t, got, 2)
	assert.Equal(t, "INT", got[0].Title)
	assert.Equal(t, "KITCHEN - DAY\nMara pours coffee.", got[0].Description)
	assert.Equal(t, "EXT", got[1].Title)
	assert.Equal(t, "ROOFTOP - NIGHT\nWind howls.", got[1].Description)
}

func TestParseCaseInsensitive(t *testing.T) {
	got := Parse("scene 1: quiet harbor\nscene 2: storm arrives")
	require.Len(t, got, 2)
	assert.Equal(t, "scene 1", got[0].Title)
	assert.Equal(t, "storm arrives", got[1].Description)
}

func TestParseSeparatorTitles(t *testing.T) {
	content := "prologue\n---\nFirst beat.\n---\nSecond beat."

	got := Parse(content)
	want := []Block{
		{Title: "Scene 1", Description: "First beat."},
		{Title: "Scene 2", Description: "Second beat."},
	}
	assert.Equal(t, want, got)
}

func TestParseDropsEmptyBlocks(t *testing.T) {
	got := Parse("SCENE 1: Intro.\nSCENE 2:")
	require.Len(t, got, 1)
	assert.Equal(t, Block{Title: "SCENE 1", Description: "Intro."}, got[0])
}

func TestParseMarkerSwallowsFollowingBlankLines(t *testing.T) {
	// 标记后的空白包括换行，紧随其后的标记不再被识别
	got := Parse("SCENE 1:\n\nSCENE 2: Something happens.")
	require.Len(t, got, 1)
	assert.Equal(t, "SCENE 1", got[0].Title)
	assert.Equal(t, "SCENE 2: Something happens.", got[0].Description)
}

func TestParseParagraphFallback(t *testing.T) {
	content := "A boy finds a map.\n\n  \nHe follows it to the sea.\n\n\nThe tide turns."

	got := Parse(content)
	want := []Block{
		{Title: "Scene 1", Description: "A boy finds a map."},
		{Title: "Scene 2", Description: "He follows it to the sea."},
		{Title: "Scene 3", Description: "The tide turns."},
	}
	assert.Equal(t, want, got)
}

func TestParseFallbackWhenMarkersHaveNoText(t *testing.T) {
	got := Parse("SCENE 1:")
	require.Len(t, got, 1)
	assert.Equal(t, "Scene 1", got[0].Title)
	assert.Equal(t, "SCENE 1:", got[0].Description)
}

func TestParseBlank(t *testing.T) {
	assert.Empty(t, Parse("   \n\n  "))
}
