package citations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_NumberedMarkers(t *testing.T) {
	docs := []string{"intro.md", "advanced.md"}
	result := Parse("Goroutines are cheap [1] and multiplexed onto threads [2].", docs)

	assert.Equal(t, "Goroutines are cheap and multiplexed onto threads.", result.CleanText)
	require.Len(t, result.Citations, 2)
	assert.Equal(t, Citation{Text: "[1]", Source: "intro.md"}, result.Citations[0])
	assert.Equal(t, Citation{Text: "[2]", Source: "advanced.md"}, result.Citations[1])
}

func TestParse_AdjacentMarkersLeaveNoGap(t *testing.T) {
	docs := []string{"a.md", "b.md"}
	result := Parse("See [1] and [2].", docs)
	assert.Equal(t, "See and.", result.CleanText)
	assert.Len(t, result.Citations, 2)
}

func TestParse_InlineSourceMarkers(t *testing.T) {
	result := Parse("Channels synchronize by default [Source: Effective Go].", nil)

	assert.Equal(t, "Channels synchronize by default.", result.CleanText)
	require.Len(t, result.Citations, 1)
	assert.Equal(t, "[Source: Effective Go]", result.Citations[0].Text)
	assert.Equal(t, "Effective Go", result.Citations[0].Source)
}

func TestParse_MixedMarkersKeepTextOrder(t *testing.T) {
	docs := []string{"sched.md"}
	result := Parse("The scheduler [Source: runtime guide] preempts loops [1].", docs)

	require.Len(t, result.Citations, 2)
	assert.Equal(t, "runtime guide", result.Citations[0].Source)
	assert.Equal(t, "sched.md", result.Citations[1].Source)
	assert.Equal(t, "The scheduler preempts loops.", result.CleanText)
}

func TestParse_OutOfRangeMarkerStrippedWithoutCitation(t *testing.T) {
	result := Parse("Unproven claim [3].", []string{"only.md"})
	assert.Equal(t, "Unproven claim.", result.CleanText)
	assert.Empty(t, result.Citations)
}

func TestParse_NoMarkersIsUntouched(t *testing.T) {
	text := "Plain answer with no references."
	result := Parse(text, []string{"doc.md"})
	assert.Equal(t, text, result.CleanText)
	assert.Empty(t, result.Citations)
}

func TestParse_RepeatedMarkerYieldsEachOccurrence(t *testing.T) {
	result := Parse("First [1], then again [1].", []string{"doc.md"})
	assert.Equal(t, "First, then again.", result.CleanText)
	assert.Len(t, result.Citations, 2)
}

func TestParse_EmptyInput(t *testing.T) {
	result := Parse("", nil)
	assert.Equal(t, "", result.CleanText)
	assert.Empty(t, result.Citations)
}

func TestGenerateLink(t *testing.T) {
	tests := []struct {
		name     string
		citation Citation
		want     string
	}{
		{"absolute url", Citation{Source: "https://go.dev/doc/effective_go"}, "https://go.dev/doc/effective_go"},
		{"markdown doc", Citation{Source: "Getting Started.md"}, "/docs/getting-started"},
		{"rst doc", Citation{Source: "api/reference.rst"}, "/docs/api/reference"},
		{"plain source", Citation{Source: "Effective Go"}, "#source-effective-go"},
		{"empty source", Citation{Source: ""}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateLink(tt.citation))
		})
	}
}
