package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveValue(t *testing.T) {
	tests := []struct {
		name     string
		item     Item
		expected string
	}{
		{
			name:     "local value wins",
			item:     Item{LocalValue: "draft", File: File{Contents: "disk"}},
			expected: "draft",
		},
		{
			name:     "empty local value falls back to disk",
			item:     Item{File: File{Contents: "disk"}},
			expected: "disk",
		},
		{
			name:     "nothing read yet",
			item:     Item{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.item.EffectiveValue())
		})
	}
}

func TestItemCloneIsDeep(t *testing.T) {
	orig := Item{
		URI:      "file:///a.bpmn",
		Metadata: &Metadata{Type: TypeBPMN, Processes: []Element{{ID: "P1", Name: "P1"}}},
	}

	clone := orig.Clone()
	clone.Metadata.Processes[0].ID = "changed"

	assert.Equal(t, "P1", orig.Metadata.Processes[0].ID)
	assert.NotSame(t, orig.Metadata, clone.Metadata)
}

func TestErrorTaxonomy(t *testing.T) {
	cause := errors.New("unexpected EOF")

	parseErr := error(&ParseError{URI: "file:///x.bpmn", Processor: "bpmn", Err: cause})
	assert.ErrorIs(t, parseErr, cause)
	assert.Contains(t, parseErr.Error(), "file:///x.bpmn")

	var noProc error = &NoProcessorError{Path: "/tmp/b.txt"}
	assert.ErrorIs(t, noProc, ErrNoProcessorFound)
	assert.Equal(t, "no processor found for /tmp/b.txt", noProc.Error())

	readErr := &ReadError{Path: "/missing", Err: cause}
	assert.ErrorIs(t, readErr, cause)
}
