package indexer

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalURI(t *testing.T) {
	abs, err := filepath.Abs("rel/a.bpmn")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"absolute path", "/proj/a.bpmn", "file:///proj/a.bpmn"},
		{"unclean path", "/proj/sub/../a.bpmn", "file:///proj/a.bpmn"},
		{"trailing slash", "/proj/", "file:///proj"},
		{"file url", "file:///proj/a.bpmn", "file:///proj/a.bpmn"},
		{"escaped file url", "file:///proj/my%20diagram.bpmn", "file:///proj/my%20diagram.bpmn"},
		{"space is escaped", "/proj/my diagram.bpmn", "file:///proj/my%20diagram.bpmn"},
		{"relative path", "rel/a.bpmn", PathToURI(abs)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanonicalURI(tt.input))
		})
	}
}

func TestURIToPath(t *testing.T) {
	assert.Equal(t, "/proj/my diagram.bpmn", URIToPath("file:///proj/my%20diagram.bpmn"))
	assert.Equal(t, "/plain/path", URIToPath("/plain/path"))
}
