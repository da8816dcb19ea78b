package processor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/procindex-mcp/pkg/types"
)

// stubProcessor records calls and returns a fixed result
type stubProcessor struct {
	id    string
	exts  []string
	err   error
	calls int
}

func (s *stubProcessor) ID() string           { return s.id }
func (s *stubProcessor) Extensions() []string { return s.exts }
func (s *stubProcessor) Process(ctx context.Context, in Input) (*types.Metadata, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &types.Metadata{Type: types.MetadataType(s.id)}, nil
}

func readFixture(t *testing.T, name string) string {
	t.Helper()
	content, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return string(content)
}

func TestRegistryLookup(t *testing.T) {
	first := &stubProcessor{id: "first", exts: []string{".bpmn"}}
	second := &stubProcessor{id: "second", exts: []string{".bpmn", ".xml"}}
	app := &stubProcessor{id: "app", exts: []string{".process-application"}}
	reg := NewRegistry(nil, first, second, app)

	tests := []struct {
		name        string
		input       Input
		expected    string
		expectNoneE bool
	}{
		{"first registered wins", Input{Path: "/p/a.bpmn"}, "first", false},
		{"extension is case-insensitive", Input{Path: "/p/A.BPMN"}, "first", false},
		{"explicit id", Input{Path: "/p/a.bpmn", ProcessorID: "second"}, "second", false},
		{"unknown id falls back to extension", Input{Path: "/p/a.xml", ProcessorID: "nope"}, "second", false},
		{"dotfile matched whole", Input{Path: "/p/.process-application"}, "app", false},
		{"longest suffix", Input{Path: "/p/my.process-application"}, "app", false},
		{"no match", Input{Path: "/p/b.txt"}, "", true},
		{"no extension", Input{Path: "/p/Makefile"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := reg.Lookup(tt.input)
			if tt.expectNoneE {
				require.Error(t, err)
				assert.ErrorIs(t, err, types.ErrNoProcessorFound)
				assert.Contains(t, err.Error(), tt.input.Path)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p.ID())
		})
	}
}

func TestRegistryProcessWrapsFailures(t *testing.T) {
	cause := errors.New("boom")
	failing := &stubProcessor{id: "failing", exts: []string{".bpmn"}, err: cause}
	reg := NewRegistry(nil, failing)

	_, err := reg.Process(context.Background(), Input{URI: "file:///x.bpmn", Path: "/x.bpmn"})
	require.Error(t, err)

	var parseErr *types.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "failing", parseErr.Processor)
	assert.Equal(t, "file:///x.bpmn", parseErr.URI)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, failing.calls)
}

func TestRegistryExtensionsAndHandles(t *testing.T) {
	reg := Default(nil)

	assert.Equal(t, []string{".bpmn", ".dmn", ".form", ".process-application"}, reg.Extensions())
	assert.True(t, reg.Handles("/proj/a.bpmn"))
	assert.True(t, reg.Handles("/proj/.process-application"))
	assert.False(t, reg.Handles("/proj/b.txt"))
}

func TestBPMNProcessor(t *testing.T) {
	md, err := NewBPMNProcessor().Process(context.Background(), Input{
		Path:     "order.bpmn",
		Contents: readFixture(t, "order.bpmn"),
	})
	require.NoError(t, err)

	assert.Equal(t, types.TypeBPMN, md.Type)
	assert.Equal(t, "Camunda Cloud", md.ExecutionPlatform)
	assert.Equal(t, "8.5.0", md.ExecutionPlatformVersion)
	assert.Equal(t, []types.Element{
		{ID: "Order", Name: "Order Handling"},
		{ID: "Shipping", Name: ""},
	}, md.Processes)
	assert.Equal(t, []types.Reference{
		{Kind: types.RefProcess, TargetID: "Payment", SourceID: "Call_Payment"},
		{Kind: types.RefDecision, TargetID: "Discount", SourceID: "Rule_Discount"},
		{Kind: types.RefForm, TargetID: "ReviewForm", SourceID: "Task_Review"},
	}, md.References)
}

func TestBPMNProcessorRejectsInvalidContent(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"empty", ""},
		{"not xml", "this is not a diagram"},
		{"truncated", `<bpmn:definitions xmlns:bpmn="http://www.omg.org/spec/BPMN/20100524/MODEL"><bpmn:process id="P1">`},
		{"wrong root", `<dmn:definitions xmlns:dmn="https://www.omg.org/spec/DMN/20191111/MODEL/" />`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBPMNProcessor().Process(context.Background(), Input{Contents: tt.contents})
			assert.Error(t, err)
		})
	}
}

func TestBPMNProcessorHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBPMNProcessor().Process(ctx, Input{Contents: readFixture(t, "order.bpmn")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDMNProcessor(t *testing.T) {
	md, err := NewDMNProcessor().Process(context.Background(), Input{
		Contents: readFixture(t, "discount.dmn"),
	})
	require.NoError(t, err)

	assert.Equal(t, types.TypeDMN, md.Type)
	assert.Equal(t, "Camunda Cloud", md.ExecutionPlatform)
	assert.Equal(t, []types.Element{
		{ID: "Discount", Name: "Determine Discount"},
		{ID: "Eligibility", Name: ""},
	}, md.Decisions)
}

func TestFormProcessor(t *testing.T) {
	t.Run("schema with id", func(t *testing.T) {
		md, err := NewFormProcessor().Process(context.Background(), Input{
			Contents: readFixture(t, "review.form"),
		})
		require.NoError(t, err)
		assert.Equal(t, types.TypeForm, md.Type)
		assert.Equal(t, []types.Element{{ID: "ReviewForm", Name: "ReviewForm"}}, md.Forms)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := NewFormProcessor().Process(context.Background(), Input{Contents: "{"})
		assert.Error(t, err)
	})
}

func TestProcessApplicationProcessor(t *testing.T) {
	p := NewProcessApplicationProcessor()

	md, err := p.Process(context.Background(), Input{Contents: ""})
	require.NoError(t, err)
	assert.Equal(t, types.TypeProcessApplication, md.Type)

	_, err = p.Process(context.Background(), Input{Contents: "{}"})
	assert.NoError(t, err)

	_, err = p.Process(context.Background(), Input{Contents: "not json"})
	assert.Error(t, err)
}
