package processor

import (
	"context"
	"encoding/xml"
	"strings"

	"github.com/dshills/procindex-mcp/pkg/types"
)

// DMNProcessor extracts decisions from DMN diagrams
type DMNProcessor struct{}

// NewDMNProcessor creates a DMN processor
func NewDMNProcessor() *DMNProcessor {
	return &DMNProcessor{}
}

func (p *DMNProcessor) ID() string { return "dmn" }

func (p *DMNProcessor) Extensions() []string { return []string{".dmn"} }

func (p *DMNProcessor) Process(ctx context.Context, in Input) (*types.Metadata, error) {
	ex := &dmnExtractor{md: &types.Metadata{Type: types.TypeDMN}}
	if err := walkXML(ctx, in.Contents, ex); err != nil {
		return nil, err
	}
	return ex.md, nil
}

type dmnExtractor struct {
	md *types.Metadata
}

// isDMN accepts every DMN model namespace revision (1.1 to 1.5)
func isDMN(space string) bool {
	return strings.Contains(space, "omg.org/spec/DMN/")
}

func (e *dmnExtractor) root(el xml.StartElement) error {
	if !isDMN(el.Name.Space) || el.Name.Local != "definitions" {
		return errNoDefinitions
	}
	e.md.ExecutionPlatform = attr(el, nsModeler, "executionPlatform")
	e.md.ExecutionPlatformVersion = attr(el, nsModeler, "executionPlatformVersion")
	return nil
}

func (e *dmnExtractor) start(el xml.StartElement, _ string) {
	if isDMN(el.Name.Space) && el.Name.Local == "decision" {
		e.md.Decisions = append(e.md.Decisions, types.Element{
			ID:   attr(el, "", "id"),
			Name: attr(el, "", "name"),
		})
	}
}
