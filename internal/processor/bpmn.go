package processor

import (
	"context"
	"encoding/xml"

	"github.com/dshills/procindex-mcp/pkg/types"
)

// BPMNProcessor extracts processes and called identifiers from BPMN diagrams
type BPMNProcessor struct{}

// NewBPMNProcessor creates a BPMN processor
func NewBPMNProcessor() *BPMNProcessor {
	return &BPMNProcessor{}
}

func (p *BPMNProcessor) ID() string { return "bpmn" }

func (p *BPMNProcessor) Extensions() []string { return []string{".bpmn"} }

// Process walks the diagram once and collects processes and references
func (p *BPMNProcessor) Process(ctx context.Context, in Input) (*types.Metadata, error) {
	ex := &bpmnExtractor{md: &types.Metadata{Type: types.TypeBPMN}}
	if err := walkXML(ctx, in.Contents, ex); err != nil {
		return nil, err
	}
	return ex.md, nil
}

// bpmnExtractor is the visitor collecting BPMN metadata
type bpmnExtractor struct {
	md *types.Metadata
}

func (e *bpmnExtractor) root(el xml.StartElement) error {
	if el.Name.Space != nsBPMN || el.Name.Local != "definitions" {
		return errNoDefinitions
	}
	e.md.ExecutionPlatform = attr(el, nsModeler, "executionPlatform")
	e.md.ExecutionPlatformVersion = attr(el, nsModeler, "executionPlatformVersion")
	return nil
}

func (e *bpmnExtractor) start(el xml.StartElement, parentID string) {
	switch el.Name.Space {
	case nsBPMN:
		if el.Name.Local == "process" {
			e.md.Processes = append(e.md.Processes, types.Element{
				ID:   attr(el, "", "id"),
				Name: attr(el, "", "name"),
			})
		}
	case nsZeebe:
		e.extractZeebe(el, parentID)
	}
}

// extractZeebe records identifiers referenced through zeebe extension elements
func (e *bpmnExtractor) extractZeebe(el xml.StartElement, parentID string) {
	var ref types.Reference

	switch el.Name.Local {
	case "calledElement":
		ref = types.Reference{Kind: types.RefProcess, TargetID: attr(el, "", "processId")}
	case "calledDecision":
		ref = types.Reference{Kind: types.RefDecision, TargetID: attr(el, "", "decisionId")}
	case "formDefinition":
		ref = types.Reference{Kind: types.RefForm, TargetID: attr(el, "", "formId")}
	default:
		return
	}

	// expressions and linked-by-key forms are not identifiers
	if ref.TargetID == "" || ref.TargetID[0] == '=' {
		return
	}

	ref.SourceID = parentID
	e.md.References = append(e.md.References, ref)
}
