package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/procindex-mcp/pkg/types"
)

// FormProcessor extracts the form id from form-js schemas
type FormProcessor struct{}

// NewFormProcessor creates a form processor
func NewFormProcessor() *FormProcessor {
	return &FormProcessor{}
}

func (p *FormProcessor) ID() string { return "form" }

func (p *FormProcessor) Extensions() []string { return []string{".form"} }

// formSchema is the subset of a form-js schema we read
type formSchema struct {
	ID                       string `json:"id"`
	Name                     string `json:"name"`
	ExecutionPlatform        string `json:"executionPlatform"`
	ExecutionPlatformVersion string `json:"executionPlatformVersion"`
}

func (p *FormProcessor) Process(ctx context.Context, in Input) (*types.Metadata, error) {
	var schema formSchema
	if err := json.Unmarshal([]byte(in.Contents), &schema); err != nil {
		return nil, fmt.Errorf("invalid form schema: %w", err)
	}

	md := &types.Metadata{
		Type:                     types.TypeForm,
		ExecutionPlatform:        schema.ExecutionPlatform,
		ExecutionPlatformVersion: schema.ExecutionPlatformVersion,
	}

	if schema.ID != "" {
		name := schema.Name
		if name == "" {
			name = schema.ID
		}
		md.Forms = []types.Element{{ID: schema.ID, Name: name}}
	}

	return md, nil
}

var errInvalidProcessApplication = errors.New("invalid process application file")

// ProcessApplicationProcessor handles .process-application marker files
type ProcessApplicationProcessor struct{}

// NewProcessApplicationProcessor creates a process application processor
func NewProcessApplicationProcessor() *ProcessApplicationProcessor {
	return &ProcessApplicationProcessor{}
}

func (p *ProcessApplicationProcessor) ID() string { return "processApplication" }

func (p *ProcessApplicationProcessor) Extensions() []string {
	return []string{".process-application"}
}

// Process accepts an empty file; any content present must be JSON
func (p *ProcessApplicationProcessor) Process(ctx context.Context, in Input) (*types.Metadata, error) {
	if strings.TrimSpace(in.Contents) != "" && !json.Valid([]byte(in.Contents)) {
		return nil, errInvalidProcessApplication
	}
	return &types.Metadata{Type: types.TypeProcessApplication}, nil
}
