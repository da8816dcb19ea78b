package processor

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dshills/procindex-mcp/pkg/types"
)

// Input is what a processor sees of an item
type Input struct {
	URI         string
	Path        string
	Contents    string // Effective value: local override or disk contents
	ProcessorID string // Optional explicit processor selection
}

// Processor extracts metadata from one content type
type Processor interface {
	// ID uniquely identifies the processor for explicit selection
	ID() string

	// Extensions lists the file extensions handled, including the leading dot
	Extensions() []string

	// Process extracts metadata from in.Contents
	Process(ctx context.Context, in Input) (*types.Metadata, error)
}

// Registry selects a processor for a file by explicit id or by extension.
// It is immutable after construction.
type Registry struct {
	processors []Processor
	byID       map[string]Processor
	byExt      map[string]Processor // first registered processor per extension
	logger     *slog.Logger
}

// NewRegistry creates a registry over processors, in priority order
func NewRegistry(logger *slog.Logger, processors ...Processor) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		processors: processors,
		byID:       make(map[string]Processor, len(processors)),
		byExt:      make(map[string]Processor),
		logger:     logger,
	}

	for _, p := range processors {
		if _, exists := r.byID[p.ID()]; !exists {
			r.byID[p.ID()] = p
		}
		for _, ext := range p.Extensions() {
			ext = strings.ToLower(ext)
			if _, exists := r.byExt[ext]; !exists {
				r.byExt[ext] = p
			}
		}
	}

	return r
}

// Default returns a registry with all built-in processors
func Default(logger *slog.Logger) *Registry {
	return NewRegistry(logger,
		NewBPMNProcessor(),
		NewDMNProcessor(),
		NewFormProcessor(),
		NewProcessApplicationProcessor(),
	)
}

// Lookup returns the processor responsible for in.
// An unknown explicit id is logged and falls through to extension lookup.
func (r *Registry) Lookup(in Input) (Processor, error) {
	if in.ProcessorID != "" {
		if p, ok := r.byID[in.ProcessorID]; ok {
			return p, nil
		}
		r.logger.Warn("unknown processor, falling back to extension",
			"processor", in.ProcessorID, "path", in.Path)
	}

	if p, ok := r.match(in.Path); ok {
		return p, nil
	}

	return nil, &types.NoProcessorError{Path: in.Path}
}

// Process extracts metadata from in with the selected processor.
// Processor failures are returned as *types.ParseError.
func (r *Registry) Process(ctx context.Context, in Input) (*types.Metadata, error) {
	p, err := r.Lookup(in)
	if err != nil {
		return nil, err
	}

	md, err := p.Process(ctx, in)
	if err != nil {
		var parseErr *types.ParseError
		if errors.As(err, &parseErr) {
			return nil, err
		}
		return nil, &types.ParseError{URI: in.URI, Processor: p.ID(), Err: err}
	}

	return md, nil
}

// Handles reports whether some processor matches path by extension
func (r *Registry) Handles(path string) bool {
	_, ok := r.match(path)
	return ok
}

// Extensions returns every declared extension, in registration order
func (r *Registry) Extensions() []string {
	seen := make(map[string]bool)
	var exts []string
	for _, p := range r.processors {
		for _, ext := range p.Extensions() {
			ext = strings.ToLower(ext)
			if !seen[ext] {
				seen[ext] = true
				exts = append(exts, ext)
			}
		}
	}
	return exts
}

// match tries the longest dotted suffix of the base name first, so a
// dotfile such as ".process-application" is matched whole.
func (r *Registry) match(path string) (Processor, bool) {
	for _, ext := range extensionCandidates(path) {
		if p, ok := r.byExt[ext]; ok {
			return p, true
		}
	}
	return nil, false
}

func extensionCandidates(path string) []string {
	base := strings.ToLower(filepath.Base(path))

	var candidates []string
	for i := 0; i < len(base); i++ {
		if base[i] == '.' {
			candidates = append(candidates, base[i:])
		}
	}
	return candidates
}
