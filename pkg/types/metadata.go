package types

// MetadataType identifies the kind of document a metadata record was extracted from
type MetadataType string

const (
	TypeBPMN               MetadataType = "bpmn"
	TypeDMN                MetadataType = "dmn"
	TypeForm               MetadataType = "form"
	TypeProcessApplication MetadataType = "processApplication"
)

// ReferenceKind names what a reference points at
type ReferenceKind string

const (
	RefProcess  ReferenceKind = "process"
	RefDecision ReferenceKind = "decision"
	RefForm     ReferenceKind = "form"
)

// Element is an identifiable definition inside a document (process, decision, form)
type Element struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Reference is an identifier this document uses that is defined elsewhere
type Reference struct {
	Kind     ReferenceKind `json:"kind"`
	TargetID string        `json:"target_id"`
	SourceID string        `json:"source_id,omitempty"` // Referencing element (e.g. call activity id)
}

// Metadata is the structured result of processing one file
type Metadata struct {
	Type MetadataType `json:"type"`

	ExecutionPlatform        string `json:"execution_platform,omitempty"`
	ExecutionPlatformVersion string `json:"execution_platform_version,omitempty"`

	Processes []Element `json:"processes,omitempty"`
	Decisions []Element `json:"decisions,omitempty"`
	Forms     []Element `json:"forms,omitempty"`

	References []Reference `json:"references,omitempty"`
}

// Clone returns a deep copy of the metadata
func (m Metadata) Clone() Metadata {
	m.Processes = cloneSlice(m.Processes)
	m.Decisions = cloneSlice(m.Decisions)
	m.Forms = cloneSlice(m.Forms)
	m.References = cloneSlice(m.References)
	return m
}

// Elements returns all defined elements keyed by their reference kind
func (m *Metadata) Elements() map[ReferenceKind][]Element {
	return map[ReferenceKind][]Element{
		RefProcess:  m.Processes,
		RefDecision: m.Decisions,
		RefForm:     m.Forms,
	}
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
