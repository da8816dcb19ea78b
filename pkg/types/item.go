package types

// File is the last-read-from-disk snapshot of an indexed file
type File struct {
	Path     string
	Contents string
}

// Item is the indexed unit of state for one file URI
type Item struct {
	// Identification
	URI string

	// ProcessorID optionally pins the processor used for this item
	ProcessorID string

	// Content
	LocalValue string // In-memory override from an open editor buffer
	File       File

	// Metadata is nil until the first successful parse, and after a failed one
	Metadata *Metadata
}

// EffectiveValue returns the contents used for parsing.
// A non-empty local value always wins over the on-disk copy.
func (i *Item) EffectiveValue() string {
	if i.LocalValue != "" {
		return i.LocalValue
	}
	return i.File.Contents
}

// HasLocalValue reports whether an unsaved in-memory override is present
func (i *Item) HasLocalValue() bool {
	return i.LocalValue != ""
}

// Clone returns a deep copy of the item
func (i Item) Clone() Item {
	if i.Metadata != nil {
		md := i.Metadata.Clone()
		i.Metadata = &md
	}
	return i
}
