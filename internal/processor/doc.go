// Package processor extracts metadata from process application files.
//
// A Registry maps a file to the Processor responsible for its content type,
// either by an explicit processor id or by file extension.
//
// # Basic Usage
//
//	reg := processor.Default(logger)
//	md, err := reg.Process(ctx, processor.Input{
//	    URI:      "file:///work/order.bpmn",
//	    Path:     "/work/order.bpmn",
//	    Contents: contents,
//	})
//
// # Selection
//
// When Input.ProcessorID names a registered processor it is used directly.
// An unknown id is logged and selection falls back to the extension. The
// extension is the longest dotted suffix of the base name that some
// processor declares, so ".process-application" matches as a whole and the
// first registered processor wins ties.
//
// # Built-in Processors
//
//   - bpmn: processes, execution platform, and the process, decision and
//     form ids referenced through zeebe extension elements
//   - dmn: decisions and execution platform
//   - form: the form id of a form-js schema
//   - processApplication: marker files; content is optional
//
// # Error Handling
//
// Lookup fails with *types.NoProcessorError. A processor failure is returned
// as *types.ParseError wrapping the cause. Processors never retry.
package processor
