package engines

import "github.com/rknuus/gridcore/internal/utilities"

// UtilitiesLogger adapts the teacher's internal/utilities.ILoggingUtility to
// the narrow Logger seam the engines package calls for degraded-behavior
// diagnostics (spec.md §7: "Layout model update for unknown id... written
// through a host-provided logger"; "Missing required collaborator"). This is
// the single place that bridges the ambient logging stack to the engine
// layer's Warn-only contract, so engine code reaches internal/utilities'
// logging only through this adapter.
type UtilitiesLogger struct {
	log       utilities.ILoggingUtility
	component string
}

// NewUtilitiesLogger wraps log, tagging every entry with component unless a
// call site overrides it. log is not checked for nil; Warn on an adapter
// built from a nil log panics.
func NewUtilitiesLogger(log utilities.ILoggingUtility, component string) *UtilitiesLogger {
	return &UtilitiesLogger{log: log, component: component}
}

// Warn implements Logger by forwarding to the wrapped ILoggingUtility at
// Warning level, preferring the caller-supplied component name when set.
func (ul *UtilitiesLogger) Warn(component, message string, fields map[string]any) {
	if component == "" {
		component = ul.component
	}
	data := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		data[k] = v
	}
	ul.log.Log(utilities.Warning, component, message, data)
}
