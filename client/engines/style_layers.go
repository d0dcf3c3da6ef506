package engines

import (
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"
)

// StyleLayerManager holds an insertion-ordered set of named CSS text layers
// composed into one stylesheet on Commit, so a "base" (responsive) layer and
// a "preview" (in-progress) layer can be written independently with correct
// cascade (spec.md §4.3). The ordered-map-with-mutex shape is grounded on the
// teacher's NavigationEventDispatcher (subscribers map kept in insertion
// order with a guarding sync.RWMutex) generalized from event fan-out to CSS
// layer composition.
type StyleLayerManager struct {
	mu     sync.RWMutex
	order  []string
	layers map[string]string
	sink   StyleSink
}

// StyleSink receives the composed stylesheet text on Commit. In a browser
// this is a managed <style> element's textContent; it's an external
// collaborator seam here (spec.md §1).
type StyleSink interface {
	SetText(css string)
}

// NewStyleLayerManager creates a manager writing to sink. If sink already
// holds non-empty text, that text is captured under the "base" layer,
// preserving server-rendered CSS (spec.md §4.3, §4.10).
func NewStyleLayerManager(sink StyleSink, initialText string) *StyleLayerManager {
	slm := &StyleLayerManager{
		layers: make(map[string]string),
		sink:   sink,
	}
	if strings.TrimSpace(initialText) != "" {
		slm.order = append(slm.order, "base")
		slm.layers["base"] = initialText
	}
	return slm
}

// Set writes css to the named layer. The first Set of a new layer name
// appends it to the layer order.
func (slm *StyleLayerManager) Set(layer, css string) {
	slm.mu.Lock()
	defer slm.mu.Unlock()

	if _, exists := slm.layers[layer]; !exists {
		slm.order = append(slm.order, layer)
	}
	slm.layers[layer] = css
}

// Get returns the current CSS text for layer, or "" if unset.
func (slm *StyleLayerManager) Get(layer string) string {
	slm.mu.RLock()
	defer slm.mu.RUnlock()
	return slm.layers[layer]
}

// Clear empties a layer's CSS without removing it from the layer order.
func (slm *StyleLayerManager) Clear(layer string) {
	slm.mu.Lock()
	defer slm.mu.Unlock()
	if _, exists := slm.layers[layer]; exists {
		slm.layers[layer] = ""
	}
}

// Commit writes layerOrder.map(name -> layers[name]).filter(nonEmpty).join("\n\n")
// into the managed sink (spec.md §4.3).
func (slm *StyleLayerManager) Commit() string {
	slm.mu.RLock()
	defer slm.mu.RUnlock()

	var parts []string
	for _, name := range slm.order {
		if css := slm.layers[name]; css != "" {
			parts = append(parts, css)
		}
	}
	composed := strings.Join(parts, "\n\n")
	if slm.sink != nil {
		slm.sink.SetText(composed)
	}
	return composed
}

// normalizeSelectorID normalizes a caller-supplied item id with NFC before it
// is embedded in a generated CSS selector, the same defensive normalization
// format_utility.go applies to display text before rendering (SPEC_FULL.md §12).
// It also escapes characters CSS identifiers cannot contain unescaped.
func normalizeSelectorID(id string) string {
	normalized := norm.NFC.String(id)
	var b strings.Builder
	for _, r := range normalized {
		switch {
		case r == '_' || r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		default:
			b.WriteString(`\`)
			b.WriteRune(r)
		}
	}
	return b.String()
}
