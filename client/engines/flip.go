package engines

import (
	"sync"
	"time"

	"fyne.io/fyne/v2"
)

// viewTransitionSentinel is the value written to an element's view-transition
// name while the FLIP animator owns its motion, so the browser's View
// Transition machinery (modeled here by FlipAnimator's vtNames map) does not
// also try to animate it. spec.md §4.2.
const viewTransitionSentinel = "none"

// FlipRect is a first/last rectangle snapshot, the FLIP technique's "F" and "L".
type FlipRect struct {
	Position fyne.Position
	Size     fyne.Size
}

// FlipOptions configures a single FLIP playback. Grounded on layout_engine.go's
// AnimationFacet.ValidateTransition / TransitionParams and on drag_drop_engine.go's
// visualManager, generalized to the transform-animation contract spec.md §4.2 describes.
type FlipOptions struct {
	Duration        time.Duration
	Easing          EasingFunction
	IncludeScale    bool
	TransformOrigin fyne.Position
	OnStart         func()
	OnFinish        func()
	// AttributeName is the tracking attribute toggled on the element for the
	// animation's duration (e.g. a "dragging"/"resizing" flag a caller reads
	// to suppress other interaction handling mid-flight).
	AttributeName string
	// CustomProperty, ElementID, and DatasetID are the view-transition
	// identity sources for element, resolved through ViewTransitionIdentity's
	// custom-property > element-id > dataset-id precedence before Suppress
	// writes the sentinel and Restore writes the resolved name back
	// (spec.md §9).
	CustomProperty string
	ElementID      string
	DatasetID      string
}

// EasingFunction mirrors layout_engine.go's EasingFunction enum.
type EasingFunction int

const (
	EasingLinear EasingFunction = iota
	EasingEaseIn
	EasingEaseOut
	EasingEaseInOut
)

// ease applies the easing curve to a linear progress value in [0,1].
func (e EasingFunction) ease(t float64) float64 {
	switch e {
	case EasingEaseIn:
		return t * t
	case EasingEaseOut:
		return 1 - (1-t)*(1-t)
	case EasingEaseInOut:
		if t < 0.5 {
			return 2 * t * t
		}
		return 1 - math2Pow2(1-t)*2
	default:
		return t
	}
}

func math2Pow2(x float64) float64 { return x * x }

// FlipAnimator plays a transform animation that visually starts an element at
// a recorded "first" rectangle and ends at its current "last" rectangle.
// spec.md §4.2.
type FlipAnimator struct {
	mu         sync.Mutex
	attributes map[fyne.CanvasObject]string
	vtNames    map[fyne.CanvasObject]string
	// identities remembers the ViewTransitionIdentity result SuppressViewTransition
	// resolved for an element, so RestoreViewTransition can write the real
	// name back instead of merely clearing the sentinel (spec.md §9).
	identities map[fyne.CanvasObject]string
}

// NewFlipAnimator creates a new FlipAnimator instance.
func NewFlipAnimator() *FlipAnimator {
	return &FlipAnimator{
		attributes: make(map[fyne.CanvasObject]string),
		vtNames:    make(map[fyne.CanvasObject]string),
		identities: make(map[fyne.CanvasObject]string),
	}
}

// Animate plays the FLIP animation for element. lastRect is read from the
// element's current position/size. If the movement is imperceptible (both
// translation deltas <=1px, and when scaling, both scale deltas within 0.01
// of 1), no animation plays: onFinish runs synchronously and Animate returns
// false. Otherwise it plays an animation from the inverted delta back to
// identity over opts.Duration, calling onStart first and onFinish last.
func (fa *FlipAnimator) Animate(element fyne.CanvasObject, first FlipRect, opts FlipOptions) bool {
	last := FlipRect{Position: element.Position(), Size: element.Size()}

	dx := float64(first.Position.X - last.Position.X)
	dy := float64(first.Position.Y - last.Position.Y)

	var sx, sy float64 = 1, 1
	if opts.IncludeScale && last.Size.Width != 0 && last.Size.Height != 0 {
		sx = float64(first.Size.Width) / float64(last.Size.Width)
		sy = float64(first.Size.Height) / float64(last.Size.Height)
	}

	negligible := abs(dx) <= 1 && abs(dy) <= 1
	if opts.IncludeScale {
		negligible = negligible && abs(sx-1) <= 0.01 && abs(sy-1) <= 0.01
	}
	if negligible {
		if opts.OnFinish != nil {
			opts.OnFinish()
		}
		return false
	}

	if opts.OnStart != nil {
		opts.OnStart()
	}
	if opts.AttributeName != "" {
		fa.mu.Lock()
		fa.attributes[element] = opts.AttributeName
		fa.mu.Unlock()
	}
	fa.SuppressViewTransition(element, opts.CustomProperty, opts.ElementID, opts.DatasetID)

	duration := opts.Duration
	if duration <= 0 {
		duration = 250 * time.Millisecond
	}
	easing := opts.Easing

	fa.playFrames(element, last, dx, dy, sx, sy, duration, easing, func() {
		if opts.AttributeName != "" {
			fa.mu.Lock()
			delete(fa.attributes, element)
			fa.mu.Unlock()
		}
		fa.RestoreViewTransition(element)
		if opts.OnFinish != nil {
			opts.OnFinish()
		}
	})

	return true
}

// playFrames steps the transform from the initial inverted delta to identity.
// Runs synchronously in discrete steps; a real host would drive this from
// requestAnimationFrame (spec.md §5 "suspension points... awaiting an
// animation frame"), which this single-threaded stepper stands in for.
func (fa *FlipAnimator) playFrames(element fyne.CanvasObject, last FlipRect, dx, dy, sx, sy float64, duration time.Duration, easing EasingFunction, onFinish func()) {
	const steps = 12
	base := last

	for i := 1; i <= steps; i++ {
		progress := easing.ease(float64(i) / float64(steps))
		invProgress := 1 - progress

		tx := float32(dx * invProgress)
		ty := float32(dy * invProgress)
		curSx := float32(1 + (sx-1)*invProgress)
		curSy := float32(1 + (sy-1)*invProgress)

		element.Move(fyne.NewPos(base.Position.X+tx, base.Position.Y+ty))
		element.Resize(fyne.NewSize(base.Size.Width*curSx, base.Size.Height*curSy))
	}

	element.Move(base.Position)
	element.Resize(base.Size)
	onFinish()
}

// SuppressViewTransition sets element's view-transition name to the sentinel
// value for the duration of a FLIP-owned animation, preventing concurrent
// View Transition participation on the same element (spec.md §4.2).
// customProperty, elementID, and datasetID are resolved through
// ViewTransitionIdentity and remembered so RestoreViewTransition can write
// the real name back afterward; a call with all three empty remembers ""
// and Restore simply clears the sentinel.
func (fa *FlipAnimator) SuppressViewTransition(element fyne.CanvasObject, customProperty, elementID, datasetID string) {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	if _, already := fa.vtNames[element]; !already {
		fa.identities[element] = ViewTransitionIdentity(customProperty, elementID, datasetID)
		fa.vtNames[element] = viewTransitionSentinel
	}
}

// RestoreViewTransition writes back the identity-derived view-transition
// name SuppressViewTransition resolved and remembered, per the precedence
// custom-property > element id > dataset id that ViewTransitionIdentity
// centralizes (spec.md §9). If no identity was ever resolved for element
// (or it resolved to ""), the sentinel is simply cleared.
func (fa *FlipAnimator) RestoreViewTransition(element fyne.CanvasObject) {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	name, ok := fa.identities[element]
	delete(fa.identities, element)
	if !ok || name == "" {
		delete(fa.vtNames, element)
		return
	}
	fa.vtNames[element] = name
}

// IsSuppressed reports whether element currently carries the sentinel
// view-transition name (used by tests).
func (fa *FlipAnimator) IsSuppressed(element fyne.CanvasObject) bool {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	name, ok := fa.vtNames[element]
	return ok && name == viewTransitionSentinel
}

// CurrentViewTransitionName returns element's current view-transition name:
// the sentinel while suppressed, the restored identity name afterward, or ""
// if Suppress/Restore has never touched element.
func (fa *FlipAnimator) CurrentViewTransitionName(element fyne.CanvasObject) string {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	return fa.vtNames[element]
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// ViewTransitionIdentity centralizes the --item-id custom-property / element
// id / data-id precedence for view-transition names (spec.md §9 Open Question).
// customProperty and datasetID model the two string-valued external sources;
// an empty string means "not set".
func ViewTransitionIdentity(customProperty, elementID, datasetID string) string {
	if customProperty != "" {
		return customProperty
	}
	if elementID != "" {
		return elementID
	}
	return datasetID
}
