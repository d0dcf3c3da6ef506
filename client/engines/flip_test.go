package engines

import (
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUnit_FlipAnimator_NegligibleMovementSkipsAnimation covers spec.md §4.2's
// "if both translation magnitudes are <=1px... do not animate" clause.
func TestUnit_FlipAnimator_NegligibleMovementSkipsAnimation(t *testing.T) {
	fa := NewFlipAnimator()
	el := canvas.NewRectangle(nil)
	el.Move(fyne.NewPos(10, 10))
	el.Resize(fyne.NewSize(50, 50))

	var finished bool
	played := fa.Animate(el, FlipRect{Position: fyne.NewPos(10.5, 10.2), Size: fyne.NewSize(50, 50)}, FlipOptions{
		OnFinish: func() { finished = true },
	})

	assert.False(t, played)
	assert.True(t, finished)
	assert.False(t, fa.IsSuppressed(el))
}

// TestUnit_FlipAnimator_PlaysAndEndsAtLastRect covers the "play keyframes...
// to identity" contract: the element ends up back at its last rect.
func TestUnit_FlipAnimator_PlaysAndEndsAtLastRect(t *testing.T) {
	fa := NewFlipAnimator()
	el := canvas.NewRectangle(nil)
	el.Move(fyne.NewPos(100, 100))
	el.Resize(fyne.NewSize(50, 50))
	last := FlipRect{Position: el.Position(), Size: el.Size()}

	var started, finished bool
	played := fa.Animate(el, FlipRect{Position: fyne.NewPos(0, 0), Size: fyne.NewSize(50, 50)}, FlipOptions{
		OnStart:  func() { started = true },
		OnFinish: func() { finished = true },
	})

	require.True(t, played)
	assert.True(t, started)
	assert.True(t, finished)
	assert.Equal(t, last.Position, el.Position())
	assert.Equal(t, last.Size, el.Size())
	assert.False(t, fa.IsSuppressed(el), "suppression must be cleared by onFinish")
}

func TestUnit_FlipAnimator_IncludeScaleNegligibleWithinTolerance(t *testing.T) {
	fa := NewFlipAnimator()
	el := canvas.NewRectangle(nil)
	el.Move(fyne.NewPos(0, 0))
	el.Resize(fyne.NewSize(100, 100))

	var finished bool
	played := fa.Animate(el, FlipRect{Position: fyne.NewPos(0, 0), Size: fyne.NewSize(100.5, 99.6)}, FlipOptions{
		IncludeScale: true,
		OnFinish:     func() { finished = true },
	})

	assert.False(t, played)
	assert.True(t, finished)
}

func TestUnit_FlipAnimator_SuppressRestoreViewTransition(t *testing.T) {
	fa := NewFlipAnimator()
	el := canvas.NewRectangle(nil)

	assert.False(t, fa.IsSuppressed(el))
	fa.SuppressViewTransition(el, "", "el-id", "data-id")
	assert.True(t, fa.IsSuppressed(el))
	fa.RestoreViewTransition(el)
	assert.False(t, fa.IsSuppressed(el))
}

// TestUnit_FlipAnimator_RestoreWritesBackResolvedIdentity covers spec.md §9's
// centralized view-transition identity precedence actually taking effect:
// RestoreViewTransition writes back the name ViewTransitionIdentity resolved
// at Suppress time, rather than merely clearing the sentinel.
func TestUnit_FlipAnimator_RestoreWritesBackResolvedIdentity(t *testing.T) {
	fa := NewFlipAnimator()
	el := canvas.NewRectangle(nil)

	fa.SuppressViewTransition(el, "custom-name", "el-id", "data-id")
	assert.Equal(t, viewTransitionSentinel, fa.CurrentViewTransitionName(el))

	fa.RestoreViewTransition(el)
	assert.Equal(t, "custom-name", fa.CurrentViewTransitionName(el))
	assert.False(t, fa.IsSuppressed(el))
}

// TestUnit_FlipAnimator_RestoreWithNoIdentityClearsSentinel covers the case
// where no identity source resolves to anything (all three inputs empty).
func TestUnit_FlipAnimator_RestoreWithNoIdentityClearsSentinel(t *testing.T) {
	fa := NewFlipAnimator()
	el := canvas.NewRectangle(nil)

	fa.SuppressViewTransition(el, "", "", "")
	fa.RestoreViewTransition(el)
	assert.Equal(t, "", fa.CurrentViewTransitionName(el))
}

// TestUnit_ViewTransitionIdentity_Precedence covers spec.md §9's centralized
// custom-property > element-id > dataset-id precedence.
func TestUnit_ViewTransitionIdentity_Precedence(t *testing.T) {
	assert.Equal(t, "custom", ViewTransitionIdentity("custom", "elID", "dataID"))
	assert.Equal(t, "elID", ViewTransitionIdentity("", "elID", "dataID"))
	assert.Equal(t, "dataID", ViewTransitionIdentity("", "", "dataID"))
	assert.Equal(t, "", ViewTransitionIdentity("", "", ""))
}
