package registration

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/math/f64"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/omr-tools/internal/structure"
)

// Kind classifies a Transform by the number of markers that produced it.
type Kind int

const (
	// Identity leaves the page untouched.
	Identity Kind = iota
	// Translation shifts the page by the displacement of the first marker.
	Translation
	// Similarity adds rotation and uniform scale from the second marker.
	Similarity
)

func (k Kind) String() string {
	switch k {
	case Translation:
		return "translation"
	case Similarity:
		return "similarity"
	}
	return "identity"
}

// Transform maps points of a scanned page onto the reference sheet.
//
// DX and DY hold the displacement of the first marker (located minus
// reference); the matrix undoes it. Angle is the rotation of the scanned
// marker pair relative to the reference pair in radians, and Scale the ratio
// of the reference distance to the scanned distance.
type Transform struct {
	Kind   Kind
	DX, DY float64
	Angle  float64
	Scale  float64

	m f64.Aff3
}

// IdentityTransform returns the transform that leaves pages unchanged.
func IdentityTransform() Transform {
	return Transform{Kind: Identity, Scale: 1, m: f64.Aff3{1, 0, 0, 0, 1, 0}}
}

// Locator reports where a marker was found on a page.
type Locator func(m *structure.RegistrationMarker) (image.Point, bool)

// ComputeTransform derives the page transform from the structure's markers.
//
// With no markers, or when the first marker was not located, the identity is
// returned. With only the first marker located the result is a translation.
// With both located, the rotation and scale of the marker pair are added,
// anchored at the first marker's reference position. A degenerate scanned
// pair (both markers at the same point) falls back to translation.
func ComputeTransform(markers []*structure.RegistrationMarker, located Locator) Transform {
	if len(markers) == 0 {
		return IdentityTransform()
	}
	ref1 := markers[0].Point()
	found1, ok := located(markers[0])
	if !ok {
		return IdentityTransform()
	}
	tx := float64(found1.X - ref1.X)
	ty := float64(found1.Y - ref1.Y)

	t := Transform{Kind: Translation, DX: tx, DY: ty, Scale: 1}
	t.m = toAff3(translation(-tx, -ty))

	if len(markers) < 2 {
		return t
	}
	found2, ok := located(markers[1])
	if !ok {
		return t
	}
	ref2 := markers[1].Point()

	refDX, refDY := float64(ref2.X-ref1.X), float64(ref2.Y-ref1.Y)
	foundDX, foundDY := float64(found2.X-found1.X), float64(found2.Y-found1.Y)
	foundLen := math.Hypot(foundDX, foundDY)
	if foundLen == 0 {
		return t
	}

	t.Kind = Similarity
	t.Angle = math.Atan2(foundDY, foundDX) - math.Atan2(refDY, refDX)
	t.Scale = math.Hypot(refDX, refDY) / foundLen

	// Applied right to left: move the reference anchor to the origin, rotate,
	// scale, then move to the anchor minus the marker displacement.
	t.m = toAff3(compose(
		translation(float64(ref1.X)-tx, float64(ref1.Y)-ty),
		scaling(t.Scale),
		rotation(-t.Angle),
		translation(-float64(ref1.X), -float64(ref1.Y)),
	))
	return t
}

// Matrix returns the page-to-reference affine matrix in x/image row-major
// form: x' = m[0]*x + m[1]*y + m[2], y' = m[3]*x + m[4]*y + m[5].
func (t Transform) Matrix() f64.Aff3 {
	if t.m == (f64.Aff3{}) {
		return IdentityTransform().m
	}
	return t.m
}

// Apply maps a page point onto the reference sheet.
func (t Transform) Apply(x, y float64) (float64, float64) {
	m := t.Matrix()
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

// Invert returns the matrix mapping reference points back onto the page.
func (t Transform) Invert() (f64.Aff3, error) {
	var inv mat.Dense
	if err := inv.Inverse(fromAff3(t.Matrix())); err != nil {
		return f64.Aff3{}, fmt.Errorf("transform is not invertible: %w", err)
	}
	return toAff3(&inv), nil
}

// Degrees returns Angle in degrees.
func (t Transform) Degrees() float64 { return t.Angle * 180 / math.Pi }

func (t Transform) String() string {
	switch t.Kind {
	case Translation:
		return fmt.Sprintf("translation(%+.0f,%+.0f)", t.DX, t.DY)
	case Similarity:
		return fmt.Sprintf("similarity(%+.0f,%+.0f rot %.2f° scale %.4f)", t.DX, t.DY, t.Degrees(), t.Scale)
	}
	return "identity"
}

func translation(tx, ty float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1, 0, tx,
		0, 1, ty,
		0, 0, 1,
	})
}

func scaling(s float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		s, 0, 0,
		0, s, 0,
		0, 0, 1,
	})
}

func rotation(theta float64) *mat.Dense {
	sin, cos := math.Sincos(theta)
	return mat.NewDense(3, 3, []float64{
		cos, -sin, 0,
		sin, cos, 0,
		0, 0, 1,
	})
}

// compose multiplies ms left to right, so the last matrix is applied first.
func compose(ms ...*mat.Dense) *mat.Dense {
	out := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	for _, m := range ms {
		var p mat.Dense
		p.Mul(out, m)
		out = &p
	}
	return out
}

func toAff3(m mat.Matrix) f64.Aff3 {
	return f64.Aff3{
		m.At(0, 0), m.At(0, 1), m.At(0, 2),
		m.At(1, 0), m.At(1, 1), m.At(1, 2),
	}
}

func fromAff3(a f64.Aff3) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		a[0], a[1], a[2],
		a[3], a[4], a[5],
		0, 0, 1,
	})
}
