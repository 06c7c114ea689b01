package targeting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Memati8383/AI-Triggerbot/internal/vision"
)

// centred returns a square detection of the given side centred on (cx, cy).
func centred(cx, cy, side, conf float64) vision.Detection {
	h := side / 2
	return vision.Detection{X1: cx - h, Y1: cy - h, X2: cx + h, Y2: cy + h, Confidence: conf}
}

func TestMode_ParseAndCycle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"closest", Closest, true},
		{"highest_conf", HighestConfidence, true},
		{"largest", Largest, true},
		{"random", Closest, false},
		{"", Closest, false},
	}
	for _, tt := range tests {
		got, ok := ParseMode(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}

	assert.Equal(t, HighestConfidence, Closest.Next())
	assert.Equal(t, Largest, HighestConfidence.Next())
	assert.Equal(t, Closest, Largest.Next())
	assert.Equal(t, "highest_conf", HighestConfidence.String())
	assert.Equal(t, "Mode(7)", Mode(7).String())
}

func TestSelect_Modes(t *testing.T) {
	t.Parallel()
	const center = 200.0

	tests := []struct {
		name string
		mode Mode
		dets []vision.Detection
		want int
	}{
		{
			name: "closest picks smallest distance",
			mode: Closest,
			dets: []vision.Detection{
				centred(210, 200, 20, 0.5),
				centred(250, 200, 20, 0.5),
				centred(300, 200, 20, 0.5),
			},
			want: 0,
		},
		{
			name: "highest_conf picks best score",
			mode: HighestConfidence,
			dets: []vision.Detection{
				centred(210, 200, 20, 0.3),
				centred(220, 200, 20, 0.9),
				centred(230, 200, 20, 0.5),
			},
			want: 1,
		},
		{
			name: "largest picks biggest area",
			mode: Largest,
			dets: []vision.Detection{
				centred(210, 200, 10, 0.5),           // area 100
				{X1: 210, Y1: 190, X2: 260, Y2: 200}, // area 500
				{X1: 190, Y1: 190, X2: 195, Y2: 200}, // area 50
			},
			want: 1,
		},
		{
			name: "unknown mode falls back to closest",
			mode: Mode(42),
			dets: []vision.Detection{
				centred(260, 200, 20, 0.9),
				centred(205, 200, 20, 0.1),
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := NewPrioritizer()
			sel, ok := p.Select(tt.dets, center, tt.mode, 180, 0)
			require.True(t, ok)
			assert.Equal(t, tt.dets[tt.want], sel.Detection)
		})
	}
}

func TestSelect_Filters(t *testing.T) {
	t.Parallel()
	p := NewPrioritizer()

	far := centred(200, 390, 100, 0.99)  // distance 190 > 180
	tiny := centred(201, 200, 3, 0.99)   // area 9 < 15
	valid := centred(250, 200, 20, 0.10) // distance 50, area 400

	for _, mode := range Modes() {
		sel, ok := p.Select([]vision.Detection{far, tiny, valid}, 200, mode, 180, 15)
		require.True(t, ok, mode.String())
		assert.Equal(t, valid, sel.Detection, mode.String())
	}

	_, ok := p.Select([]vision.Detection{far, tiny}, 200, Closest, 180, 15)
	assert.False(t, ok)

	_, ok = p.Select(nil, 200, Closest, 180, 15)
	assert.False(t, ok)
}

func TestSelect_BoundaryInclusive(t *testing.T) {
	t.Parallel()
	p := NewPrioritizer()

	// Distance exactly max and area exactly min both survive.
	d := vision.Detection{X1: 378, Y1: 198, X2: 382, Y2: 202} // centre (380,200), area 16
	_, ok := p.Select([]vision.Detection{d}, 200, Closest, 180, 16)
	assert.True(t, ok)
}

func TestSelect_ResultFields(t *testing.T) {
	t.Parallel()
	p := NewPrioritizer()
	d := centred(230, 240, 20, 0.8)

	sel, ok := p.Select([]vision.Detection{d}, 200, Closest, 180, 15)
	require.True(t, ok)
	assert.Equal(t, 230.0, sel.AimX)
	assert.Equal(t, 240.0, sel.AimY)
	assert.InDelta(t, 50.0, sel.Distance, 1e-9)

	last, ok := p.Last()
	require.True(t, ok)
	assert.Equal(t, sel, last)
}

func TestSelect_TiesKeepFirst(t *testing.T) {
	t.Parallel()
	p := NewPrioritizer()
	a := centred(220, 200, 20, 0.5)
	b := centred(180, 200, 20, 0.5)

	sel, ok := p.Select([]vision.Detection{a, b}, 200, Closest, 180, 0)
	require.True(t, ok)
	assert.Equal(t, a, sel.Detection)

	sel, ok = p.Select([]vision.Detection{b, a}, 200, HighestConfidence, 180, 0)
	require.True(t, ok)
	assert.Equal(t, b, sel.Detection)
}

func TestSelect_Idempotent(t *testing.T) {
	t.Parallel()
	p := NewPrioritizer()
	dets := []vision.Detection{centred(230, 200, 20, 0.4), centred(190, 210, 30, 0.6), centred(260, 260, 40, 0.9)}

	for _, mode := range Modes() {
		first, ok1 := p.Select(dets, 200, mode, 180, 15)
		second, ok2 := p.Select(dets, 200, mode, 180, 15)
		assert.Equal(t, ok1, ok2)
		assert.Equal(t, first, second, mode.String())
	}
}

func TestLastDoesNotInfluenceSelection(t *testing.T) {
	t.Parallel()
	p := NewPrioritizer()
	a := centred(205, 200, 20, 0.5)
	b := centred(250, 200, 20, 0.5)

	sel, _ := p.Select([]vision.Detection{a, b}, 200, Closest, 180, 0)
	assert.Equal(t, a, sel.Detection)

	// a moves away; b is now closest and is chosen despite a being last.
	moved := centred(300, 200, 20, 0.5)
	sel, _ = p.Select([]vision.Detection{moved, b}, 200, Closest, 180, 0)
	assert.Equal(t, b, sel.Detection)

	// A miss keeps the last selection for reporting.
	_, ok := p.Select(nil, 200, Closest, 180, 0)
	assert.False(t, ok)
	last, ok := p.Last()
	assert.True(t, ok)
	assert.Equal(t, b, last.Detection)

	p.Reset()
	_, ok = p.Last()
	assert.False(t, ok)
}

func TestInTolerance(t *testing.T) {
	t.Parallel()
	assert.True(t, InTolerance(39, 40))
	assert.True(t, InTolerance(40, 40))
	assert.False(t, InTolerance(41, 40))
}
