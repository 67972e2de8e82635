package cloud

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/cellwalk/geometry"
	"github.com/pthm-cable/cellwalk/systems"
)

// enzymePair builds an enzyme at the origin that moves one micrometer along
// +x every step, and a stationary substrate cloud holding the given sites.
func enzymePair(t *testing.T, params ReactionParams, sites ...r3.Vec) (*Cloud, *Cloud, *Reactive) {
	t.Helper()
	box := testBox(t, 10)
	// sqrt(D*dt) = 0.1, so a sample of 10 is a 1 um step.
	return reactivePair(t, box, box, 10, params, sites...)
}

// reactivePair puts the enzyme at the origin of enzymeShape, stepping
// step/10 um along +x, and the substrate sites in substrateShape.
func reactivePair(t *testing.T, enzymeShape, substrateShape geometry.Shape, step float64, params ReactionParams, sites ...r3.Vec) (*Cloud, *Cloud, *Reactive) {
	t.Helper()
	enzyme := newCloud(t, "Enzyme", enzymeShape, 1, &scripted{RandomSource: systems.NewRandomSource(11), axis: []float64{step, 0, 0}})
	if _, err := enzyme.Add(r3.Vec{}); err != nil {
		t.Fatal(err)
	}

	substrate := newCloud(t, "Substrate", substrateShape, 0, systems.NewRandomSource(12))
	if err := substrate.Inject(0, Placement{Method: MethodPositions, Positions: sites}); err != nil {
		t.Fatal(err)
	}

	r, err := NewReactive(enzyme, substrate, params)
	if err != nil {
		t.Fatalf("NewReactive: %v", err)
	}
	return enzyme, substrate, r
}

func reactionParams(sight float64) ReactionParams {
	p := DefaultReactionParams()
	p.Sight = sight
	return p
}

// clusterResidence is the residence time after k captures for a cluster
// spread over a cloud of the given volume.
func clusterResidence(p ReactionParams, k int, wv, volume float64) float64 {
	captured := systems.Concentration(k, wv)
	cluster := p.Focus * volume / wv
	return (p.Km + captured) / (p.Kcat * cluster)
}

func TestCaptureDiffusionMode(t *testing.T) {
	enzyme, substrate, r := enzymePair(t, reactionParams(1), r3.Vec{X: 3.5})

	residence := r.ReactionTime() - r.SearchTime()
	if residence <= 0 {
		t.Fatalf("residence = %v, want > 0", residence)
	}
	if got := r.ResidenceTime(1); got != residence {
		t.Errorf("ResidenceTime(1) = %v, want %v", got, residence)
	}

	// Segments 0->1 and 1->2 pass too far from the site.
	mustAdvance(t, enzyme, 2)
	if r.Captured() != 0 {
		t.Errorf("captured %d before reaching the site", r.Captured())
	}
	if d := enzyme.Walkers()[0].Duration; d != 0 {
		t.Errorf("duration = %v before capture", d)
	}

	// 2->3 ends within 1 um of x=3.5.
	mustAdvance(t, enzyme, 1)
	w := enzyme.Walkers()[0]
	if r.Captured() != 1 || w.Hits.Substrate != 1 {
		t.Errorf("captured = %d, hits = %d, want 1 and 1", r.Captured(), w.Hits.Substrate)
	}
	if !near(w.Duration, residence, 1e-9) {
		t.Errorf("duration = %v, want %v", w.Duration, residence)
	}
	if !near(w.Position.X, 3, 1e-9) {
		t.Errorf("x = %v, want 3", w.Position.X)
	}

	// Constant substrate in diffusion mode is redrawn, not consumed.
	if substrate.Len() != 1 {
		t.Errorf("substrate Len = %d, want 1", substrate.Len())
	}
	if err := substrate.Validate(); err != nil {
		t.Error(err)
	}

	// Bound: the timer decays by dt per step and the enzyme stays put.
	for i := 1; i <= 5; i++ {
		mustAdvance(t, enzyme, 1)
		w = enzyme.Walkers()[0]
		if want := residence - float64(i)*enzyme.Dt(); !near(w.Duration, want, 1e-9) {
			t.Errorf("bound step %d: duration = %v, want %v", i, w.Duration, want)
		}
		if !near(w.Position.X, 3, 1e-9) {
			t.Errorf("bound step %d: x = %v, want 3", i, w.Position.X)
		}
	}
	if r.Captured() != 1 {
		t.Errorf("captured = %d while bound, want 1", r.Captured())
	}
}

func TestBoundWalkerReleasesMidStep(t *testing.T) {
	params := reactionParams(1)
	params.Constant = false
	enzyme, _, r := enzymePair(t, params, r3.Vec{X: 1.5})
	mustAdvance(t, enzyme, 1)
	if r.Captured() != 1 {
		t.Fatalf("captured = %d, want 1", r.Captured())
	}

	e := enzyme.order[0]
	_, _, _, res, _ := enzyme.mapper.Get(e)
	res.Duration = 0.004

	// 4 ms of residence then a 6 ms free step.
	mustAdvance(t, enzyme, 1)
	w := enzyme.Walkers()[0]
	if w.Duration != 0 {
		t.Errorf("duration = %v, want 0 after release", w.Duration)
	}
	if w.Position.X <= 1 {
		t.Errorf("x = %v, want > 1 after the free part of the step", w.Position.X)
	}
}

func TestCaptureClusterMode(t *testing.T) {
	params := reactionParams(1)
	params.Focus = 50
	sites := []r3.Vec{{X: 2.4, Y: 0.3, Z: 0.3}, {X: 2.4, Y: 0.6}}
	enzyme, substrate, r := enzymePair(t, params, sites...)

	wv := enzyme.Body().Volume
	for _, k := range []int{1, 2, 5} {
		want := clusterResidence(params, k, wv, enzyme.Shape().Volume())
		if got := r.ResidenceTime(k); !near(got, want, want*1e-12) {
			t.Errorf("ResidenceTime(%d) = %v, want %v", k, got, want)
		}
	}

	// 0->1 misses, 1->2 ends within sight of both sites.
	mustAdvance(t, enzyme, 2)
	w := enzyme.Walkers()[0]
	if w.Hits.Substrate != 2 {
		t.Errorf("hits = %d, want 2", w.Hits.Substrate)
	}
	if want := r.ResidenceTime(2); !near(w.Duration, want, 1e-12) {
		t.Errorf("duration = %v, want %v", w.Duration, want)
	}

	// Cluster sites stay where they are.
	for i, s := range substrate.Walkers() {
		if s.Position != sites[i] {
			t.Errorf("site %d moved to %v", i, s.Position)
		}
	}
}

// Cluster and product concentrations belong to the enzyme's own volume, so
// a small enzyme compartment next to a large substrate one must not pick up
// the substrate geometry.
func TestConcentrationsUseEnzymeVolume(t *testing.T) {
	params := reactionParams(1)
	params.Focus = 50
	small, large := testBox(t, 2), testBox(t, 10)
	// 0.3 um steps keep the enzyme clear of its 1 um half-width.
	enzyme, substrate, r := reactivePair(t, small, large, 3, params, r3.Vec{X: 0.2, Y: 0.1})

	wv := enzyme.Body().Volume
	want := clusterResidence(params, 1, wv, small.Volume())
	if got := r.ResidenceTime(1); !near(got, want, want*1e-12) {
		t.Errorf("ResidenceTime(1) = %v, want %v", got, want)
	}
	if wrong := clusterResidence(params, 1, wv, large.Volume()); near(r.ResidenceTime(1), wrong, wrong*1e-6) {
		t.Errorf("ResidenceTime(1) = %v matches the substrate volume", wrong)
	}

	mustAdvance(t, enzyme, 1)
	w := enzyme.Walkers()[0]
	if w.Hits.Substrate != 1 {
		t.Fatalf("hits = %d, want 1", w.Hits.Substrate)
	}
	if !near(w.Duration, want, want*1e-9) {
		t.Errorf("duration = %v, want %v", w.Duration, want)
	}
	if substrate.Len() != 1 {
		t.Errorf("substrate Len = %d, want 1", substrate.Len())
	}

	series := r.Collector().Product()
	if len(series) != 1 {
		t.Fatalf("len(Product) = %d, want 1", len(series))
	}
	product := systems.Concentration(1, small.Volume())
	if !near(series[0], product, product*1e-12) {
		t.Errorf("product = %v, want %v from the enzyme volume", series[0], product)
	}
}

func TestConsumedSubstrate(t *testing.T) {
	params := reactionParams(1)
	params.Constant = false
	enzyme, substrate, r := enzymePair(t, params, r3.Vec{X: 0.5, Y: 0.2}, r3.Vec{X: -3})

	mustAdvance(t, enzyme, 1)
	if r.Captured() != 1 {
		t.Errorf("captured = %d, want 1", r.Captured())
	}
	if substrate.Len() != 1 {
		t.Fatalf("substrate Len = %d, want 1", substrate.Len())
	}
	if _, ok := substrate.Position(0); ok {
		t.Error("captured site is still present")
	}
	if err := substrate.Validate(); err != nil {
		t.Error(err)
	}
}

func TestReactionOff(t *testing.T) {
	params := reactionParams(1)
	params.ReactionOn = false
	enzyme, _, r := enzymePair(t, params, r3.Vec{X: 0.5})

	mustAdvance(t, enzyme, 1)
	w := enzyme.Walkers()[0]
	if w.Hits.Substrate != 1 {
		t.Errorf("hits = %d, want 1", w.Hits.Substrate)
	}
	if w.Duration != 0 {
		t.Errorf("duration = %v, want 0 without reaction", w.Duration)
	}
	if got := r.ResidenceTime(3); got != 0 {
		t.Errorf("ResidenceTime(3) = %v, want 0", got)
	}
}

func TestSightDistanceTooSmall(t *testing.T) {
	box := testBox(t, 10)
	enzyme := newCloud(t, "Enzyme", box, 1, systems.NewRandomSource(1))
	if _, err := enzyme.Add(r3.Vec{}); err != nil {
		t.Fatal(err)
	}
	substrate := newCloud(t, "Substrate", box, 0, systems.NewRandomSource(2))
	if _, err := substrate.Add(r3.Vec{X: 1}); err != nil {
		t.Fatal(err)
	}

	_, err := NewReactive(enzyme, substrate, reactionParams(1e-6))
	if !errors.Is(err, ErrSightDistance) {
		t.Errorf("NewReactive = %v, want ErrSightDistance", err)
	}
	if enzyme.Reactive() != nil {
		t.Error("failed attach left a reaction on the cloud")
	}
}

func TestNewReactiveRejectsBadPartners(t *testing.T) {
	box := testBox(t, 10)
	enzyme := newCloud(t, "Enzyme", box, 1, systems.NewRandomSource(1))
	if _, err := enzyme.Add(r3.Vec{}); err != nil {
		t.Fatal(err)
	}

	if _, err := NewReactive(enzyme, enzyme, reactionParams(1)); err == nil {
		t.Error("cloud accepted itself as substrate")
	}
	if _, err := NewReactive(enzyme, nil, reactionParams(1)); err == nil {
		t.Error("nil substrate accepted")
	}
	empty := newCloud(t, "Substrate", box, 0, systems.NewRandomSource(2))
	if _, err := NewReactive(enzyme, empty, reactionParams(1)); err == nil {
		t.Error("diffusion mode accepted an empty substrate")
	}
}

func TestProductSeries(t *testing.T) {
	enzyme, _, r := enzymePair(t, reactionParams(1), r3.Vec{X: 0.5})

	mustAdvance(t, enzyme, 4)
	series := r.Collector().Product()
	if len(series) != 4 {
		t.Fatalf("len(Product) = %d, want 4", len(series))
	}
	want := systems.Concentration(1, enzyme.Shape().Volume())
	for i, v := range series {
		if !near(v, want, 1e-12) {
			t.Errorf("product[%d] = %v, want %v", i, v, want)
		}
	}

	m := r.Metrics("run")
	if m.TotalProduct != 1 || m.Bound != 1 {
		t.Errorf("product/bound = %d/%d, want 1/1", m.TotalProduct, m.Bound)
	}
	if m.Species != "Enzyme" {
		t.Errorf("species = %q, want Enzyme", m.Species)
	}
	if !near(m.Rate, want/enzyme.Time(), 1e-9) {
		t.Errorf("rate = %v, want %v", m.Rate, want/enzyme.Time())
	}
}

func TestWithinSight(t *testing.T) {
	p := r3.Vec{}
	dr := r3.Vec{X: 2}
	tests := []struct {
		name string
		q    r3.Vec
		want bool
	}{
		{"on the segment", r3.Vec{X: 1}, true},
		{"beside the segment", r3.Vec{X: 1, Y: 0.5}, true},
		{"too far beside", r3.Vec{X: 1, Y: 0.6}, false},
		{"just past the end", r3.Vec{X: 2.4}, true},
		{"past the end allowance", r3.Vec{X: 2.6}, false},
		{"behind the start", r3.Vec{X: -0.1}, false},
		{"at the start", r3.Vec{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WithinSight(p, dr, tt.q, 0.5); got != tt.want {
				t.Errorf("WithinSight(%v) = %v, want %v", tt.q, got, tt.want)
			}
		})
	}
	if WithinSight(p, r3.Vec{}, p, 1) {
		t.Error("zero-length segment reported a capture")
	}
}
