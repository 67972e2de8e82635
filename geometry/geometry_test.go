package geometry

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// must unwraps a constructor result for fixtures known to be valid.
func must[S Shape](s S, err error) S {
	if err != nil {
		panic(err)
	}
	return s
}

func testShapes(t *testing.T) map[string]Shape {
	t.Helper()
	return map[string]Shape{
		"sphere":     must(NewSphere(2, 0.01, RegionVolume, DefaultBand())),
		"box":        must(NewBox(r3.Vec{X: 10, Y: 6, Z: 4}, 0.01, RegionVolume, DefaultBand())),
		"cell":       must(NewCell(6, 1, 0.005, RegionVolume, DefaultBand())),
		"cell shell": must(NewCell(6, 1, 0.005, RegionSurface, Band{Width: 0.2, Depth: 0.3})),
	}
}

func TestParseRegion(t *testing.T) {
	tests := []struct {
		in   string
		want Region
	}{
		{"", RegionVolume},
		{"Vol", RegionVolume},
		{"Random", RegionVolume},
		{"surface", RegionSurface},
		{"Sur", RegionSurface},
		{"disk", RegionDisk},
		{"Ring", RegionRing},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRegion(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ParseRegion(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	if _, err := ParseRegion("torus"); err == nil {
		t.Error("ParseRegion accepted an unknown region")
	}
}

func TestSphereErosion(t *testing.T) {
	s := must(NewSphere(1, 0.1, RegionVolume, DefaultBand()))

	if !s.Inside(r3.Vec{X: 0.89}) {
		t.Error("x=0.89 should be inside the eroded sphere")
	}
	if s.Inside(r3.Vec{X: 0.91}) {
		t.Error("center closer than a particle radius to the wall counted as inside")
	}
	if d := s.SurfaceDistance(r3.Vec{Y: 0.5}); !near(d, 0.4, 1e-12) {
		t.Errorf("SurfaceDistance = %v, want 0.4", d)
	}

	if _, err := NewSphere(1, 1, RegionVolume, DefaultBand()); err == nil {
		t.Error("particle as large as the sphere accepted")
	}
}

func TestNormalOutward(t *testing.T) {
	s := must(NewSphere(1, 0, RegionVolume, DefaultBand()))
	if n := s.Normal(r3.Vec{Y: 0.999}); !near(n.Y, 1, 1e-12) {
		t.Errorf("sphere normal = %v, want +y", n)
	}
	if n := s.Normal(r3.Vec{Y: 0.5}); n != (r3.Vec{}) {
		t.Errorf("normal away from the wall = %v, want zero", n)
	}
	if n := s.Normal(r3.Vec{}); n != (r3.Vec{}) {
		t.Errorf("normal at the center = %v, want zero", n)
	}

	b := must(NewBox(r3.Vec{X: 2, Y: 2, Z: 2}, 0, RegionVolume, DefaultBand()))
	if n := b.Normal(r3.Vec{X: -1, Y: 0.2}); n != (r3.Vec{X: -1}) {
		t.Errorf("box face normal = %v, want -x", n)
	}
	corner := b.Normal(r3.Vec{X: 1, Y: 1, Z: 0})
	if !near(corner.X, 1/math.Sqrt2, 1e-12) || !near(corner.Y, 1/math.Sqrt2, 1e-12) {
		t.Errorf("box edge normal = %v, want the xy diagonal", corner)
	}

	c := must(NewCell(4, 1, 0, RegionVolume, DefaultBand()))
	if n := c.Normal(r3.Vec{X: 1.5, Z: 1}); n != (r3.Vec{Z: 1}) {
		t.Errorf("cylinder normal = %v, want +z", n)
	}
	if tip := c.Normal(r3.Vec{X: 3}); !near(tip.X, 1, 1e-12) {
		t.Errorf("cap normal = %v, want +x", tip)
	}
}

func TestTimeToSurface(t *testing.T) {
	s := must(NewSphere(1, 0, RegionVolume, DefaultBand()))

	t.Run("no crossing", func(t *testing.T) {
		got, err := TimeToSurface(s, r3.Vec{}, r3.Vec{X: 0.5})
		if err != nil {
			t.Fatal(err)
		}
		if got != NoCrossing {
			t.Errorf("TimeToSurface = %v, want NoCrossing", got)
		}
	})

	t.Run("outside start", func(t *testing.T) {
		_, err := TimeToSurface(s, r3.Vec{X: 2}, r3.Vec{X: 0.5})
		if !errors.Is(err, ErrOutside) {
			t.Errorf("err = %v, want ErrOutside", err)
		}
	})

	t.Run("precision", func(t *testing.T) {
		p := r3.Vec{X: 0.2}
		dr := r3.Vec{X: 1.6}
		got, err := TimeToSurface(s, p, dr)
		if err != nil {
			t.Fatal(err)
		}
		if !near(got, 0.5, 2.0/1024) {
			t.Errorf("TimeToSurface = %v, want 0.5", got)
		}
		if !s.Inside(r3.Add(p, r3.Scale(got, dr))) {
			t.Error("returned fraction lands outside")
		}

		again, err := TimeToSurface(s, p, dr)
		if err != nil {
			t.Fatal(err)
		}
		if again != got {
			t.Errorf("repeat = %v, want %v", again, got)
		}
	})

	t.Run("scaled step", func(t *testing.T) {
		got, err := TimeToSurface(s, r3.Vec{}, r3.Vec{Z: 4})
		if err != nil {
			t.Fatal(err)
		}
		if !near(got, 0.25, 2.0/1024) {
			t.Errorf("TimeToSurface = %v, want 0.25", got)
		}
	})
}

func TestReflectMirrorLaw(t *testing.T) {
	b := must(NewBox(r3.Vec{X: 10, Y: 10, Z: 10}, 0, RegionVolume, DefaultBand()))

	t.Run("on the face", func(t *testing.T) {
		p := r3.Vec{X: 5}
		dr := r3.Vec{X: 1, Y: 0.5}
		res, err := Reflect(b, p, dr, 0)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Reflected {
			t.Error("step off the face not reflected")
		}
		want := r3.Vec{X: -dr.X, Y: dr.Y, Z: dr.Z}
		if r3.Norm(r3.Sub(res.Step, want)) > 1e-12 {
			t.Errorf("step = %v, want %v", res.Step, want)
		}
	})

	for _, face := range []r3.Vec{{X: 1}, {X: -1}, {Y: 1}, {Z: -1}} {
		t.Run(fmt.Sprint("mid step ", face), func(t *testing.T) {
			skew := r3.Vec{X: 0.3, Y: 0.3, Z: 0.3}
			tangent := r3.Sub(skew, r3.Scale(r3.Dot(skew, face), face))
			p := r3.Scale(4, face)
			dr := r3.Add(r3.Scale(2, face), tangent)
			tt, err := TimeToSurface(b, p, dr)
			if err != nil {
				t.Fatal(err)
			}

			res, err := Reflect(b, p, dr, tt)
			if err != nil {
				t.Fatal(err)
			}
			end := r3.Add(p, res.Step)
			if !b.Inside(end) {
				t.Errorf("end %v is outside", end)
			}
			// the walker ends one unit back inside the face it hit
			if d := r3.Dot(end, face); !near(d, 4, 0.01) {
				t.Errorf("depth along the face normal = %v, want 4", d)
			}
		})
	}

	t.Run("inside step untouched", func(t *testing.T) {
		dr := r3.Vec{X: 0.1}
		res, err := Reflect(b, r3.Vec{}, dr, NoCrossing)
		if err != nil {
			t.Fatal(err)
		}
		if res.Step != dr || res.Reflected {
			t.Errorf("Reflect = %+v, want the step unchanged", res)
		}
	})
}

func TestReflectStaysInside(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	for name, s := range testShapes(t) {
		t.Run(name, func(t *testing.T) {
			for range 2000 {
				p, err := s.RandomPosition(rng, s.Region())
				if err != nil {
					t.Fatal(err)
				}
				dr := r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}

				tt, err := TimeToSurface(s, p, dr)
				if err != nil {
					t.Fatal(err)
				}
				res, err := Reflect(s, p, dr, tt)
				if err != nil {
					t.Fatal(err)
				}
				if !s.Inside(r3.Add(p, res.Step)) {
					t.Fatalf("p=%v dr=%v step=%v ends outside", p, dr, res.Step)
				}
				if res.Retries > MaxReflections-1 {
					t.Errorf("retries = %d, want at most %d", res.Retries, MaxReflections-1)
				}
			}
		})
	}
}

func TestRandomPositionRegions(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	band := Band{Position: 0.1, Width: 0.2, Depth: 0.2, Count: 3}

	shapes := []Shape{
		must(NewSphere(3, 0.01, RegionVolume, band)),
		must(NewBox(r3.Vec{X: 8, Y: 4, Z: 4}, 0.01, RegionVolume, band)),
		must(NewCell(6, 1, 0.01, RegionVolume, band)),
	}

	for _, shape := range shapes {
		for _, region := range []Region{RegionVolume, RegionSurface, RegionDisk, RegionRing} {
			for range 200 {
				p, err := shape.RandomPosition(rng, region)
				if err != nil {
					t.Fatalf("%T %v: %v", shape, region, err)
				}
				if !shape.InRegion(p, region) {
					t.Fatalf("%T %v: %v is outside the region", shape, region, p)
				}
				if r3.Norm(p) >= r3.Norm(shape.Bounds().Max)+1e-9 {
					t.Fatalf("%T %v: %v is outside the bounds", shape, region, p)
				}
			}
		}
	}
}

func TestRandomPositionEmptyRegion(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	b := must(NewBox(r3.Vec{X: 2, Y: 2, Z: 2}, 0, RegionDisk, Band{Width: 0}))
	if _, err := b.RandomPosition(rng, RegionDisk); !errors.Is(err, ErrPlacement) {
		t.Errorf("err = %v, want ErrPlacement", err)
	}
}

func TestCellRegionsConfineWalkers(t *testing.T) {
	ring := must(NewCell(6, 1, 0, RegionRing, Band{Width: 0.1, Depth: 0.2, Count: 2}))

	tests := []struct {
		name string
		p    r3.Vec
		want bool
	}{
		{"left ring", r3.Vec{X: -2.8, Y: 0.9}, true},
		{"right ring", r3.Vec{X: 2.8, Z: -0.9}, true},
		{"between rings", r3.Vec{X: 0, Y: 0.9}, false},
		{"below ring depth", r3.Vec{X: 2.8, Y: 0.5}, false},
	}
	for _, tt := range tests {
		if got := ring.Inside(tt.p); got != tt.want {
			t.Errorf("%s: Inside(%v) = %v, want %v", tt.name, tt.p, got, tt.want)
		}
	}

	if n := ring.Normal(r3.Vec{X: 2.8, Y: 0.8}); n != (r3.Vec{Y: -1}) {
		t.Errorf("inner ring wall normal = %v, want -y toward the axis", n)
	}
}

func TestVolumes(t *testing.T) {
	c := must(NewCell(6, 1, 0, RegionVolume, DefaultBand()))
	if v := c.Volume(); !near(v, 4.0/3.0*math.Pi+6*math.Pi, 1e-12) {
		t.Errorf("cell volume = %v", v)
	}
	if c.TypeVolume() != c.Volume() {
		t.Errorf("volume region TypeVolume = %v, want %v", c.TypeVolume(), c.Volume())
	}
	if a := c.SurfaceArea(); !near(a, 4*math.Pi+12*math.Pi, 1e-12) {
		t.Errorf("cell area = %v", a)
	}

	full := Band{Position: 0, Width: 1, Depth: 1}
	s := must(NewSphere(2, 0, RegionDisk, full))
	if !near(s.TypeVolume(), s.Volume(), 1e-9) {
		t.Errorf("full disk = %v, want %v", s.TypeVolume(), s.Volume())
	}

	shell := must(NewSphere(2, 0, RegionSurface, Band{Depth: 0.5}))
	if v := shell.TypeVolume(); !near(v, 4.0/3.0*math.Pi*(8-1), 1e-9) {
		t.Errorf("shell volume = %v", v)
	}

	b := must(NewBox(r3.Vec{X: 4, Y: 2, Z: 2}, 0, RegionRing, Band{Position: 0, Width: 0.5, Depth: 0.5}))
	// slab x in [0, 2]; inner box is 3 x 1 x 1, overlapping the slab over 1.5
	if v := b.TypeVolume(); !near(v, 2*2*2-1.5*1*1, 1e-12) {
		t.Errorf("box ring volume = %v", v)
	}
}
