package arbor

import (
	"math"
	"testing"
)

func TestTurntableLinear(t *testing.T) {
	tt := NewTurntable(30)
	if tt.Degrees() != 0 {
		t.Fatalf("initial Degrees = %v, want 0", tt.Degrees())
	}
	tt.Update(7.5)
	if !approxEqual(tt.Degrees(), 90, 1e-3) {
		t.Errorf("Degrees after a quarter period = %v, want 90", tt.Degrees())
	}
	if !approxEqual(tt.Radians(), math.Pi/2, 1e-4) {
		t.Errorf("Radians = %v, want π/2", tt.Radians())
	}
}

func TestTurntableWraps(t *testing.T) {
	tt := NewTurntable(2)
	tt.Update(2.5)
	if !approxEqual(tt.Degrees(), 90, 1e-3) {
		t.Errorf("Degrees after 1.25 revolutions = %v, want 90", tt.Degrees())
	}
	for i := 0; i < 1000; i++ {
		tt.Update(1.0 / 60)
		if d := tt.Degrees(); d < 0 || d >= 360 {
			t.Fatalf("step %d: Degrees = %v outside [0, 360)", i, d)
		}
	}
}

func TestTurntableFrozen(t *testing.T) {
	for _, period := range []float64{0, -5} {
		tt := NewTurntable(period)
		tt.Update(1)
		if tt.Degrees() != 0 {
			t.Errorf("period %v: Degrees = %v, want 0", period, tt.Degrees())
		}
	}

	tt := NewTurntable(30)
	tt.Update(1)
	before := tt.Degrees()
	tt.Update(0)
	tt.Update(-1)
	if tt.Degrees() != before {
		t.Errorf("non-positive dt moved the turntable from %v to %v", before, tt.Degrees())
	}
}
