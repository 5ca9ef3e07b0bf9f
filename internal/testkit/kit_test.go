package testkit

import (
	"math"
	"testing"
)

func TestFixedReport(t *testing.T) {
	r := FixedReport()

	if r.Interval.Mean != 2 || r.Interval.Variance != 1 {
		t.Fatalf("unexpected interval %+v", r.Interval)
	}
	if math.Abs(r.Interval.HalfWidth-2/math.Sqrt(3)) > 1e-12 {
		t.Errorf("unexpected half width %v", r.Interval.HalfWidth)
	}
	if err := r.Manifest.Validate(); err != nil {
		t.Errorf("fixed manifest should validate: %v", err)
	}
	if !r.CoversPi() {
		t.Error("[0.845, 3.155] should cover pi")
	}
}

func TestSampleReport(t *testing.T) {
	r, err := NewTestKit().SampleReport()
	if err != nil {
		t.Fatalf("sample report: %v", err)
	}
	if r.Estimates.Len() != 10 {
		t.Errorf("expected 10 estimates, got %d", r.Estimates.Len())
	}
	if math.Abs(r.Manifest.CriticalValue-2.2622) > 1e-4 {
		t.Errorf("expected exact t(9 df)=2.2622, got %v", r.Manifest.CriticalValue)
	}
	if r.Manifest.CriticalSource != "student-t" {
		t.Errorf("expected student-t source, got %q", r.Manifest.CriticalSource)
	}
	if math.Abs(r.Interval.Mean-math.Pi) > 0.2 {
		t.Errorf("mean of 10 x 1000 points too far from pi: %v", r.Interval.Mean)
	}
}
