package planner

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

// --- Helper builders ---

func defaultConfig() Config {
	return Config{ClipCount: 4, MinClipSec: 3.0, MaxClipSec: 15.0, FPS: 8}
}

// evenBeats returns beats every interval seconds from 0 up to (and
// including) limit.
func evenBeats(interval, limit float64) []float64 {
	var beats []float64
	for t := 0.0; t <= limit+1e-9; t += interval {
		beats = append(beats, t)
	}
	return beats
}

// checkInvariants asserts the structural properties every successful plan
// must satisfy: count, contiguity, anchors, bounds, frame alignment, and
// frame-count consistency.
func checkInvariants(t *testing.T, plans []ClipPlan, a Analysis, cfg Config) {
	t.Helper()

	if len(plans) != cfg.ClipCount {
		t.Fatalf("clip count: got %d, want %d", len(plans), cfg.ClipCount)
	}

	if plans[0].StartSec != 0.0 {
		t.Errorf("start anchor: got %v, want 0.0", plans[0].StartSec)
	}

	lastEnd := plans[len(plans)-1].EndSec
	if math.Abs(lastEnd-a.DurationSec) > 0.25 {
		t.Errorf("end anchor: got %v, want within 0.25s of %v", lastEnd, a.DurationSec)
	}

	fps := float64(cfg.FPS)
	frameTol := 0.5/fps + 1e-6
	var total float64
	for i, p := range plans {
		if i > 0 && p.StartSec != plans[i-1].EndSec {
			t.Errorf("clip %d: start %v does not equal previous end %v", i, p.StartSec, plans[i-1].EndSec)
		}
		if p.EndSec <= p.StartSec {
			t.Errorf("clip %d: end %v not after start %v", i, p.EndSec, p.StartSec)
		}
		if math.Abs(p.DurationSec-(p.EndSec-p.StartSec)) > 1e-9 {
			t.Errorf("clip %d: duration %v inconsistent with boundaries", i, p.DurationSec)
		}

		tol := 1e-6
		if i == len(plans)-1 {
			tol = frameTol
		}
		if p.DurationSec < cfg.MinClipSec-tol || p.DurationSec > cfg.MaxClipSec+tol {
			t.Errorf("clip %d: duration %v outside [%v, %v]", i, p.DurationSec, cfg.MinClipSec, cfg.MaxClipSec)
		}

		for _, boundary := range []float64{p.StartSec, p.EndSec} {
			frames := boundary * fps
			if math.Abs(frames-math.Round(frames)) > 1e-6 {
				t.Errorf("clip %d: boundary %v not aligned to 1/%d frame grid", i, boundary, cfg.FPS)
			}
		}

		wantFrames := int(math.Round(p.DurationSec * fps))
		if wantFrames < 1 {
			wantFrames = 1
		}
		if p.FrameCount != wantFrames {
			t.Errorf("clip %d: frame count got %d, want %d", i, p.FrameCount, wantFrames)
		}

		total += p.DurationSec
	}

	if math.Abs(total-a.DurationSec) > 1.0/fps {
		t.Errorf("coverage: durations sum to %v, want within one frame of %v", total, a.DurationSec)
	}
}

func starts(plans []ClipPlan) []float64 {
	out := make([]float64, len(plans))
	for i, p := range plans {
		out[i] = p.StartSec
	}
	return out
}

// --- Plan scenarios ---

func TestPlanDenseBeats(t *testing.T) {
	a := Analysis{DurationSec: 59.8, BeatTimes: evenBeats(0.5, 59.5)}
	cfg := defaultConfig()

	plans, err := Plan(a, cfg)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	checkInvariants(t, plans, a, cfg)

	// Dense, evenly spaced beats should keep boundaries near the even split.
	want := []float64{0, 15.0, 30.0, 45.0}
	if !reflect.DeepEqual(starts(plans), want) {
		t.Errorf("starts: got %v, want %v", starts(plans), want)
	}
	for i, p := range plans {
		if p.StartBeatIndex == nil || p.EndBeatIndex == nil {
			t.Errorf("clip %d: expected beat indices with a beat grid supplied", i)
		}
	}
}

func TestPlanSparseBeats(t *testing.T) {
	a := Analysis{DurationSec: 22.0, BeatTimes: []float64{0.0, 5.0, 10.0, 15.0, 20.0}}
	cfg := Config{ClipCount: 3, MinClipSec: 3.0, MaxClipSec: 12.0, FPS: 8}

	plans, err := Plan(a, cfg)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	checkInvariants(t, plans, a, cfg)

	// Ideal boundaries 7.33 and 14.67 snap to beats 5.0 and 15.0.
	want := []float64{0, 5.0, 15.0}
	if !reflect.DeepEqual(starts(plans), want) {
		t.Errorf("starts: got %v, want %v", starts(plans), want)
	}
	if got := plans[2].EndSec; math.Abs(got-22.0) > 0.25 {
		t.Errorf("final end: got %v, want ~22.0", got)
	}
}

func TestPlanNoBeatsEvenSplit(t *testing.T) {
	a := Analysis{DurationSec: 24.0}
	cfg := defaultConfig()

	plans, err := Plan(a, cfg)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	checkInvariants(t, plans, a, cfg)

	want := []float64{0, 6.0, 12.0, 18.0}
	if !reflect.DeepEqual(starts(plans), want) {
		t.Errorf("starts: got %v, want %v", starts(plans), want)
	}
	for i, p := range plans {
		if p.StartBeatIndex != nil || p.EndBeatIndex != nil {
			t.Errorf("clip %d: expected nil beat indices without a beat grid", i)
		}
	}
}

func TestPlanTargetExceedsMax(t *testing.T) {
	a := Analysis{DurationSec: 30.0, BeatTimes: []float64{0.0, 30.0}}
	cfg := Config{ClipCount: 2, MinClipSec: 3.0, MaxClipSec: 5.0, FPS: 8}

	_, err := Plan(a, cfg)
	if err == nil {
		t.Fatal("expected infeasible decomposition error, got nil")
	}
	var pe *PlanningError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PlanningError, got %T", err)
	}
}

func TestPlanTargetBelowMin(t *testing.T) {
	a := Analysis{DurationSec: 4.0}
	cfg := defaultConfig() // target 1.0 < min 3.0

	if _, err := Plan(a, cfg); err == nil {
		t.Fatal("expected infeasible decomposition error, got nil")
	}
}

func TestPlanInvalidInputs(t *testing.T) {
	valid := Analysis{DurationSec: 24.0}

	cases := []struct {
		name string
		a    Analysis
		cfg  Config
	}{
		{"zero duration", Analysis{DurationSec: 0}, defaultConfig()},
		{"negative duration", Analysis{DurationSec: -5}, defaultConfig()},
		{"zero clip count", valid, Config{ClipCount: 0, MinClipSec: 3, MaxClipSec: 15, FPS: 8}},
		{"zero min", valid, Config{ClipCount: 4, MinClipSec: 0, MaxClipSec: 15, FPS: 8}},
		{"min above max", valid, Config{ClipCount: 4, MinClipSec: 16, MaxClipSec: 15, FPS: 8}},
		{"zero fps", valid, Config{ClipCount: 4, MinClipSec: 3, MaxClipSec: 15, FPS: 0}},
		{"unsorted beats", Analysis{DurationSec: 24, BeatTimes: []float64{1.0, 0.5}}, defaultConfig()},
		{"duplicate beats", Analysis{DurationSec: 24, BeatTimes: []float64{1.0, 1.0}}, defaultConfig()},
		{"beat beyond duration", Analysis{DurationSec: 24, BeatTimes: []float64{1.0, 25.0}}, defaultConfig()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Plan(tc.a, tc.cfg)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var pe *PlanningError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *PlanningError, got %T", err)
			}
		})
	}
}

func TestPlanTieBreaksToEarlierBeat(t *testing.T) {
	// Ideal boundary at 12.0 sits exactly between beats 10.0 and 14.0.
	a := Analysis{DurationSec: 24.0, BeatTimes: []float64{10.0, 14.0}}
	cfg := Config{ClipCount: 2, MinClipSec: 2.0, MaxClipSec: 22.0, FPS: 8}

	plans, err := Plan(a, cfg)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if plans[1].StartSec != 10.0 {
		t.Errorf("tie should snap to the earlier beat: got %v, want 10.0", plans[1].StartSec)
	}
}

func TestPlanMonotonicityRepair(t *testing.T) {
	// Only two beats for three interior boundaries: every ideal boundary
	// snaps to 5.0, forcing push-forward repair with MinClipSec steps, and
	// the final clip needs a bounds nudge.
	a := Analysis{DurationSec: 20.0, BeatTimes: []float64{0.0, 5.0}}
	cfg := Config{ClipCount: 4, MinClipSec: 3.0, MaxClipSec: 8.0, FPS: 8}

	plans, err := Plan(a, cfg)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	checkInvariants(t, plans, a, cfg)

	want := []float64{0, 5.0, 8.0, 12.0}
	if !reflect.DeepEqual(starts(plans), want) {
		t.Errorf("starts: got %v, want %v", starts(plans), want)
	}
}

func TestPlanBoundsClampAfterSnap(t *testing.T) {
	// Snapping drags the single interior boundary to 29.9, leaving a first
	// clip above max and a final clip below min. The clamp must walk the
	// boundary back to a frame that satisfies both.
	a := Analysis{DurationSec: 30.0, BeatTimes: []float64{0.0, 29.9, 30.0}}
	cfg := Config{ClipCount: 2, MinClipSec: 3.0, MaxClipSec: 28.0, FPS: 8}

	plans, err := Plan(a, cfg)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	checkInvariants(t, plans, a, cfg)

	want := []float64{0, 27.0}
	if !reflect.DeepEqual(starts(plans), want) {
		t.Errorf("starts: got %v, want %v", starts(plans), want)
	}
}

func TestPlanBeatRepairExhausted(t *testing.T) {
	// Two beats at the extremes cannot yield three increasing boundaries:
	// repair pushes past the end of the timeline.
	a := Analysis{DurationSec: 10.0, BeatTimes: []float64{0.0, 9.5}}
	cfg := Config{ClipCount: 3, MinClipSec: 3.0, MaxClipSec: 4.0, FPS: 8}

	_, err := Plan(a, cfg)
	if err == nil {
		t.Fatal("expected beat repair exhaustion error, got nil")
	}
	var pe *PlanningError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PlanningError, got %T", err)
	}
}

func TestPlanSingleClip(t *testing.T) {
	a := Analysis{DurationSec: 10.0, BeatTimes: evenBeats(0.5, 10.0)}
	cfg := Config{ClipCount: 1, MinClipSec: 5.0, MaxClipSec: 15.0, FPS: 8}

	plans, err := Plan(a, cfg)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	checkInvariants(t, plans, a, cfg)

	if plans[0].StartSec != 0.0 || plans[0].EndSec != 10.0 {
		t.Errorf("single clip: got [%v, %v], want [0, 10]", plans[0].StartSec, plans[0].EndSec)
	}
	if plans[0].FrameCount != 80 {
		t.Errorf("frame count: got %d, want 80", plans[0].FrameCount)
	}
}

func TestPlanFrameQuantization(t *testing.T) {
	// 10.07s does not land on the 1/8s frame grid; every boundary in the
	// result must.
	a := Analysis{DurationSec: 10.07}
	cfg := Config{ClipCount: 2, MinClipSec: 3.0, MaxClipSec: 8.0, FPS: 8}

	plans, err := Plan(a, cfg)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	checkInvariants(t, plans, a, cfg)

	if plans[1].StartSec != 5.0 {
		t.Errorf("interior boundary: got %v, want 5.0", plans[1].StartSec)
	}
	if plans[1].EndSec != 10.125 {
		t.Errorf("quantized end: got %v, want 10.125", plans[1].EndSec)
	}
}

func TestPlanDeterminism(t *testing.T) {
	a := Analysis{DurationSec: 59.8, BeatTimes: evenBeats(0.5, 59.5)}
	cfg := defaultConfig()

	first, err := Plan(a, cfg)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	second, err := Plan(a, cfg)
	if err != nil {
		t.Fatalf("Plan failed on repeat: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs produced different plans")
	}
}

func TestNearestBeat(t *testing.T) {
	beats := []float64{1.0, 3.0, 6.0}

	cases := []struct {
		t    float64
		want int
	}{
		{0.0, 0},  // before first beat
		{1.0, 0},  // exact hit
		{2.0, 0},  // tie between 1.0 and 3.0 goes to the earlier beat
		{2.1, 1},  // closer to 3.0
		{4.4, 1},  // closer to 3.0
		{4.6, 2},  // closer to 6.0
		{9.0, 2},  // past the last beat
	}

	for _, tc := range cases {
		if got := nearestBeat(beats, tc.t); got != tc.want {
			t.Errorf("nearestBeat(%v): got %d, want %d", tc.t, got, tc.want)
		}
	}
}
