// Package planner turns a song's timeline and detected beat grid into an
// ordered sequence of clip segments for video generation.
//
// Plan is a pure function: it reads its arguments, allocates a fresh result
// slice, and touches no shared state. It is safe to call from any number of
// request handlers or worker goroutines concurrently.
package planner

import (
	"fmt"
	"math"
	"sort"
)

// Analysis is the read-only subset of a song analysis the planner consumes.
// BPM is informational only; the planner works from the beat timestamps.
type Analysis struct {
	DurationSec float64   `json:"duration_sec"`
	BPM         *float64  `json:"bpm,omitempty"`
	BeatTimes   []float64 `json:"beat_times"` // strictly increasing, within [0, DurationSec]; may be empty
}

// Config holds the segmentation parameters for one planning request.
type Config struct {
	ClipCount  int     `json:"clip_count"`
	MinClipSec float64 `json:"min_clip_sec"`
	MaxClipSec float64 `json:"max_clip_sec"`
	FPS        int     `json:"fps"` // frame rate used for boundary quantization
}

// ClipPlan is one planned segment of the timeline. Start and end times are
// quantized to the frame grid (multiples of 1/FPS) and consecutive plans
// share boundaries exactly: plan[i].EndSec == plan[i+1].StartSec.
type ClipPlan struct {
	StartSec       float64 `json:"start_sec"`
	EndSec         float64 `json:"end_sec"`
	DurationSec    float64 `json:"duration_sec"`
	StartBeatIndex *int    `json:"start_beat_index,omitempty"` // nearest beat to StartSec, nil when no beats supplied
	EndBeatIndex   *int    `json:"end_beat_index,omitempty"`
	FrameCount     int     `json:"frame_count"`
}

// PlanningError is returned for invalid input, an infeasible decomposition,
// or beat sparsity that defeats the monotonicity repair. There is exactly one
// error kind; the message carries the distinction. Planning never returns a
// partial result alongside an error.
type PlanningError struct {
	Msg string
}

func (e *PlanningError) Error() string {
	return e.Msg
}

func planErrf(format string, args ...interface{}) *PlanningError {
	return &PlanningError{Msg: fmt.Sprintf(format, args...)}
}

// eps absorbs float64 noise in duration comparisons. The final clip gets a
// wider tolerance (half a frame) because the end anchor is quantized while
// its left boundary is constrained by the clip before it.
const eps = 1e-6

// Plan computes cfg.ClipCount contiguous, non-overlapping clip segments
// covering [0, a.DurationSec].
//
// The pipeline: even target width → ideal boundaries → snap each interior
// boundary to the nearest beat (ties go to the earlier beat) → repair any
// ordering violations by pushing boundaries forward → quantize everything to
// the frame grid → nudge frame-aligned boundaries back inside the
// [MinClipSec, MaxClipSec] window → resolve beat indices and frame counts.
//
// It either returns a complete plan satisfying all invariants or a
// *PlanningError. Infeasible requests fail loudly; durations are never
// silently clamped outside the configured bounds.
func Plan(a Analysis, cfg Config) ([]ClipPlan, error) {
	if err := validate(a, cfg); err != nil {
		return nil, err
	}

	n := cfg.ClipCount
	dur := a.DurationSec
	beats := a.BeatTimes

	// Step 1: even target width, checked against the duration bounds before
	// any boundary work. A clip_count that cannot fit is a caller error.
	target := dur / float64(n)
	if target < cfg.MinClipSec-eps || target > cfg.MaxClipSec+eps {
		return nil, planErrf("infeasible decomposition: %d clips over %.3fs gives target width %.3fs outside [%.3f, %.3f]",
			n, dur, target, cfg.MinClipSec, cfg.MaxClipSec)
	}

	// Step 2: ideal interior boundaries. boundaries[0] and boundaries[n] are
	// the fixed timeline endpoints.
	boundaries := make([]float64, n+1)
	for i := 1; i < n; i++ {
		boundaries[i] = target * float64(i)
	}
	boundaries[n] = dur

	// Step 3: snap each interior boundary to its nearest beat. Skipped when
	// no beats were supplied — the even split is the fallback path.
	if len(beats) > 0 {
		for i := 1; i < n; i++ {
			boundaries[i] = beats[nearestBeat(beats, boundaries[i])]
		}

		// Step 4: monotonicity repair. Sparse beats can snap two boundaries
		// to the same timestamp or out of order; walk left to right and push
		// offenders forward to the next usable beat, or by MinClipSec once
		// beats run out.
		prev := 0.0
		for i := 1; i < n; i++ {
			if boundaries[i] <= prev+eps {
				boundaries[i] = nextBoundary(beats, prev, cfg.MinClipSec)
			}
			if boundaries[i] >= dur-eps {
				return nil, planErrf("beat repair exhausted: boundary %d pushed to %.3fs, at or beyond the %.3fs timeline",
					i, boundaries[i], dur)
			}
			prev = boundaries[i]
		}
	}

	// Step 5: quantize every boundary, endpoints included, to the frame
	// grid. Round half up so identical inputs always land on the same frame.
	fps := float64(cfg.FPS)
	for i := 0; i <= n; i++ {
		boundaries[i] = roundFrame(boundaries[i], fps)
	}

	// Step 6: restore duration bounds with frame-aligned nudges, keeping
	// clip 0 anchored at 0.0 and the last boundary at the quantized duration.
	if err := clampBounds(boundaries, cfg, fps); err != nil {
		return nil, err
	}

	// Steps 7-8: assemble the plans with beat indices and frame counts.
	plans := make([]ClipPlan, n)
	for i := 0; i < n; i++ {
		start := boundaries[i]
		end := boundaries[i+1]
		d := end - start

		frames := int(math.Round(d * fps))
		if frames < 1 {
			frames = 1
		}

		p := ClipPlan{
			StartSec:    start,
			EndSec:      end,
			DurationSec: d,
			FrameCount:  frames,
		}
		if len(beats) > 0 {
			si := nearestBeat(beats, start)
			ei := nearestBeat(beats, end)
			p.StartBeatIndex = &si
			p.EndBeatIndex = &ei
		}
		plans[i] = p
	}

	return plans, nil
}

func validate(a Analysis, cfg Config) error {
	switch {
	case a.DurationSec <= 0:
		return planErrf("invalid configuration: duration must be positive, got %.3f", a.DurationSec)
	case cfg.ClipCount < 1:
		return planErrf("invalid configuration: clip count must be at least 1, got %d", cfg.ClipCount)
	case cfg.MinClipSec <= 0:
		return planErrf("invalid configuration: min clip duration must be positive, got %.3f", cfg.MinClipSec)
	case cfg.MinClipSec > cfg.MaxClipSec:
		return planErrf("invalid configuration: min clip duration %.3f exceeds max %.3f", cfg.MinClipSec, cfg.MaxClipSec)
	case cfg.FPS < 1:
		return planErrf("invalid configuration: fps must be at least 1, got %d", cfg.FPS)
	}

	for i, t := range a.BeatTimes {
		if t < 0 || t > a.DurationSec {
			return planErrf("invalid configuration: beat %d at %.3fs is outside [0, %.3f]", i, t, a.DurationSec)
		}
		if i > 0 && t <= a.BeatTimes[i-1] {
			return planErrf("invalid configuration: beat times must be strictly increasing (beat %d at %.3fs follows %.3fs)",
				i, t, a.BeatTimes[i-1])
		}
	}

	return nil
}

// nearestBeat returns the index of the beat closest to t. On an exact tie
// the earlier beat wins, which keeps planning deterministic for fixtures
// with symmetric beat grids.
func nearestBeat(beats []float64, t float64) int {
	i := sort.SearchFloat64s(beats, t)
	if i == 0 {
		return 0
	}
	if i == len(beats) {
		return len(beats) - 1
	}
	if t-beats[i-1] <= beats[i]-t {
		return i - 1
	}
	return i
}

// nextBoundary finds the first beat strictly after prev, falling back to a
// MinClipSec step once the beat grid is exhausted.
func nextBoundary(beats []float64, prev, minClipSec float64) float64 {
	i := sort.SearchFloat64s(beats, prev)
	for i < len(beats) && beats[i] <= prev+eps {
		i++
	}
	if i < len(beats) {
		return beats[i]
	}
	return prev + minClipSec
}

// roundFrame quantizes t to the nearest multiple of 1/fps, rounding half up.
func roundFrame(t, fps float64) float64 {
	return math.Floor(t*fps+0.5) / fps
}

// ceilFrame returns the smallest frame-aligned time >= t.
func ceilFrame(t, fps float64) float64 {
	return math.Ceil(t*fps-eps) / fps
}

// floorFrame returns the largest frame-aligned time <= t.
func floorFrame(t, fps float64) float64 {
	return math.Floor(t*fps+eps) / fps
}

// clampBounds walks the quantized boundaries and nudges any that produce a
// clip duration outside [MinClipSec, MaxClipSec] to the nearest frame that
// restores validity. The first boundary stays at exactly 0.0 and the last at
// the quantized song duration; the final interior boundary is placed inside
// the frame-aligned window satisfying both of its neighbors. An empty window
// means the requested decomposition cannot be honored.
func clampBounds(boundaries []float64, cfg Config, fps float64) error {
	n := len(boundaries) - 1
	min, max := cfg.MinClipSec, cfg.MaxClipSec
	finalTol := 0.5/fps + eps

	// Forward pass over interior boundaries: fix each clip against its left
	// neighbor. Pushing a boundary forward can cascade; the next iteration
	// sees the updated value.
	for i := 1; i < n; i++ {
		d := boundaries[i] - boundaries[i-1]
		if d < min-eps {
			boundaries[i] = ceilFrame(boundaries[i-1]+min, fps)
		} else if d > max+eps {
			boundaries[i] = floorFrame(boundaries[i-1]+max, fps)
		}
	}

	// The final clip is pinned between the last interior boundary and the
	// end anchor. When it lands out of bounds, move the last interior
	// boundary into the window that keeps both it and its left neighbor
	// valid.
	if n >= 2 {
		last := n - 1
		d := boundaries[n] - boundaries[last]
		if d < min-finalTol || d > max+finalTol {
			lo := boundaries[n] - max
			if left := boundaries[last-1] + min; left > lo {
				lo = left
			}
			hi := boundaries[n] - min
			if right := boundaries[last-1] + max; right < hi {
				hi = right
			}

			loF := ceilFrame(lo, fps)
			hiF := floorFrame(hi, fps)
			if loF > hiF+eps {
				return planErrf("beat repair exhausted: no frame boundary in [%.3f, %.3f] satisfies clips %d and %d",
					lo, hi, last-1, last)
			}

			moved := roundFrame(boundaries[last], fps)
			if moved < loF {
				moved = loF
			} else if moved > hiF {
				moved = hiF
			}
			boundaries[last] = moved
		}
	}

	// Verification: every clip must now be strictly positive and inside the
	// bounds (final clip gets the half-frame tolerance). Anything left over
	// is an error, never a silently out-of-bounds plan.
	for i := 0; i < n; i++ {
		d := boundaries[i+1] - boundaries[i]
		tol := eps
		if i == n-1 {
			tol = finalTol
		}
		if d <= 0 || d < min-tol || d > max+tol {
			return planErrf("beat repair exhausted: clip %d duration %.3fs cannot satisfy bounds [%.3f, %.3f]",
				i, d, min, max)
		}
	}

	return nil
}
