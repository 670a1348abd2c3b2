package vocabulary

import (
	"fmt"
	"math/big"
)

// FrameRange is an inclusive [Start, End] span at a given frame rate.
// Duration is always End-Start+1.
type FrameRange struct {
	Start int
	End   int
	FPS   *big.Rat
}

// NewFrameRange validates End >= Start before constructing the range.
func NewFrameRange(start, end int, fps *big.Rat) (FrameRange, error) {
	if end < start {
		return FrameRange{}, fmt.Errorf("frame range end (%d) must be >= start (%d)", end, start)
	}
	if fps == nil {
		fps = DefaultFPS()
	}
	return FrameRange{Start: start, End: end, FPS: fps}, nil
}

// FrameRangeFromTimecodes derives a range from two Timecode bounds,
// requiring matching frame rates.
func FrameRangeFromTimecodes(in, out Timecode) (FrameRange, error) {
	if in.FPS.Cmp(out.FPS) != 0 {
		return FrameRange{}, fmt.Errorf("timecodes must have the same fps")
	}
	return NewFrameRange(in.ToFrames(), out.ToFrames(), in.FPS)
}

// Duration is the inclusive frame count.
func (f FrameRange) Duration() int { return f.End - f.Start + 1 }

// ToTimecodes returns (tcIn, tcOut) for this range.
func (f FrameRange) ToTimecodes() (Timecode, Timecode) {
	return FramesFromTimecode(f.Start, f.FPS), FramesFromTimecode(f.End, f.FPS)
}

// Contains reports whether frame lies within [Start, End].
func (f FrameRange) Contains(frame int) bool {
	return f.Start <= frame && frame <= f.End
}

// Overlaps reports whether f and other share any frame.
func (f FrameRange) Overlaps(other FrameRange) bool {
	return f.Start <= other.End && f.End >= other.Start
}

func (f FrameRange) String() string {
	return fmt.Sprintf("%d-%d (%d frames @ %sfps)", f.Start, f.End, f.Duration(), ratString(f.FPS))
}

// ToDict is the wire-facing serialization of a FrameRange.
func (f FrameRange) ToDict() map[string]any {
	return map[string]any{
		"start":    f.Start,
		"end":      f.End,
		"duration": f.Duration(),
		"fps":      ratString(f.FPS),
	}
}
