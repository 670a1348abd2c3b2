package vocabulary

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

var timecodePattern = regexp.MustCompile(`^(\d{2})[;:](\d{2})[;:](\d{2})[;:](\d{2})$`)

// Timecode is a position in hh:mm:ss:ff notation at a given (possibly
// fractional) frame rate, with an optional drop-frame flag.
type Timecode struct {
	Hours      int
	Minutes    int
	Seconds    int
	Frames     int
	FPS        *big.Rat
	DropFrame  bool
}

// DefaultFPS is the fallback rate used when none is supplied, matching
// the teacher's Fraction(24) default.
func DefaultFPS() *big.Rat { return big.NewRat(24, 1) }

// ParseTimecode parses a string like "01:00:00:00" or "01;00;00;00".
// A semicolon separator marks the result drop-frame.
func ParseTimecode(s string, fps *big.Rat) (Timecode, error) {
	m := timecodePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Timecode{}, fmt.Errorf("cannot parse timecode: %q", s)
	}
	parts := make([]int, 4)
	for i, g := range m[1:] {
		v, _ := strconv.Atoi(g)
		parts[i] = v
	}
	if fps == nil {
		fps = DefaultFPS()
	}
	return Timecode{
		Hours:     parts[0],
		Minutes:   parts[1],
		Seconds:   parts[2],
		Frames:    parts[3],
		FPS:       fps,
		DropFrame: strings.Contains(s, ";"),
	}, nil
}

// FramesFromTimecode converts an absolute frame number to a Timecode at
// the given fps.
func FramesFromTimecode(frameNumber int, fps *big.Rat) Timecode {
	if fps == nil {
		fps = DefaultFPS()
	}
	wholeFPS := intFromRat(fps)
	totalSeconds := frameNumber / wholeFPS
	frames := frameNumber % wholeFPS
	minutes := totalSeconds / 60
	seconds := totalSeconds % 60
	hours := minutes / 60
	minutes = minutes % 60
	return Timecode{Hours: hours, Minutes: minutes, Seconds: seconds, Frames: frames, FPS: fps}
}

func intFromRat(r *big.Rat) int {
	f, _ := new(big.Float).SetRat(r).Int64()
	if f <= 0 {
		return 1
	}
	return int(f)
}

// ToFrames converts this timecode back to an absolute frame number.
func (t Timecode) ToFrames() int {
	totalSeconds := t.Hours*3600 + t.Minutes*60 + t.Seconds
	return totalSeconds*intFromRat(t.FPS) + t.Frames
}

// String renders hh:mm:ss:ff (or hh:mm:ss;ff when drop-frame).
func (t Timecode) String() string {
	sep := ":"
	if t.DropFrame {
		sep = ";"
	}
	return fmt.Sprintf("%02d:%02d:%02d%s%02d", t.Hours, t.Minutes, t.Seconds, sep, t.Frames)
}

// FPSString renders the frame rate as "num/den" or a plain integer when
// the denominator is 1, matching how fractions round-trip through JSON.
func (t Timecode) FPSString() string {
	return ratString(t.FPS)
}

// ToDict is the wire-facing serialization of a Timecode.
func (t Timecode) ToDict() map[string]any {
	return map[string]any{
		"hours":      t.Hours,
		"minutes":    t.Minutes,
		"seconds":    t.Seconds,
		"frames":     t.Frames,
		"fps":        t.FPSString(),
		"drop_frame": t.DropFrame,
		"timecode":   t.String(),
	}
}

// RatString renders a rational number as "num/den", or a plain integer
// string when the denominator is 1. Exported so packages outside
// vocabulary (entity frame-rate fields) can format a bare *big.Rat the
// same way Timecode.FPSString does.
func RatString(r *big.Rat) string {
	return ratString(r)
}

func ratString(r *big.Rat) string {
	if r == nil {
		return ""
	}
	if r.IsInt() {
		return r.Num().String()
	}
	return fmt.Sprintf("%s/%s", r.Num().String(), r.Denom().String())
}

// ParseFPS parses the "num/den" or plain-integer form written by
// FPSString / ratString.
func ParseFPS(s string) (*big.Rat, error) {
	if s == "" {
		return DefaultFPS(), nil
	}
	r := new(big.Rat)
	if _, ok := r.SetString(s); !ok {
		return nil, fmt.Errorf("cannot parse frame rate: %q", s)
	}
	return r, nil
}
