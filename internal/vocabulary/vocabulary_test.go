package vocabulary

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus_Aliases(t *testing.T) {
	cases := map[string]Status{
		"wip":      StatusInProgress,
		"final":    StatusDelivered,
		"omit":     StatusArchived,
		"approved": StatusApproved,
	}
	for input, want := range cases {
		got, err := ParseStatus(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestParseStatus_Unknown(t *testing.T) {
	_, err := ParseStatus("not_a_status")
	assert.Error(t, err)
}

func TestRole_ResolvePath(t *testing.T) {
	r := NewRole("primary", "", 0, RoleClassTrack)
	r.PathTemplate = "{project}/{shot}/plates"
	path, err := r.ResolvePath(map[string]string{"project": "EP60", "shot": "EP60_010"})
	require.NoError(t, err)
	assert.Equal(t, "EP60/EP60_010/plates", path)
}

func TestRole_ResolvePath_MissingToken(t *testing.T) {
	r := NewRole("primary", "", 0, RoleClassTrack)
	r.PathTemplate = "{project}/{shot}/plates"
	_, err := r.ResolvePath(map[string]string{"project": "EP60"})
	assert.Error(t, err)
}

func TestRole_DefaultLabel(t *testing.T) {
	r := NewRole("background_plate", "", 0, RoleClassTrack)
	assert.Equal(t, "Background Plate", r.Label)
}

func TestTimecode_RoundTrip(t *testing.T) {
	for _, fps := range []*big.Rat{big.NewRat(24, 1), big.NewRat(25, 1), big.NewRat(30000, 1001), big.NewRat(60, 1)} {
		for _, frame := range []int{0, 1, 3599, 90000} {
			tc := FramesFromTimecode(frame, fps)
			assert.Equal(t, frame, tc.ToFrames(), "fps=%s frame=%d", ratString(fps), frame)
		}
	}
}

func TestTimecode_ParseString(t *testing.T) {
	tc, err := ParseTimecode("01:02:03:12", big.NewRat(24, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, tc.Hours)
	assert.Equal(t, 2, tc.Minutes)
	assert.Equal(t, 3, tc.Seconds)
	assert.Equal(t, 12, tc.Frames)
	assert.False(t, tc.DropFrame)
	assert.Equal(t, "01:02:03:12", tc.String())
}

func TestTimecode_DropFrameSeparator(t *testing.T) {
	tc, err := ParseTimecode("01;00;00;00", big.NewRat(30000, 1001))
	require.NoError(t, err)
	assert.True(t, tc.DropFrame)
	assert.Equal(t, "01:00:00;00", tc.String())
}

func TestTimecode_ParseInvalid(t *testing.T) {
	_, err := ParseTimecode("not-a-timecode", nil)
	assert.Error(t, err)
}

func TestFrameRange_Duration(t *testing.T) {
	fr, err := NewFrameRange(1001, 1100, big.NewRat(24, 1))
	require.NoError(t, err)
	assert.Equal(t, 100, fr.Duration())
}

func TestFrameRange_EndBeforeStart(t *testing.T) {
	_, err := NewFrameRange(100, 50, nil)
	assert.Error(t, err)
}

func TestFrameRange_FromTimecodes(t *testing.T) {
	in, err := ParseTimecode("00:00:01:00", big.NewRat(24, 1))
	require.NoError(t, err)
	out, err := ParseTimecode("00:00:02:00", big.NewRat(24, 1))
	require.NoError(t, err)
	fr, err := FrameRangeFromTimecodes(in, out)
	require.NoError(t, err)
	assert.Equal(t, 24, fr.Start)
	assert.Equal(t, 48, fr.End)
}

func TestFrameRange_FromTimecodes_MismatchedFPS(t *testing.T) {
	in, _ := ParseTimecode("00:00:01:00", big.NewRat(24, 1))
	out, _ := ParseTimecode("00:00:02:00", big.NewRat(25, 1))
	_, err := FrameRangeFromTimecodes(in, out)
	assert.Error(t, err)
}

func TestFrameRange_Overlaps(t *testing.T) {
	a, _ := NewFrameRange(1, 10, nil)
	b, _ := NewFrameRange(10, 20, nil)
	c, _ := NewFrameRange(11, 20, nil)
	assert.True(t, a.Overlaps(b))
	assert.False(t, a.Overlaps(c))
}

func TestFrameRange_Contains(t *testing.T) {
	fr, _ := NewFrameRange(100, 200, nil)
	assert.True(t, fr.Contains(150))
	assert.False(t, fr.Contains(201))
}
