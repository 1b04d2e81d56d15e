package screening

import (
	"github.com/wikimedia/contest-api/internal/types"
)

const (
	MinDurationSeconds = 1.0
	MaxDurationSeconds = 4.0

	// Assumed bits per sample when deriving a bitrate from the sample rate
	AssumedBitsPerSample = 32
	MinBitrate           = 192 * 1024
)

type rule struct {
	flag  types.FlagCode
	fires func(meta *types.AudioFileMeta) bool
}

// Evaluated in order, the produced flags follow this order
var rules = []rule{
	{
		flag: types.FlagSoundTooShort,
		fires: func(meta *types.AudioFileMeta) bool {
			return valueOrZero(meta.Duration) < MinDurationSeconds
		},
	},
	{
		flag: types.FlagSoundTooLong,
		fires: func(meta *types.AudioFileMeta) bool {
			return valueOrZero(meta.Duration) > MaxDurationSeconds
		},
	},
	{
		// Sample rate is treated as if it were a bitrate source. Kept as is, the form
		// platform reports no real bitrate.
		flag: types.FlagBitrateTooLow,
		fires: func(meta *types.AudioFileMeta) bool {
			// compare by division so huge sample rates cannot overflow
			return valueOrZero(meta.SampleRate) < MinBitrate/AssumedBitsPerSample
		},
	},
}

// Runs every rule against the audio meta. No meta or an empty meta produces no flags. Once any
// meta field is present, a missing duration or sample rate counts as 0.
func Evaluate(meta *types.AudioFileMeta) []types.FlagCode {
	out := []types.FlagCode{}
	if meta.Empty() {
		return out
	}

	for _, r := range rules {
		if r.fires(meta) {
			out = append(out, r.flag)
		}
	}

	return out
}

func valueOrZero[T float64 | uint64](v *T) T {
	if v == nil {
		return 0
	}
	return *v
}
