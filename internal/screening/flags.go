// Package screening holds the automated screening rules and the flag registry.
package screening

import (
	"github.com/wikimedia/contest-api/internal/types"
)

type Flag struct {
	Code  types.FlagCode
	Label string
}

// Registry order, also the order flags are listed in
var flags = []Flag{
	{Code: types.FlagSoundTooShort, Label: "< 1s duration"},
	{Code: types.FlagSoundTooLong, Label: "> 4s duration"},
	{Code: types.FlagBitrateTooLow, Label: "Bitrate too low"},
}

var flagLabels = func() map[types.FlagCode]string {
	labels := make(map[types.FlagCode]string, len(flags))
	for _, f := range flags {
		labels[f.Code] = f.Label
	}
	return labels
}()

// Known flags in registry order
func Flags() []Flag {
	out := make([]Flag, len(flags))
	copy(out, flags)
	return out
}

func IsKnownFlag(code types.FlagCode) bool {
	_, ok := flagLabels[code]
	return ok
}

// Display label of a known flag, empty for unknown codes
func FlagLabel(code types.FlagCode) string {
	return flagLabels[code]
}

// Intersects `codes` with the registry. Order is kept, unknown codes and repeats are dropped.
func FilterFlags[S ~string](codes []S) []types.FlagCode {
	out := []types.FlagCode{}
	seen := make(map[types.FlagCode]struct{}, len(codes))

	for _, c := range codes {
		code := types.FlagCode(c)
		if !IsKnownFlag(code) {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}

	return out
}
