// Package particle provides the authoring surface of the simulation: value
// distributions parsed from compact text, and the YAML emitter templates that
// reference them.
package particle

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Keyframe is a single point on a curve.
type Keyframe struct {
	Time  float64
	Value float64
}

// Interp selects how a curve is evaluated between two keyframes.
type Interp int

const (
	InterpLinear Interp = iota
	InterpEaseIn
	InterpEaseOut
	InterpFastInOutWeak
	InterpConstant
)

var interpNames = map[string]Interp{
	"Linear":        InterpLinear,
	"EaseIn":        InterpEaseIn,
	"EaseOut":       InterpEaseOut,
	"FastInOutWeak": InterpFastInOutWeak,
	"Constant":      InterpConstant,
}

func (i Interp) String() string {
	for name, v := range interpNames {
		if v == i {
			return name
		}
	}
	return "Linear"
}

// ErrBadValue is wrapped by every parse failure.
var ErrBadValue = errors.New("bad value string")

// ParsedValue is one authoring value string broken into its parts.
//
// Supported forms:
//   - Fixed value: "1500"
//   - Range: "[0.7 0.9]" or "[5]"
//   - Range to range: "[.4 .6] [.8 1.2]" (start range at t=0, end range at t=1)
//   - Range then keyframes: "[-720 720] 0,39.999996" (value,timePercent pairs)
//   - Keyframes: "0,2 1,2 4,21" (time,value pairs), optional interpolation keyword
//   - Leading value then value,timePercent pairs: ".3 .3,39.999996 0,50"
//   - Start value, percent and end value: ".9,70 0"
type ParsedValue struct {
	Min, Max float64

	// Keyframes holds the curve, or the lower curve when MaxKeyframes is set.
	Keyframes []Keyframe
	// MaxKeyframes is the upper curve of a ranged curve.
	MaxKeyframes []Keyframe

	Interp Interp
}

// IsCurve reports whether the value varies over time.
func (p ParsedValue) IsCurve() bool {
	return len(p.Keyframes) > 0
}

// IsRange reports whether the value is sampled between two bounds.
func (p ParsedValue) IsRange() bool {
	if len(p.MaxKeyframes) > 0 {
		return true
	}
	return len(p.Keyframes) == 0 && p.Min != p.Max
}

// ParseValue parses a value string from a template.
func ParseValue(s string) (ParsedValue, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ParsedValue{}, nil
	}

	if strings.HasPrefix(s, "[") {
		return parseRanged(s)
	}

	var out ParsedValue
	for keyword, interp := range interpNames {
		if strings.Contains(s, keyword) {
			out.Interp = interp
			s = strings.TrimSpace(strings.ReplaceAll(s, keyword, ""))
			break
		}
	}

	if !strings.Contains(s, ",") && !strings.Contains(s, " ") {
		v, err := parseFloat(s)
		if err != nil {
			return ParsedValue{}, err
		}
		out.Min, out.Max = v, v
		return out, nil
	}

	kf, err := parseKeyframes(strings.Fields(s))
	if err != nil {
		return ParsedValue{}, err
	}
	out.Keyframes = kf
	return out, nil
}

// parseRanged handles every form starting with "[".
func parseRanged(s string) (ParsedValue, error) {
	closeIdx := strings.Index(s, "]")
	if closeIdx < 0 {
		return ParsedValue{}, fmt.Errorf("%w: unterminated range %q", ErrBadValue, s)
	}
	lo, hi, err := parseBracket(s[:closeIdx+1])
	if err != nil {
		return ParsedValue{}, err
	}
	rest := strings.TrimSpace(s[closeIdx+1:])
	if rest == "" {
		return ParsedValue{Min: lo, Max: hi}, nil
	}

	if strings.HasPrefix(rest, "[") {
		endLo, endHi, err := parseBracket(rest)
		if err != nil {
			return ParsedValue{}, err
		}
		return ParsedValue{
			Min:          lo,
			Max:          hi,
			Keyframes:    []Keyframe{{0, lo}, {1, endLo}},
			MaxKeyframes: []Keyframe{{0, hi}, {1, endHi}},
		}, nil
	}

	// Range then value,timePercent keyframes: the range is the t=0 value.
	minCurve := []Keyframe{{0, lo}}
	maxCurve := []Keyframe{{0, hi}}
	for _, part := range strings.Fields(rest) {
		val, pct, ok := splitPair(part)
		if !ok {
			return ParsedValue{}, fmt.Errorf("%w: expected value,percent in %q", ErrBadValue, part)
		}
		t := percentToTime(pct)
		minCurve = append(minCurve, Keyframe{t, val})
		maxCurve = append(maxCurve, Keyframe{t, val})
	}
	return ParsedValue{Min: lo, Max: hi, Keyframes: minCurve, MaxKeyframes: maxCurve}, nil
}

func parseBracket(s string) (float64, float64, error) {
	inner := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "["), "]")
	parts := strings.Fields(inner)
	switch len(parts) {
	case 1:
		v, err := parseFloat(parts[0])
		return v, v, err
	case 2:
		lo, err := parseFloat(parts[0])
		if err != nil {
			return 0, 0, err
		}
		hi, err := parseFloat(parts[1])
		return lo, hi, err
	default:
		return 0, 0, fmt.Errorf("%w: range %q needs one or two numbers", ErrBadValue, s)
	}
}

// parseKeyframes handles plain time,value lists and the two mixed forms.
func parseKeyframes(parts []string) ([]Keyframe, error) {
	keyframes := make([]Keyframe, 0, len(parts)+1)
	hasLeading := false

	for i := 0; i < len(parts); i++ {
		part := parts[i]
		a, b, isPair := splitPair(part)
		if !isPair {
			v, err := parseFloat(part)
			if err != nil {
				return nil, err
			}
			if len(keyframes) == 0 {
				keyframes = append(keyframes, Keyframe{0, v})
				hasLeading = true
				continue
			}
			return nil, fmt.Errorf("%w: stray value %q", ErrBadValue, part)
		}

		// ".9,70 0": start value a, end value parts[i+1] at a percent.
		if b > 1 && i+1 < len(parts) && !strings.Contains(parts[i+1], ",") && !hasLeading {
			end, err := parseFloat(parts[i+1])
			if err != nil {
				return nil, err
			}
			keyframes = append(keyframes, Keyframe{0, a}, Keyframe{b / 100, end})
			i++
			continue
		}

		if hasLeading {
			keyframes = append(keyframes, Keyframe{percentToTime(b), a})
			continue
		}
		keyframes = append(keyframes, Keyframe{a, b})
	}

	if len(keyframes) == 0 {
		return nil, fmt.Errorf("%w: no keyframes", ErrBadValue)
	}
	return keyframes, nil
}

func splitPair(s string) (float64, float64, bool) {
	left, right, found := strings.Cut(s, ",")
	if !found {
		return 0, 0, false
	}
	a, err1 := strconv.ParseFloat(left, 64)
	b, err2 := strconv.ParseFloat(right, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return a, b, true
}

// percentToTime accepts either a percentage (>1) or an already normalized time.
func percentToTime(p float64) float64 {
	if p > 1 {
		return p / 100
	}
	return p
}

func parseFloat(s string) (float64, error) {
	// YAML spells infinity ".inf"
	switch strings.ToLower(s) {
	case ".inf", "+.inf":
		return math.Inf(1), nil
	case "-.inf":
		return math.Inf(-1), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrBadValue, s)
	}
	return v, nil
}

// EvaluateKeyframes returns the curve value at t. Before the first key the
// first value holds, after the last key the last value holds.
func EvaluateKeyframes(keyframes []Keyframe, t float64, interp Interp) float64 {
	switch len(keyframes) {
	case 0:
		return 0
	case 1:
		return keyframes[0].Value
	}

	if t <= keyframes[0].Time {
		return keyframes[0].Value
	}
	last := keyframes[len(keyframes)-1]
	if t >= last.Time {
		return last.Value
	}

	for i := 0; i < len(keyframes)-1; i++ {
		k0 := keyframes[i]
		k1 := keyframes[i+1]
		if t < k0.Time || t > k1.Time {
			continue
		}
		duration := k1.Time - k0.Time
		if duration <= 0 {
			return k1.Value
		}
		return k0.Value + ease((t-k0.Time)/duration, interp)*(k1.Value-k0.Value)
	}
	return last.Value
}

func ease(r float64, interp Interp) float64 {
	switch interp {
	case InterpEaseIn:
		return r * r
	case InterpEaseOut:
		return 1 - (1-r)*(1-r)
	case InterpFastInOutWeak:
		return r * r * (3 - 2*r)
	case InterpConstant:
		return 0
	default:
		return r
	}
}

// Rand is the random source distributions draw from. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// RandomInRange returns a value in [min, max]. A nil rng picks min.
func RandomInRange(rng Rand, min, max float64) float64 {
	if min == max || rng == nil {
		return min
	}
	return min + rng.Float64()*(max-min)
}

// RoundToInt rounds half away from zero.
func RoundToInt(v float64) int {
	return int(math.Round(v))
}
