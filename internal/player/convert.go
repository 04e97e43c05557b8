package player

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/friendsincode/playcore/internal/playlist"
	"github.com/friendsincode/playcore/internal/track"
)

var errFormat = errors.New("unsupported value format")

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		switch strings.ToLower(x) {
		case "yes", "true", "1":
			return true, nil
		case "no", "false", "0":
			return false, nil
		}
	case int:
		return x != 0, nil
	case int64:
		return x != 0, nil
	case float64:
		return x != 0, nil
	}
	return false, fmt.Errorf("%T as flag: %w", v, errFormat)
}

// toFloat rejects NaN and infinities; no option or seek target means
// anything with them.
func toFloat(v any) (float64, error) {
	f, err := parseFloat(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v: %w", f, errFormat)
	}
	return f, nil
}

func parseFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%q: %w", x, errFormat)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%T as number: %w", v, errFormat)
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != float64(int(x)) {
			return 0, fmt.Errorf("%v: %w", x, errFormat)
		}
		return int(x), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("%q: %w", x, errFormat)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%T as integer: %w", v, errFormat)
}

func toString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case fmt.Stringer:
		return x.String(), nil
	case bool:
		if x {
			return "yes", nil
		}
		return "no", nil
	case int, int64, float64:
		return fmt.Sprint(x), nil
	}
	return "", fmt.Errorf("%T as string: %w", v, errFormat)
}

func toList(v any) ([]string, error) {
	switch x := v.(type) {
	case []string:
		return append([]string(nil), x...), nil
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			s, err := toString(item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		var out []string
		for _, part := range strings.Split(x, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("%T as list: %w", v, errFormat)
}

// toTrackID accepts "auto", "no"/false or a positive id.
func toTrackID(v any) (int, error) {
	return toSelector(v, 1)
}

// toStreamIndex is toTrackID for demuxer stream indexes, which start at 0.
func toStreamIndex(v any) (int, error) {
	return toSelector(v, 0)
}

func toSelector(v any, min int) (int, error) {
	switch x := v.(type) {
	case bool:
		if !x {
			return track.Off, nil
		}
		return track.Auto, nil
	case string:
		switch x {
		case "auto":
			return track.Auto, nil
		case "no":
			return track.Off, nil
		}
	}
	id, err := toInt(v)
	if err != nil {
		return 0, err
	}
	if id < min {
		return 0, fmt.Errorf("track id %d: %w", id, errFormat)
	}
	return id, nil
}

// toLoopCount maps "no" to 1, "inf" to playlist.LoopInfinite and n to n.
func toLoopCount(v any) (int, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return playlist.LoopInfinite, nil
		}
		return 1, nil
	case string:
		switch x {
		case "no":
			return 1, nil
		case "inf", "yes":
			return playlist.LoopInfinite, nil
		}
	}
	n, err := toInt(v)
	if err != nil {
		return 0, err
	}
	switch {
	case n < 0:
		return playlist.LoopInfinite, nil
	case n == 0:
		return 1, nil
	}
	return n, nil
}
