package dispatch

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"fileconv/config"
	"fileconv/failures"
)

// DefaultQuality is used by Compress when the client gives none
const DefaultQuality = 70

// Options is the closed set of conversion modifiers a client may request.
// It is one of None, Compress, Resize or StripMetadata.
type Options interface {
	action() string
}

type None struct{}

// Compress re-encodes an image as JPEG at Quality (1..100)
type Compress struct {
	Quality int
}

// Resize scales an image to exactly Width x Height, ignoring aspect ratio
type Resize struct {
	Width  int
	Height int
}

type StripMetadata struct{}

func (None) action() string          { return "" }
func (Compress) action() string      { return "compress" }
func (Resize) action() string        { return "resize" }
func (StripMetadata) action() string { return "strip_metadata" }

// ParseOptions turns the loosely typed options object of a convert request
// into Options. A missing or empty action means None.
func ParseOptions(raw map[string]any) (Options, error) {
	if len(raw) == 0 {
		return None{}, nil
	}

	action := ""
	if v, ok := raw["action"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return nil, invalidOptions("action must be a string")
		}
		action = strings.TrimSpace(s)
	}

	switch action {
	case "":
		return None{}, nil
	case "compress":
		q := DefaultQuality
		if _, present := raw["quality"]; present {
			v, err := intField(raw, "quality")
			if err != nil {
				return nil, err
			}
			q = v
		}
		if q < 1 || q > 100 {
			return nil, invalidOptions(fmt.Sprintf("quality must be between 1 and 100, got %d", q))
		}
		return Compress{Quality: q}, nil
	case "resize":
		w, err := requiredInt(raw, "width")
		if err != nil {
			return nil, err
		}
		h, err := requiredInt(raw, "height")
		if err != nil {
			return nil, err
		}
		if w <= 0 || h <= 0 {
			return nil, invalidOptions(fmt.Sprintf("width and height must be positive, got %dx%d", w, h))
		}
		if int64(w)*int64(h) > config.DefaultMaxImagePixels {
			return nil, invalidOptions(fmt.Sprintf("%dx%d exceeds the limit of %d pixels", w, h, config.DefaultMaxImagePixels))
		}
		return Resize{Width: w, Height: h}, nil
	case "strip_metadata":
		return StripMetadata{}, nil
	default:
		return nil, invalidOptions(fmt.Sprintf("unknown action '%s'", action))
	}
}

func requiredInt(raw map[string]any, name string) (int, error) {
	if v, ok := raw[name]; !ok || v == nil {
		return 0, invalidOptions(fmt.Sprintf("%s is required", name))
	}
	return intField(raw, name)
}

// intField accepts the numeric shapes a JSON decoder can produce, but only integral values
func intField(raw map[string]any, name string) (int, error) {
	var f float64
	switch v := raw[name].(type) {
	case int:
		return v, nil
	case int64:
		f = float64(v)
	case float64:
		f = v
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, invalidOptions(fmt.Sprintf("%s must be an integer", name))
		}
		f = n
	default:
		return 0, invalidOptions(fmt.Sprintf("%s must be an integer", name))
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, invalidOptions(fmt.Sprintf("%s must be an integer", name))
	}
	return int(f), nil
}

func invalidOptions(msg string) error {
	return failures.New(failures.ClientInput, failures.ReasonInvalidOptions, "Invalid options: "+msg)
}
