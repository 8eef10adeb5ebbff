package dispatch

import (
	"encoding/json"
	"testing"

	"fileconv/failures"
)

func TestParseOptions(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want Options
	}{
		{"nil", nil, None{}},
		{"empty", map[string]any{}, None{}},
		{"no action", map[string]any{"quality": 10.0}, None{}},
		{"compress default", map[string]any{"action": "compress"}, Compress{Quality: DefaultQuality}},
		{"compress quality", map[string]any{"action": "compress", "quality": 35.0}, Compress{Quality: 35}},
		{"compress int", map[string]any{"action": "compress", "quality": 100}, Compress{Quality: 100}},
		{"resize", map[string]any{"action": "resize", "width": 640.0, "height": 480.0}, Resize{Width: 640, Height: 480}},
		{"resize json number", map[string]any{"action": "resize", "width": json.Number("3"), "height": json.Number("4")}, Resize{Width: 3, Height: 4}},
		{"strip", map[string]any{"action": "strip_metadata"}, StripMetadata{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOptions(tt.raw)
			if err != nil {
				t.Fatalf("ParseOptions failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestParseOptionsRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"unknown action", map[string]any{"action": "sharpen"}},
		{"action not string", map[string]any{"action": 3.0}},
		{"quality zero", map[string]any{"action": "compress", "quality": 0.0}},
		{"quality too high", map[string]any{"action": "compress", "quality": 101.0}},
		{"quality fractional", map[string]any{"action": "compress", "quality": 70.5}},
		{"quality string", map[string]any{"action": "compress", "quality": "70"}},
		{"quality null", map[string]any{"action": "compress", "quality": nil}},
		{"resize missing height", map[string]any{"action": "resize", "width": 10.0}},
		{"resize missing width", map[string]any{"action": "resize", "height": 10.0}},
		{"resize negative", map[string]any{"action": "resize", "width": -1.0, "height": 10.0}},
		{"resize zero", map[string]any{"action": "resize", "width": 0.0, "height": 10.0}},
		{"resize string", map[string]any{"action": "resize", "width": "10", "height": 10.0}},
		{"resize huge", map[string]any{"action": "resize", "width": 1e12, "height": 10.0}},
		{"resize max int32", map[string]any{"action": "resize", "width": 2147483647.0, "height": 2147483647.0}},
		{"resize over pixel cap", map[string]any{"action": "resize", "width": json.Number("10000"), "height": json.Number("10000")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOptions(tt.raw)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if failures.KindOf(err) != failures.ClientInput {
				t.Errorf("Expected ClientInput, got %v", failures.KindOf(err))
			}
			if failures.ReasonOf(err) != failures.ReasonInvalidOptions {
				t.Errorf("Expected reason %q, got %q", failures.ReasonInvalidOptions, failures.ReasonOf(err))
			}
		})
	}
}

func TestParseOptionsResizeAtPixelCap(t *testing.T) {
	// 9459*9459 is just under the cap
	opts, err := ParseOptions(map[string]any{"action": "resize", "width": 9459.0, "height": 9459.0})
	if err != nil {
		t.Fatalf("Expected resize under the cap to be accepted: %v", err)
	}
	if opts != (Resize{Width: 9459, Height: 9459}) {
		t.Errorf("Unexpected options %#v", opts)
	}

	_, err = ParseOptions(map[string]any{"action": "resize", "width": 9460.0, "height": 9460.0})
	if failures.ReasonOf(err) != failures.ReasonInvalidOptions {
		t.Errorf("Expected invalid options above the cap, got %v", err)
	}
}
