package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

)

// counterValue gathers the registry and returns the counter with the given labels
func counterValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestObserveConversion(t *testing.T) {
	labels := map[string]string{"rule": "image_convert", "outcome": "ok"}
	before := counterValue(t, "fileconv_conversions_total", labels)
	ObserveConversion("image_convert", "ok", 150*time.Millisecond)

	if got := counterValue(t, "fileconv_conversions_total", labels); got != before+1 {
		t.Errorf("Expected counter to grow by one, got %v -> %v", before, got)
	}
}

func TestHandlerExposesInstruments(t *testing.T) {
	Uploads.WithLabelValues("accepted").Inc()
	ObserveConversion("office_to_pdf", "external_tool", time.Second)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, name := range []string{"fileconv_uploads_total", "fileconv_conversions_total", "go_goroutines"} {
		if !strings.Contains(body, name) {
			t.Errorf("Expected %s in exposition", name)
		}
	}
}
