package failures

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(ClientInput, ReasonInvalidJobID, "Invalid job ID format"), http.StatusBadRequest},
		{New(Unsupported, ReasonUnsupported, "nope"), http.StatusBadRequest},
		{New(PayloadTooLarge, ReasonSizeExceeded, "too big"), http.StatusRequestEntityTooLarge},
		{New(NotFound, ReasonNotFound, "File not found"), http.StatusNotFound},
		{New(ExternalTool, ReasonConversionFailed, "Conversion failed"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{fmt.Errorf("outer: %w", New(NotFound, ReasonNotFound, "gone")), http.StatusNotFound},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestErrorMessageAndUnwrap(t *testing.T) {
	cause := errors.New("bucket unreachable")
	err := Wrap(Internal, ReasonStorage, "Download failed", cause)

	if err.Error() != "Download failed: bucket unreachable" {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("Wrapped cause should be reachable through errors.Is")
	}
	if err.Detail() != "Download failed" {
		t.Errorf("Internal detail must not leak the cause, got %q", err.Detail())
	}
}

func TestExternalToolDetailIncludesCause(t *testing.T) {
	err := Wrap(ExternalTool, ReasonConversionFailed, "Conversion failed", errors.New("libreoffice: exit status 1"))
	if err.Detail() != "Conversion failed: libreoffice: exit status 1" {
		t.Errorf("Unexpected detail %q", err.Detail())
	}
}

func TestReasonAndKindOfUnclassified(t *testing.T) {
	err := errors.New("boom")
	if KindOf(err) != Internal {
		t.Errorf("Expected Internal, got %s", KindOf(err))
	}
	if ReasonOf(err) != "internal error" {
		t.Errorf("Unexpected reason %q", ReasonOf(err))
	}
	if _, ok := As(err); ok {
		t.Error("As should not match a plain error")
	}
}

func TestDetailFallsBackToReason(t *testing.T) {
	err := New(NotFound, ReasonNotFound, "")
	if err.Detail() != ReasonNotFound || err.Error() != ReasonNotFound {
		t.Errorf("Expected reason as message, got %q / %q", err.Detail(), err.Error())
	}
	if got := Newf(Unsupported, ReasonUnsupported, "from %s to %s", "a", "b").Message; got != "from a to b" {
		t.Errorf("Unexpected formatted message %q", got)
	}
}
