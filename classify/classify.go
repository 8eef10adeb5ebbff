// Package classify decides what an uploaded file really is.
//
// Checks run cheapest first and stop at the first failure: size, then the
// content-sniffed media type against the allow-list, then the client's file
// extension against the extensions permitted for the sniffed type.
package classify

import (
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"fileconv/failures"
)

// Result is the verdict for one upload
type Result struct {
	Accepted     bool
	DetectedType string
	Reason       string // one of the failures.Reason* constants when rejected
	Message      string
}

// Err converts a rejected Result into a failures.Error. Accepted results return nil.
func (r Result) Err() error {
	if r.Accepted {
		return nil
	}
	kind := failures.ClientInput
	if r.Reason == failures.ReasonSizeExceeded {
		kind = failures.PayloadTooLarge
	}
	return failures.New(kind, r.Reason, r.Message)
}

type Classifier struct {
	maxSize int64
	allowed map[string][]string
}

// New builds a classifier. allowed maps media type to the lowercase
// extensions, with leading dot, that a client may use for it.
func New(maxSize int64, allowed map[string][]string) *Classifier {
	norm := make(map[string][]string, len(allowed))
	for t, exts := range allowed {
		for _, e := range exts {
			norm[t] = append(norm[t], strings.ToLower(e))
		}
	}
	return &Classifier{maxSize: maxSize, allowed: norm}
}

func (c *Classifier) MaxSize() int64 { return c.maxSize }

// Classify inspects data and the client-supplied filename
func (c *Classifier) Classify(data []byte, filename string) Result {
	if int64(len(data)) > c.maxSize {
		return Result{
			Reason:  failures.ReasonSizeExceeded,
			Message: fmt.Sprintf("File size exceeds %dMB limit", c.maxSize/(1024*1024)),
		}
	}

	detected := Sniff(data)
	exts, ok := c.allowed[detected]
	if !ok {
		return Result{
			DetectedType: detected,
			Reason:       failures.ReasonTypeNotAllowed,
			Message:      fmt.Sprintf("File type '%s' is not allowed", detected),
		}
	}

	ext := Extension(filename)
	for _, e := range exts {
		if e == ext {
			return Result{Accepted: true, DetectedType: detected}
		}
	}
	return Result{
		DetectedType: detected,
		Reason:       failures.ReasonExtensionMismatch,
		Message:      fmt.Sprintf("Extension '%s' does not match detected type '%s'", ext, detected),
	}
}

// EmptyType is reported for zero-byte input, which mimetype would call text/plain
const EmptyType = "application/x-empty"

// Sniff returns the media type derived from the bytes themselves, without parameters
func Sniff(data []byte) string {
	if len(data) == 0 {
		return EmptyType
	}
	return baseType(mimetype.Detect(data).String())
}

func baseType(s string) string {
	if t, _, err := mime.ParseMediaType(s); err == nil {
		return t
	}
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// Extension returns the lowercase text after the last '.', with the dot, or "" if there is none
func Extension(filename string) string {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return ""
	}
	return "." + strings.ToLower(filename[i+1:])
}

// ReadBounded reads at most max+1 bytes so oversize input is detectable
// without holding the whole stream in memory.
func ReadBounded(r io.Reader, max int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, max+1))
}
