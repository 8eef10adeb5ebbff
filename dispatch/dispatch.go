// Package dispatch picks exactly one conversion strategy for a source type,
// a requested target type and options, and runs it.
package dispatch

import (
	"context"

	"fileconv/config"
	"fileconv/failures"
	"fileconv/logger"
)

// Rule identifies which branch of the dispatch table matched
type Rule int

const (
	RuleUnsupported Rule = iota
	RuleImageConvert
	RuleImageCompress
	RuleImageResize
	RuleImageStrip
	RuleMarkdownToPDF
	RuleOfficeToPDF
	RulePDFToMarkdown
)

func (r Rule) String() string {
	switch r {
	case RuleImageConvert:
		return "image_convert"
	case RuleImageCompress:
		return "image_compress"
	case RuleImageResize:
		return "image_resize"
	case RuleImageStrip:
		return "image_strip_metadata"
	case RuleMarkdownToPDF:
		return "markdown_to_pdf"
	case RuleOfficeToPDF:
		return "office_to_pdf"
	case RulePDFToMarkdown:
		return "pdf_to_markdown"
	default:
		return "unsupported"
	}
}

// IsImage reports whether t is one of the raster types the image strategies handle
func IsImage(t string) bool {
	switch t {
	case config.TypePNG, config.TypeJPEG, config.TypeWebP:
		return true
	}
	return false
}

// Strategies are the conversions the dispatcher can delegate to. Each is a
// bytes-in, bytes-out transformation.
type Strategies interface {
	ConvertImage(ctx context.Context, data []byte, target string) ([]byte, error)
	CompressImage(ctx context.Context, data []byte, quality int) ([]byte, error)
	ResizeImage(ctx context.Context, data []byte, format string, width, height int) ([]byte, error)
	StripMetadata(ctx context.Context, data []byte, format string) ([]byte, error)
	MarkdownToPDF(ctx context.Context, data []byte) ([]byte, error)
	OfficeToPDF(ctx context.Context, data []byte) ([]byte, error)
	PDFToMarkdown(ctx context.Context, data []byte) ([]byte, error)
}

// Plan is the outcome of selection: the matched rule and the type the output will have
type Plan struct {
	Rule   Rule
	Target string
}

// Select evaluates the rules in order and returns the first match. It does
// no I/O, so the same inputs always give the same plan.
func Select(source, target string, opts Options) (Plan, error) {
	if opts == nil {
		opts = None{}
	}
	img := IsImage(source)

	switch {
	case img && IsImage(target):
		return Plan{Rule: RuleImageConvert, Target: target}, nil
	case img && isCompress(opts):
		return Plan{Rule: RuleImageCompress, Target: config.TypeJPEG}, nil
	case img && isResize(opts):
		return Plan{Rule: RuleImageResize, Target: source}, nil
	case img && isStrip(opts):
		return Plan{Rule: RuleImageStrip, Target: source}, nil
	case (source == config.TypeMarkdown || source == config.TypePlain) && target == config.TypePDF:
		return Plan{Rule: RuleMarkdownToPDF, Target: config.TypePDF}, nil
	case source == config.TypeDOCX && target == config.TypePDF:
		return Plan{Rule: RuleOfficeToPDF, Target: config.TypePDF}, nil
	case source == config.TypePDF && target == config.TypeMarkdown:
		return Plan{Rule: RulePDFToMarkdown, Target: config.TypeMarkdown}, nil
	}

	return Plan{Rule: RuleUnsupported}, failures.Newf(failures.Unsupported, failures.ReasonUnsupported,
		"Conversion from '%s' to '%s' is not supported", source, target)
}

func isCompress(o Options) bool {
	_, ok := o.(Compress)
	return ok
}

func isResize(o Options) bool {
	_, ok := o.(Resize)
	return ok
}

func isStrip(o Options) bool {
	_, ok := o.(StripMetadata)
	return ok
}

// Request is one conversion to perform
type Request struct {
	Source  string
	Target  string
	Options Options
	Data    []byte
}

// Outcome carries the converted bytes and their actual type, which can
// differ from the requested target (compression always yields JPEG).
type Outcome struct {
	Rule   Rule
	Target string
	Data   []byte
}

type Dispatcher struct {
	strategies Strategies
}

func New(s Strategies) *Dispatcher {
	return &Dispatcher{strategies: s}
}

// Dispatch selects and runs the strategy for req. Strategy errors come back
// as ExternalTool failures; they are never retried.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Outcome, error) {
	plan, err := Select(req.Source, req.Target, req.Options)
	if err != nil {
		return Outcome{Rule: plan.Rule}, err
	}

	logger.Debugf("Dispatching %s -> %s via %s", req.Source, req.Target, plan.Rule)
	data, err := d.run(ctx, plan, req)
	if err != nil {
		return Outcome{Rule: plan.Rule}, failures.Wrap(failures.ExternalTool, failures.ReasonConversionFailed, "Conversion failed", err)
	}
	return Outcome{Rule: plan.Rule, Target: plan.Target, Data: data}, nil
}

func (d *Dispatcher) run(ctx context.Context, plan Plan, req Request) ([]byte, error) {
	s := d.strategies
	switch plan.Rule {
	case RuleImageConvert:
		return s.ConvertImage(ctx, req.Data, plan.Target)
	case RuleImageCompress:
		return s.CompressImage(ctx, req.Data, req.Options.(Compress).Quality)
	case RuleImageResize:
		r := req.Options.(Resize)
		return s.ResizeImage(ctx, req.Data, req.Source, r.Width, r.Height)
	case RuleImageStrip:
		return s.StripMetadata(ctx, req.Data, req.Source)
	case RuleMarkdownToPDF:
		return s.MarkdownToPDF(ctx, req.Data)
	case RuleOfficeToPDF:
		return s.OfficeToPDF(ctx, req.Data)
	case RulePDFToMarkdown:
		return s.PDFToMarkdown(ctx, req.Data)
	}
	return nil, failures.New(failures.Internal, failures.ReasonUnsupported, "no strategy for rule "+plan.Rule.String())
}
