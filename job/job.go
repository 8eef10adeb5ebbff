// Package job runs the upload, convert and download pipeline on top of the
// classifier, the dispatcher and the object store.
package job

import (
	"fileconv/classify"
	"fileconv/config"
	"fileconv/dispatch"
	"fileconv/storage"
)

// State is the lifecycle position of a job. Nothing persists it; it is
// derived from which objects exist and is used for logging.
type State int

const (
	StateCreated State = iota
	StateValidated
	StateStored
	StateConverted
	StateDownloaded
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateValidated:
		return "validated"
	case StateStored:
		return "stored"
	case StateConverted:
		return "converted"
	case StateDownloaded:
		return "downloaded"
	case StateExpired:
		return "expired"
	default:
		return "created"
	}
}

// Service holds the collaborators every pipeline operation needs
type Service struct {
	store      *storage.Store
	classifier *classify.Classifier
	dispatcher *dispatch.Dispatcher
}

func NewService(store *storage.Store, classifier *classify.Classifier, dispatcher *dispatch.Dispatcher) *Service {
	return &Service{store: store, classifier: classifier, dispatcher: dispatcher}
}

// ExtensionFor maps an output content type to the file extension used for
// the converted object's name.
func ExtensionFor(contentType string) string {
	switch contentType {
	case config.TypePNG:
		return ".png"
	case config.TypeJPEG:
		return ".jpg"
	case config.TypeWebP:
		return ".webp"
	case config.TypePDF:
		return ".pdf"
	case config.TypeMarkdown:
		return ".md"
	default:
		return ".bin"
	}
}
