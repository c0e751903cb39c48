package summary

// Unavailable is the in-band marker stored as summary text when neither the
// primary summarizer nor the fallback extractor produced anything.
const Unavailable = "[Summary unavailable]"

// Kind tags where a summary came from.
type Kind int

const (
	KindUnavailable Kind = iota
	KindPrimary
	KindFallback
)

func (k Kind) String() string {
	switch k {
	case KindPrimary:
		return "primary"
	case KindFallback:
		return "fallback"
	default:
		return "unavailable"
	}
}

// Result is the outcome of one acquisition attempt. HTTPStatus and
// ErrorDetail describe the primary call: 0 and "" mean absent.
type Result struct {
	Kind        Kind
	Text        string
	HTTPStatus  int
	ErrorDetail string
}

// UsedFallback reports whether Text came from the fallback extractor.
func (r Result) UsedFallback() bool { return r.Kind == KindFallback }

// IsUnavailable reports whether Text is the Unavailable marker.
func (r Result) IsUnavailable() bool { return r.Kind == KindUnavailable }

// StatusPtr returns HTTPStatus, or nil when absent.
func (r Result) StatusPtr() *int {
	if r.HTTPStatus == 0 {
		return nil
	}
	s := r.HTTPStatus
	return &s
}

// ErrorPtr returns ErrorDetail, or nil when absent.
func (r Result) ErrorPtr() *string {
	if r.ErrorDetail == "" {
		return nil
	}
	e := r.ErrorDetail
	return &e
}
