package arcgis

import "fmt"

// FailureKind enumerates the ways a parcel lookup can fail.
type FailureKind int

const (
	KindTimeout FailureKind = iota + 1
	KindHTTP
	KindNonJSON
	KindMalformedJSON
	KindService
	KindNotFound
)

func (k FailureKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindHTTP:
		return "http_error"
	case KindNonJSON:
		return "non_json_response"
	case KindMalformedJSON:
		return "malformed_json"
	case KindService:
		return "service_error"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// LookupError is returned by Client.Lookup. Match a kind with errors.Is
// against the Err* sentinels, or errors.As to read StatusCode/Message.
type LookupError struct {
	Kind       FailureKind
	StatusCode int    // KindHTTP; 0 when no response arrived
	Message    string // KindService, or detail for other kinds
	Err        error
}

// Sentinels for errors.Is. Only Kind is compared.
var (
	ErrTimeout       = &LookupError{Kind: KindTimeout}
	ErrHTTP          = &LookupError{Kind: KindHTTP}
	ErrNonJSON       = &LookupError{Kind: KindNonJSON}
	ErrMalformedJSON = &LookupError{Kind: KindMalformedJSON}
	ErrService       = &LookupError{Kind: KindService}
	ErrNotFound      = &LookupError{Kind: KindNotFound}
)

func (e *LookupError) Error() string {
	switch e.Kind {
	case KindHTTP:
		if e.StatusCode == 0 {
			// Transport failure: no response, the cause is in Message.
			return "arcgis: http request failed: " + e.Message
		}
		return fmt.Sprintf("arcgis: http status %d", e.StatusCode)
	case KindService:
		return "arcgis: service error: " + e.Message
	default:
		if e.Message != "" {
			return "arcgis: " + e.Kind.String() + ": " + e.Message
		}
		return "arcgis: " + e.Kind.String()
	}
}

func (e *LookupError) Unwrap() error { return e.Err }

// Is matches any LookupError of the same kind.
func (e *LookupError) Is(target error) bool {
	t, ok := target.(*LookupError)
	return ok && t.Kind == e.Kind
}
