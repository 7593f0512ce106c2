package hook

// Phase names a point in the request or application lifecycle.
type Phase string

// Per-request phases.
const (
	OnRequest        Phase = "onRequest"
	PreParsing       Phase = "preParsing"
	PreValidation    Phase = "preValidation"
	PreHandler       Phase = "preHandler"
	PreSerialization Phase = "preSerialization"
	OnSend           Phase = "onSend"
	OnResponse       Phase = "onResponse"
	OnTimeout        Phase = "onTimeout"
	OnRequestAbort   Phase = "onRequestAbort"
	OnError          Phase = "onError"
)

// Application phases.
const (
	OnRoute    Phase = "onRoute"
	OnRegister Phase = "onRegister"
	OnReady    Phase = "onReady"
	OnListen   Phase = "onListen"
	PreClose   Phase = "preClose"
	OnClose    Phase = "onClose"
)

// RequestPhases lists the per-request phases in pipeline order.
var RequestPhases = []Phase{
	OnRequest,
	PreParsing,
	PreValidation,
	PreHandler,
	PreSerialization,
	OnSend,
	OnResponse,
	OnTimeout,
	OnRequestAbort,
	OnError,
}

// ApplicationPhases lists the phases that fire once per scope rather than per request.
var ApplicationPhases = []Phase{
	OnRoute,
	OnRegister,
	OnReady,
	OnListen,
	PreClose,
	OnClose,
}

type family uint8

const (
	familyUnknown family = iota
	familyRequest
	familyPayload
	familySend
	familyError
	familyLifecycle
	familyRoute
	familyRegister
)

func (p Phase) family() family {
	switch p {
	case OnRequest, PreValidation, PreHandler, OnResponse, OnTimeout, OnRequestAbort:
		return familyRequest
	case PreParsing:
		return familyPayload
	case PreSerialization, OnSend:
		return familySend
	case OnError:
		return familyError
	case OnReady, OnListen, PreClose, OnClose:
		return familyLifecycle
	case OnRoute:
		return familyRoute
	case OnRegister:
		return familyRegister
	default:
		return familyUnknown
	}
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	return p.family() != familyUnknown
}

// IsRequest reports whether p runs once per request.
func (p Phase) IsRequest() bool {
	switch p.family() {
	case familyRequest, familyPayload, familySend, familyError:
		return true
	}
	return false
}

// IsLifecycle reports whether p is one of the ready, listen and close phases.
func (p Phase) IsLifecycle() bool {
	return p.family() == familyLifecycle
}

func (p Phase) String() string {
	return string(p)
}
