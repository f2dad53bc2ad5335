package relay

// TypeConsole is the only message type the listener accepts.
const TypeConsole = "console"

// Method is an instrumented console method.
type Method string

const (
	MethodLog   Method = "log"
	MethodInfo  Method = "info"
	MethodDebug Method = "debug"
	MethodWarn  Method = "warn"
	MethodError Method = "error"
	MethodTable Method = "table"
)

// Valid reports whether m is one of the relayed console methods.
func (m Method) Valid() bool {
	switch m {
	case MethodLog, MethodInfo, MethodDebug, MethodWarn, MethodError, MethodTable:
		return true
	}
	return false
}

// Origin names where a document executes and posts from.
type Origin string

const (
	// OriginHeadless is the in-process goja execution.
	OriginHeadless Origin = "headless"
	// OriginBridge is a browser preview forwarding its iframe's messages.
	OriginBridge Origin = "bridge"
)

// Message is the cross-boundary payload {type, method, args}. Source is the
// handle of the posting document and Origin the execution it came from; both
// are attached by the host, never trusted from the payload.
type Message struct {
	Type   string `json:"type"`
	Method Method `json:"method"`
	Args   []any  `json:"args"`
	Source string `json:"-"`
	Origin Origin `json:"-"`
}

// Console builds a console message from source.
func Console(source string, method Method, args ...any) Message {
	return Message{Type: TypeConsole, Method: method, Args: args, Source: source}
}
