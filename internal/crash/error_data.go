package crash

// SourceType labels where reports from this pipeline originate.
const SourceType = "crashtrack"

// ErrorKind classifies what killed the process.
type ErrorKind string

const (
	KindPanic              ErrorKind = "Panic"
	KindUnhandledException ErrorKind = "UnhandledException"
	KindUnixSignal         ErrorKind = "UnixSignal"
)

// ErrorData is the error payload of a report: what happened and the
// stacks that show where.
type ErrorData struct {
	Kind       ErrorKind    `json:"kind"`
	Message    string       `json:"message,omitempty"`
	SourceType string       `json:"source_type"`
	Stack      StackTrace   `json:"stack"`
	Threads    []ThreadData `json:"threads,omitempty"`
}

// ThreadData is one captured thread: its own stack plus whether it is
// the thread that crashed.
type ThreadData struct {
	Crashed bool       `json:"crashed"`
	Name    string     `json:"name"`
	Stack   StackTrace `json:"stack"`
	State   string     `json:"state,omitempty"`
}
