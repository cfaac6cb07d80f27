package crash

// StackFormat identifies the frame layout version in serialized reports.
const StackFormat = "crashtrack/1"

// StackTrace is an ordered frame sequence, leaf first: index 0 is where
// execution stopped.
type StackTrace struct {
	Format string  `json:"format,omitempty"`
	Frames []Frame `json:"frames"`
}

// NewStackTrace builds a trace in the current format.
func NewStackTrace(frames []Frame) StackTrace {
	return StackTrace{Format: StackFormat, Frames: frames}
}

// Frame is one stack frame. Addresses are hex strings ("0x...") because
// they are captured as raw pointers and never used arithmetically after
// collection. Names is empty until symbol resolution runs; one frame
// resolves to multiple names when the compiler inlined calls.
type Frame struct {
	IP                string       `json:"ip,omitempty"`
	SP                string       `json:"sp,omitempty"`
	SymbolAddress     string       `json:"symbol_address,omitempty"`
	ModuleBaseAddress string       `json:"module_base_address,omitempty"`
	Names             []SymbolName `json:"names,omitempty"`
}

// Resolved reports whether the frame already carries symbolic names.
func (f Frame) Resolved() bool {
	return len(f.Names) > 0
}

// SymbolName is one resolved name for a frame.
type SymbolName struct {
	Name     string `json:"name,omitempty"`
	Filename string `json:"filename,omitempty"`
	LineNo   int    `json:"lineno,omitempty"`
	ColNo    int    `json:"colno,omitempty"`
}
