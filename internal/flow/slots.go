package flow

// SlotKind is the declared value kind of a configuration slot.
type SlotKind int

const (
	SlotNumeric SlotKind = iota + 1
	SlotString
	SlotStructured
)

// String returns the slot kind name used in rejection reasons.
func (k SlotKind) String() string {
	switch k {
	case SlotNumeric:
		return "numeric"
	case SlotString:
		return "string"
	case SlotStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// configSlots maps recognized target handles to their declared value
// kind. An edge whose target handle appears here is a configuration
// edge; any other handle (including "") denotes a data-flow port.
var configSlots = map[string]SlotKind{
	"port":      SlotNumeric,
	"timeoutMs": SlotNumeric,
	"host":      SlotString,
	"url":       SlotString,
	"path":      SlotString,
	"directory": SlotString,
	"headers":   SlotStructured,
	"mapping":   SlotStructured,
}

// SlotKindFor returns the declared kind for a configuration slot
// handle. The second return value is false when the handle does not
// name a configuration slot.
func SlotKindFor(handle string) (SlotKind, bool) {
	k, ok := configSlots[handle]
	return k, ok
}

// valueKind classifies a configuration value for slot compatibility
// checks. Numbers arrive as int when constructed in Go and as float64
// when decoded from JSON; both count as numeric.
func valueKind(v any) (SlotKind, bool) {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return SlotNumeric, true
	case string:
		return SlotString, true
	case map[string]any, []any:
		return SlotStructured, true
	default:
		return 0, false
	}
}
