package enums

// Tristate is an answer the chat platform may decline to give.
type Tristate int

const (
	TristateUnknown Tristate = iota
	TristateYes
	TristateNo
)

func TristateOf(v bool) Tristate {
	if v {
		return TristateYes
	}
	return TristateNo
}

// Or resolves Unknown to the given fallback.
func (t Tristate) Or(fallback bool) bool {
	switch t {
	case TristateYes:
		return true
	case TristateNo:
		return false
	default:
		return fallback
	}
}

func (t Tristate) String() string {
	switch t {
	case TristateYes:
		return "yes"
	case TristateNo:
		return "no"
	default:
		return "unknown"
	}
}
