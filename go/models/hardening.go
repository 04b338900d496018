package models

// Toggle is a tri-state hardening flag.
type Toggle int

const (
	Unknown Toggle = iota
	Disabled
	Enabled
)

func (t Toggle) String() string {
	switch t {
	case Disabled:
		return "disabled"
	case Enabled:
		return "enabled"
	default:
		return "unknown"
	}
}

func ToggleOf(on bool) Toggle {
	if on {
		return Enabled
	}
	return Disabled
}

type Relro int

const (
	RelroUnknown Relro = iota
	RelroNone
	RelroPartial
	RelroFull
)

func (r Relro) String() string {
	switch r {
	case RelroNone:
		return "disabled"
	case RelroPartial:
		return "partial"
	case RelroFull:
		return "full"
	default:
		return "unknown"
	}
}

// Hardening holds the exploit mitigations a container format can describe.
// Formats that have no notion of a flag leave it Unknown.
type Hardening struct {
	NX      Toggle
	SSP     Toggle
	PIE     Toggle
	RPath   Toggle
	RunPath Toggle
	Relro   Relro
}
