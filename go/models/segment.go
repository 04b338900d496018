package models

import "math"

type Prot int

const (
	ProtNone  Prot = 0
	ProtRead  Prot = 1
	ProtWrite Prot = 2
	ProtExec  Prot = 4
	ProtAll   Prot = 7
)

func (p Prot) String() string {
	flags := []byte("---")
	if p&ProtRead != 0 {
		flags[0] = 'r'
	}
	if p&ProtWrite != 0 {
		flags[1] = 'w'
	}
	if p&ProtExec != 0 {
		flags[2] = 'x'
	}
	return string(flags)
}

// Segment is a loadable memory region. Data is the file-backed part of the
// region, a view into the owning Binary's raw buffer.
type Segment struct {
	Addr, Size uint64
	Prot       Prot
	Offset     uint64
	Data       []byte
}

func (s *Segment) End() uint64 {
	return s.Addr + s.Size
}

func (s *Segment) Contains(addr uint64) bool {
	return s.Addr <= addr && addr < s.Addr+s.Size
}

func (s *Segment) Exec() bool {
	return s.Prot&ProtExec != 0
}

// Fits reports whether the segment's address range stays inside an address
// space of the given width in bytes.
func (s *Segment) Fits(width int) bool {
	limit := uint64(math.MaxUint64)
	if width < 8 {
		limit = 1<<(uint(width)*8) - 1
	}
	if s.Addr > limit {
		return false
	}
	// compare against the last byte so a region ending at the top of the
	// address space does not overflow
	return s.Size == 0 || s.Size-1 <= limit-s.Addr
}

type Section struct {
	Name       string
	Addr, Size uint64
}
