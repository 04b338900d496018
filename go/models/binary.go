package models

import (
	"sort"

	"github.com/lunixbochs/fvbommel-util/sortorder"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Binary is the format-agnostic model of one loaded file. It is populated
// once by a loader and read-only afterwards.
type Binary struct {
	Filename string
	Raw      []byte

	Type   Type
	Arch   Arch
	Endian Endian
	Entry  uint64

	Segments []Segment
	Sections []Section
	// sorted by address once loading completes
	Symbols []Symbol

	// nil for formats without hardening metadata
	Hardening *Hardening
}

func (b *Binary) Size() int {
	return len(b.Raw)
}

func (b *Binary) AddrSize() int {
	return b.Arch.AddrSize()
}

// Check refuses a binary whose format, architecture or byte order was left
// unresolved by its loader.
func (b *Binary) Check() error {
	if b.Type == TypeUndef {
		return errors.Wrap(ErrUnresolved, "file format not recognized")
	}
	if b.Arch == ArchUndef {
		return errors.Wrap(ErrUnresolved, "architecture not supported")
	}
	if b.Endian == EndianUndef {
		return errors.Wrap(ErrUnresolved, "endianness not supported")
	}
	return nil
}

type symByAddr []Symbol

func (s symByAddr) Len() int      { return len(s) }
func (s symByAddr) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s symByAddr) Less(i, j int) bool {
	if s[i].Addr != s[j].Addr {
		return s[i].Addr < s[j].Addr
	}
	return sortorder.NaturalLess(s[i].Name, s[j].Name)
}

func (b *Binary) SortSymbols() {
	sort.Stable(symByAddr(b.Symbols))
}

// Symbolicate finds the symbol covering addr with a binary search over the
// sorted symbol list.
func (b *Binary) Symbolicate(addr uint64) (sym Symbol, distance uint64, ok bool) {
	i := sort.Search(len(b.Symbols), func(i int) bool { return b.Symbols[i].Addr > addr })
	if i == 0 {
		return
	}
	sym = b.Symbols[i-1]
	if !sym.Contains(addr) {
		return Symbol{}, 0, false
	}
	return sym, addr - sym.Addr, true
}

func (b *Binary) ExecSegments() []Segment {
	return lo.Filter(b.Segments, func(s Segment, _ int) bool { return s.Exec() })
}

// SegmentByProt returns the first segment whose protection is exactly prot.
func (b *Binary) SegmentByProt(prot Prot) *Segment {
	for i := range b.Segments {
		if b.Segments[i].Prot == prot {
			return &b.Segments[i]
		}
	}
	return nil
}

func (b *Binary) IsBadAddr(addr uint64, bad []byte) bool {
	return HasBadByte(addr, b.Arch.AddrSize(), bad)
}

// Close drops the raw buffer and every view into it.
func (b *Binary) Close() {
	b.Raw = nil
	b.Segments = nil
	b.Sections = nil
	b.Symbols = nil
	b.Hardening = nil
}
