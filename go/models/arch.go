package models

import (
	"encoding/binary"
	"sort"

	"github.com/lunixbochs/fvbommel-util/sortorder"
	"github.com/pkg/errors"
)

type Arch int

const (
	ArchUndef Arch = iota
	ArchX86
	ArchX86_64
	ArchARM
	ArchARM64
	ArchMIPS
	ArchMIPS64
)

func (a Arch) String() string {
	switch a {
	case ArchX86:
		return "x86"
	case ArchX86_64:
		return "x86-64"
	case ArchARM:
		return "arm"
	case ArchARM64:
		return "arm64"
	case ArchMIPS:
		return "mips"
	case ArchMIPS64:
		return "mips64"
	default:
		return "unknown"
	}
}

// AddrSize returns the width of an address in bytes. Unknown architectures
// are treated as 64-bit.
func (a Arch) AddrSize() int {
	switch a {
	case ArchX86, ArchARM:
		return 4
	default:
		return 8
	}
}

// Bits is AddrSize in bits.
func (a Arch) Bits() int {
	return a.AddrSize() * 8
}

// InsAlign is the alignment the CPU requires of instruction addresses.
func (a Arch) InsAlign() int {
	switch a {
	case ArchARM, ArchARM64, ArchMIPS, ArchMIPS64:
		return 4
	default:
		return 1
	}
}

// DefaultEndian is used by raw mode when the caller did not pick one.
func (a Arch) DefaultEndian() Endian {
	switch a {
	case ArchUndef:
		return EndianUndef
	case ArchMIPS, ArchMIPS64:
		return EndianBig
	default:
		return EndianLittle
	}
}

type Endian int

const (
	EndianUndef Endian = iota
	EndianBig
	EndianLittle
)

func (e Endian) String() string {
	switch e {
	case EndianBig:
		return "big endian"
	case EndianLittle:
		return "little endian"
	default:
		return "unknown"
	}
}

func (e Endian) ByteOrder() binary.ByteOrder {
	if e == EndianBig {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func ParseEndian(s string) (Endian, error) {
	switch s {
	case "", "default":
		return EndianUndef, nil
	case "little", "le":
		return EndianLittle, nil
	case "big", "be":
		return EndianBig, nil
	}
	return EndianUndef, errors.Wrapf(ErrBadConfig, "%s: bad endianness ('little' or 'big')", s)
}

type archName struct {
	arch   Arch
	endian Endian
}

var archNames = map[string]archName{
	"x86":      {ArchX86, EndianLittle},
	"x86-64":   {ArchX86_64, EndianLittle},
	"arm":      {ArchARM, EndianLittle},
	"armeb":    {ArchARM, EndianBig},
	"arm64":    {ArchARM64, EndianLittle},
	"mips":     {ArchMIPS, EndianBig},
	"mipsel":   {ArchMIPS, EndianLittle},
	"mips64":   {ArchMIPS64, EndianBig},
	"mips64el": {ArchMIPS64, EndianLittle},
}

// ParseArch resolves a command-line architecture name. Some names imply a
// byte order (mipsel, armeb...).
func ParseArch(name string) (Arch, Endian, error) {
	if a, ok := archNames[name]; ok {
		return a.arch, a.endian, nil
	}
	return ArchUndef, EndianUndef, errors.Wrapf(ErrBadConfig, "%s: bad architecture", name)
}

// ArchNames lists every name accepted by ParseArch in natural order.
func ArchNames() []string {
	names := make([]string, 0, len(archNames))
	for name := range archNames {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return sortorder.NaturalLess(names[i], names[j]) })
	return names
}

type Type int

const (
	TypeUndef Type = iota
	TypeELF32
	TypeELF64
	TypePE
	TypeMachO32
	TypeMachO64
	TypeRaw
)

func (t Type) String() string {
	switch t {
	case TypeELF32:
		return "ELF32"
	case TypeELF64:
		return "ELF64"
	case TypePE:
		return "PE"
	case TypeMachO32:
		return "Mach-O (32 bits)"
	case TypeMachO64:
		return "Mach-O (64 bits)"
	case TypeRaw:
		return "raw"
	default:
		return "unknown"
	}
}

func (t Type) IsELF() bool   { return t == TypeELF32 || t == TypeELF64 }
func (t Type) IsMachO() bool { return t == TypeMachO32 || t == TypeMachO64 }
