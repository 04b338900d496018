package loader

import (
	"bytes"
	"debug/macho"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/lunixbochs/ropcorn/go/models"
)

const (
	machoLoadCmdReqDyld = 0x80000000
	machoLoadCmdMain    = 0x28 | machoLoadCmdReqDyld
)

var machoCpuMap = map[macho.Cpu]models.Arch{
	macho.Cpu386:   models.ArchX86,
	macho.CpuAmd64: models.ArchX86_64,
	macho.CpuArm:   models.ArchARM,
	macho.CpuArm64: models.ArchARM64,
}

// program counter slot in each flavor's LC_UNIXTHREAD register state
var machoThreadPC = map[macho.Cpu]struct{ index, width int }{
	macho.Cpu386:   {10, 4},
	macho.CpuAmd64: {16, 8},
	macho.CpuArm:   {15, 4},
	macho.CpuArm64: {32, 8},
}

var fatMagic = []byte{0xca, 0xfe, 0xba, 0xbe}

type machoEntryCmd struct {
	Cmd, Size uint32
	EntryOff  uint64
	StackSize uint64
}

type machoThreadCmd struct {
	Cmd, Size     uint32
	Flavor, Count uint32
}

type MachOLoader struct {
	name   string
	typ    models.Type
	magic  uint32
	magics [][]byte
}

var (
	MachO32 = &MachOLoader{
		name:   "Mach-O32",
		typ:    models.TypeMachO32,
		magic:  macho.Magic32,
		magics: [][]byte{{0xfe, 0xed, 0xfa, 0xce}, {0xce, 0xfa, 0xed, 0xfe}},
	}
	MachO64 = &MachOLoader{
		name:   "Mach-O64",
		typ:    models.TypeMachO64,
		magic:  macho.Magic64,
		magics: [][]byte{{0xfe, 0xed, 0xfa, 0xcf}, {0xcf, 0xfa, 0xed, 0xfe}},
	}
)

func (m *MachOLoader) Name() string { return m.name }

func (m *MachOLoader) Match(raw []byte) bool {
	magic := getMagic(raw)
	for _, check := range m.magics {
		if bytes.Equal(magic, check) {
			return true
		}
	}
	return false
}

// openFat picks the first slice of a universal binary with a supported CPU.
func (m *MachOLoader) openFat(raw []byte) (*macho.File, uint64, error) {
	fat, err := macho.NewFatFile(bytes.NewReader(raw))
	if errors.Is(err, macho.ErrNotFat) {
		return nil, 0, models.ErrUnrecognized
	} else if err != nil {
		return nil, 0, malformed(m.name, err)
	}
	for _, arch := range fat.Arches {
		if _, ok := machoCpuMap[arch.Cpu]; !ok {
			continue
		}
		if arch.File.Magic != m.magic {
			return nil, 0, models.ErrUnrecognized
		}
		return arch.File, uint64(arch.Offset), nil
	}
	return nil, 0, errors.Wrapf(models.ErrNotSupported, "%s: no supported architecture in fat binary", m.name)
}

func (m *MachOLoader) Load(raw []byte) (bin *models.Binary, err error) {
	defer catchPanic(m.name, &err)
	var (
		file      *macho.File
		fatOffset uint64
	)
	if bytes.Equal(getMagic(raw), fatMagic) {
		if file, fatOffset, err = m.openFat(raw); err != nil {
			return nil, err
		}
	} else if m.Match(raw) {
		if file, err = macho.NewFile(bytes.NewReader(raw)); err != nil {
			return nil, malformed(m.name, err)
		}
	} else {
		return nil, models.ErrUnrecognized
	}
	arch, ok := machoCpuMap[file.Cpu]
	if !ok {
		return nil, errors.Wrapf(models.ErrNotSupported, "%s: cpu %s", m.name, file.Cpu)
	}
	endian := models.EndianLittle
	if file.ByteOrder == binary.BigEndian {
		endian = models.EndianBig
	}
	entry, err := m.findEntry(file)
	if err != nil {
		return nil, err
	}
	l := &LoaderBase{typ: m.typ, arch: arch, endian: endian, entry: entry}
	bin = l.binary(raw)

	for _, load := range file.Loads {
		s, ok := load.(*macho.Segment)
		if !ok || s.Name == "__PAGEZERO" {
			continue
		}
		seg, err := mapSegment(m.name, raw, arch, s.Addr, s.Memsz, fatOffset+s.Offset, s.Filesz, models.Prot(s.Prot)&models.ProtAll)
		if err != nil {
			return nil, err
		}
		bin.Segments = append(bin.Segments, seg)
	}
	for _, sec := range file.Sections {
		bin.Sections = append(bin.Sections, models.Section{Name: sec.Name, Addr: sec.Addr, Size: sec.Size})
	}
	if file.Symtab != nil {
		dynamic := make(map[uint32]bool)
		if file.Dysymtab != nil {
			for _, v := range file.Dysymtab.IndirectSyms {
				dynamic[v] = true
			}
		}
		for i, s := range file.Symtab.Syms {
			if s.Sect == 0 || s.Name == "" {
				continue
			}
			bin.Symbols = append(bin.Symbols, models.Symbol{Name: s.Name, Addr: s.Value, Dynamic: dynamic[uint32(i)]})
		}
	}
	bin.Hardening = machoHardening(file, bin.Symbols)
	return bin, nil
}

func (m *MachOLoader) findEntry(f *macho.File) (uint64, error) {
	for _, l := range f.Loads {
		data := l.Raw()
		if len(data) < 8 {
			continue
		}
		stream := &models.StrucStream{Stream: bytes.NewBuffer(data), Order: f.ByteOrder}
		switch macho.LoadCmd(f.ByteOrder.Uint32(data)) {
		case macho.LoadCmdUnixThread:
			var cmd machoThreadCmd
			if err := stream.Unpack(&cmd); err != nil {
				return 0, malformed(m.name, err)
			}
			pc, ok := machoThreadPC[f.Cpu]
			if !ok {
				return 0, errors.Wrapf(models.ErrNotSupported, "%s: thread state for %s", m.name, f.Cpu)
			}
			if 16+(pc.index+1)*pc.width > len(data) {
				return 0, malformedf(m.name, "LC_UNIXTHREAD flavor %d is truncated", cmd.Flavor)
			}
			if err := stream.Skip(pc.index * pc.width); err != nil {
				return 0, malformed(m.name, err)
			}
			entry, err := stream.Word(pc.width)
			if err != nil {
				return 0, malformed(m.name, err)
			}
			return entry, nil
		case machoLoadCmdMain:
			var cmd machoEntryCmd
			if err := stream.Unpack(&cmd); err != nil {
				return 0, malformed(m.name, err)
			}
			text := f.Segment("__TEXT")
			if text == nil {
				return 0, malformedf(m.name, "found LC_MAIN but no __TEXT segment")
			}
			return text.Addr + cmd.EntryOff, nil
		}
	}
	// dylibs and bundles have no entry point
	return 0, nil
}

func machoHardening(f *macho.File, syms []models.Symbol) *models.Hardening {
	h := &models.Hardening{
		NX:  models.ToggleOf(f.Flags&macho.FlagAllowStackExecution == 0),
		PIE: models.ToggleOf(f.Flags&macho.FlagPIE != 0),
		SSP: models.Disabled,
	}
	for _, s := range syms {
		if s.Name == "___stack_chk_fail" || s.Name == "___stack_chk_guard" {
			h.SSP = models.Enabled
			break
		}
	}
	if h.SSP != models.Enabled {
		if imports, err := f.ImportedSymbols(); err == nil {
			for _, name := range imports {
				if name == "___stack_chk_fail" {
					h.SSP = models.Enabled
					break
				}
			}
		}
	}
	return h
}
