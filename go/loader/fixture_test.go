package loader

import (
	"bytes"
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"encoding/binary"
)

var testCode = []byte{0x90, 0x5f, 0xc3, 0xff, 0xe0}

func writeAll(order binary.ByteOrder, parts ...interface{}) []byte {
	var buf bytes.Buffer
	for _, p := range parts {
		if b, ok := p.([]byte); ok {
			buf.Write(b)
			continue
		}
		if err := binary.Write(&buf, order, p); err != nil {
			panic(err)
		}
	}
	return buf.Bytes()
}

// elf64File lays out a header, one PT_LOAD program header and the code,
// mapping the whole file at base.
func elf64File(machine elf.Machine, code []byte, base uint64) []byte {
	hdrSize := binary.Size(elf.Header64{})
	phSize := binary.Size(elf.Prog64{})
	off := uint64(hdrSize + phSize)
	var ident [elf.EI_NIDENT]byte
	copy(ident[:], elfMagic)
	ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	hdr := elf.Header64{
		Ident:     ident,
		Type:      uint16(elf.ET_EXEC),
		Machine:   uint16(machine),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     base + off,
		Phoff:     uint64(hdrSize),
		Ehsize:    uint16(hdrSize),
		Phentsize: uint16(phSize),
		Phnum:     1,
	}
	size := off + uint64(len(code))
	prog := elf.Prog64{
		Type:   uint32(elf.PT_LOAD),
		Flags:  uint32(elf.PF_R | elf.PF_X),
		Vaddr:  base,
		Paddr:  base,
		Filesz: size,
		Memsz:  size,
		Align:  0x1000,
	}
	return writeAll(binary.LittleEndian, hdr, prog, code)
}

func elf32File(machine elf.Machine, code []byte, base uint32) []byte {
	hdrSize := binary.Size(elf.Header32{})
	phSize := binary.Size(elf.Prog32{})
	off := uint32(hdrSize + phSize)
	var ident [elf.EI_NIDENT]byte
	copy(ident[:], elfMagic)
	ident[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	hdr := elf.Header32{
		Ident:     ident,
		Type:      uint16(elf.ET_DYN),
		Machine:   uint16(machine),
		Version:   uint32(elf.EV_CURRENT),
		Entry:     base + off,
		Phoff:     uint32(hdrSize),
		Ehsize:    uint16(hdrSize),
		Phentsize: uint16(phSize),
		Phnum:     2,
	}
	size := off + uint32(phSize) + uint32(len(code))
	load := elf.Prog32{
		Type:   uint32(elf.PT_LOAD),
		Flags:  uint32(elf.PF_R | elf.PF_X),
		Vaddr:  base,
		Paddr:  base,
		Filesz: size,
		Memsz:  size,
		Align:  0x1000,
	}
	stack := elf.Prog32{
		Type:  uint32(elf.PT_GNU_STACK),
		Flags: uint32(elf.PF_R | elf.PF_W),
	}
	return writeAll(binary.LittleEndian, hdr, load, stack, code)
}

// pe64File builds a PE32+ image with a single executable .text section.
func pe64File(code []byte, imageBase uint64) []byte {
	const peOff = 0x80
	dos := make([]byte, peOff)
	copy(dos, mzMagic)
	binary.LittleEndian.PutUint32(dos[0x3c:], peOff)

	optSize := binary.Size(pe.OptionalHeader64{})
	secSize := binary.Size(pe.SectionHeader32{})
	codeOff := uint32(peOff + 4 + binary.Size(pe.FileHeader{}) + optSize + secSize)

	fh := pe.FileHeader{
		Machine:              pe.IMAGE_FILE_MACHINE_AMD64,
		NumberOfSections:     1,
		SizeOfOptionalHeader: uint16(optSize),
		Characteristics:      pe.IMAGE_FILE_EXECUTABLE_IMAGE,
	}
	opt := pe.OptionalHeader64{
		Magic:               0x20b,
		AddressOfEntryPoint: 0x1000,
		ImageBase:           imageBase,
		SectionAlignment:    0x1000,
		FileAlignment:       0x200,
		SizeOfImage:         0x2000,
		SizeOfHeaders:       codeOff,
		DllCharacteristics:  pe.IMAGE_DLLCHARACTERISTICS_NX_COMPAT,
		NumberOfRvaAndSizes: 16,
	}
	var name [8]uint8
	copy(name[:], ".text")
	sec := pe.SectionHeader32{
		Name:             name,
		VirtualSize:      uint32(len(code)),
		VirtualAddress:   0x1000,
		SizeOfRawData:    uint32(len(code)),
		PointerToRawData: codeOff,
		Characteristics:  pe.IMAGE_SCN_CNT_CODE | pe.IMAGE_SCN_MEM_READ | pe.IMAGE_SCN_MEM_EXECUTE,
	}
	return writeAll(binary.LittleEndian, dos, []byte("PE\x00\x00"), fh, opt, sec, code)
}

type machoSegment64 struct {
	Cmd     uint32
	Len     uint32
	Name    [16]byte
	Addr    uint64
	Memsz   uint64
	Offset  uint64
	Filesz  uint64
	Maxprot uint32
	Prot    uint32
	Nsect   uint32
	Flag    uint32
}

// macho64File maps the whole file as __TEXT and points LC_MAIN at the code.
func macho64File(code []byte, base uint64) []byte {
	return macho64Build(code, base, macho.CpuAmd64, false)
}

// macho64ThreadFile sets the entry point with an x86_THREAD_STATE64
// LC_UNIXTHREAD instead.
func macho64ThreadFile(code []byte, base uint64) []byte {
	return macho64Build(code, base, macho.CpuAmd64, true)
}

func macho64Build(code []byte, base uint64, cpu macho.Cpu, thread bool) []byte {
	hdrSize := binary.Size(macho.FileHeader{}) + 4
	segSize := binary.Size(machoSegment64{})
	entrySize := binary.Size(machoEntryCmd{})
	var regs [21]uint64
	if thread {
		entrySize = binary.Size(machoThreadCmd{}) + binary.Size(regs)
	}
	codeOff := uint64(hdrSize + segSize + entrySize)
	total := codeOff + uint64(len(code))

	fh := macho.FileHeader{
		Magic: macho.Magic64,
		Cpu:   cpu,
		Type:  macho.TypeExec,
		Ncmd:  2,
		Cmdsz: uint32(segSize + entrySize),
		Flags: macho.FlagPIE,
	}
	var name [16]byte
	copy(name[:], "__TEXT")
	seg := machoSegment64{
		Cmd:     uint32(macho.LoadCmdSegment64),
		Len:     uint32(segSize),
		Name:    name,
		Addr:    base,
		Memsz:   total,
		Filesz:  total,
		Maxprot: 5,
		Prot:    5,
	}
	if thread {
		cmd := machoThreadCmd{
			Cmd:    uint32(macho.LoadCmdUnixThread),
			Size:   uint32(entrySize),
			Flavor: 4,
			Count:  uint32(len(regs) * 2),
		}
		// rip
		regs[16] = base + codeOff
		return writeAll(binary.LittleEndian, fh, uint32(0), seg, cmd, regs, code)
	}
	main := machoEntryCmd{
		Cmd:      machoLoadCmdMain,
		Size:     uint32(entrySize),
		EntryOff: codeOff,
	}
	return writeAll(binary.LittleEndian, fh, uint32(0), seg, main, code)
}

// machoFat wraps thin Mach-O images in a universal header, placing each
// slice on a 0x1000 boundary.
func machoFat(cpus []macho.Cpu, slices ...[]byte) []byte {
	type fatHeader struct {
		Magic, Narch uint32
	}
	type fatArch struct {
		Cpu, SubCpu, Offset, Size, Align uint32
	}
	parts := []interface{}{fatHeader{macho.MagicFat, uint32(len(slices))}}
	off := uint32(0x1000)
	var body []byte
	for i, s := range slices {
		parts = append(parts, fatArch{Cpu: uint32(cpus[i]), Offset: off, Size: uint32(len(s)), Align: 12})
		pad := make([]byte, int(off)-0x1000-len(body))
		body = append(append(body, pad...), s...)
		off += (uint32(len(s)) + 0xfff) &^ 0xfff
	}
	hdr := writeAll(binary.BigEndian, parts...)
	pad := make([]byte, 0x1000-len(hdr))
	return append(append(hdr, pad...), body...)
}
