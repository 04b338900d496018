package loader

import (
	"bytes"
	"debug/macho"
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"

	"github.com/lunixbochs/ropcorn/go/models"
)

func TestMachOLoad(t *testing.T) {
	raw := macho64File(testCode, 0x100000000)
	if _, err := MachO32.Load(raw); err != models.ErrUnrecognized {
		t.Fatalf("Mach-O32 loader claimed a 64-bit file: %v", err)
	}
	bin, err := MachO64.Load(raw)
	if err != nil {
		t.Fatal(err)
	}
	codeOff := uint64(len(raw) - len(testCode))
	if bin.Entry != 0x100000000+codeOff {
		t.Fatalf("entry %#x", bin.Entry)
	}
}

func TestMachOSegments(t *testing.T) {
	raw := macho64File(testCode, 0x100000000)
	bin, err := MachO64.Load(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(bin.Segments) != 1 {
		t.Fatalf("found %d segments", len(bin.Segments))
	}
	seg := bin.Segments[0]
	if seg.Prot != models.ProtRead|models.ProtExec || len(seg.Data) != len(raw) {
		t.Fatalf("unexpected segment %s %d", seg.Prot, len(seg.Data))
	}
	if bin.Hardening.PIE != models.Enabled || bin.Hardening.NX != models.Enabled {
		t.Fatalf("unexpected hardening %+v", bin.Hardening)
	}
}

func TestMachOUnixThread(t *testing.T) {
	raw := macho64ThreadFile(testCode, 0x100000000)
	bin, err := MachO64.Load(raw)
	if err != nil {
		t.Fatal(err)
	}
	codeOff := uint64(len(raw) - len(testCode))
	if bin.Entry != 0x100000000+codeOff {
		t.Fatalf("entry %#x", bin.Entry)
	}

	// cut the thread state short of rip
	short := append([]byte(nil), raw...)
	off := binary.Size(macho.FileHeader{}) + 4 + binary.Size(machoSegment64{})
	binary.LittleEndian.PutUint32(short[off+4:], 16+8*8)
	if _, err := MachO64.Load(short); err == nil {
		t.Fatal("truncated LC_UNIXTHREAD was accepted")
	}
}

func TestMachOFat(t *testing.T) {
	thin := macho64File(testCode, 0x100000000)
	fat := machoFat([]macho.Cpu{macho.CpuAmd64}, thin)

	if _, err := MachO32.Load(fat); err != models.ErrUnrecognized {
		t.Fatalf("Mach-O32 loader claimed a 64-bit slice: %v", err)
	}
	bin, err := Load("fat", fat, nil)
	if err != nil {
		t.Fatal(err)
	}
	if bin.Type != models.TypeMachO64 || bin.Arch != models.ArchX86_64 {
		t.Fatalf("loaded as %s %s", bin.Type, bin.Arch)
	}
	want, err := MachO64.Load(thin)
	if err != nil {
		t.Fatal(err)
	}
	if bin.Entry != want.Entry {
		t.Fatalf("entry %#x, want %#x", bin.Entry, want.Entry)
	}
	if len(bin.Segments) != 1 || !bytes.Equal(bin.Segments[0].Data, want.Segments[0].Data) {
		t.Fatal("fat slice segment data differs from the thin image")
	}
	if bin.Segments[0].Offset != 0x1000 {
		t.Fatalf("segment offset %#x, want the slice offset", bin.Segments[0].Offset)
	}

	ppc := macho64Build(testCode, 0x100000000, macho.CpuPpc64, false)
	_, err = MachO64.Load(machoFat([]macho.Cpu{macho.CpuPpc64}, ppc))
	if !errors.Is(err, models.ErrNotSupported) {
		t.Fatalf("unsupported slice: %v", err)
	}

	// the first supported slice wins
	bin, err = MachO64.Load(machoFat([]macho.Cpu{macho.CpuPpc64, macho.CpuAmd64}, ppc, thin))
	if err != nil {
		t.Fatal(err)
	}
	if bin.Arch != models.ArchX86_64 || !bytes.Equal(bin.Segments[0].Data, want.Segments[0].Data) {
		t.Fatalf("picked the wrong slice: %s", bin.Arch)
	}
}
