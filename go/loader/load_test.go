package loader

import (
	"debug/elf"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"

	"github.com/lunixbochs/ropcorn/go/models"
)

func TestLoad(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
		typ  models.Type
		arch models.Arch
	}{
		{"elf64", elf64File(elf.EM_X86_64, testCode, 0x400000), models.TypeELF64, models.ArchX86_64},
		{"elf32", elf32File(elf.EM_386, testCode, 0x8048000), models.TypeELF32, models.ArchX86},
		{"pe", pe64File(testCode, 0x140000000), models.TypePE, models.ArchX86_64},
		{"macho", macho64File(testCode, 0x100000000), models.TypeMachO64, models.ArchX86_64},
	}
	for _, c := range cases {
		bin, err := Load(c.name, c.raw, models.NewConfig())
		if err != nil {
			t.Fatalf("%s: %+v", c.name, err)
		}
		if bin.Type != c.typ || bin.Arch != c.arch || bin.Endian != models.EndianLittle {
			t.Fatalf("%s: got %s %s %s", c.name, bin.Type, bin.Arch, bin.Endian)
		}
		if len(bin.ExecSegments()) == 0 {
			t.Fatalf("%s: no executable segment", c.name)
		}
		if bin.Size() != len(c.raw) {
			t.Fatalf("%s: size %d, want %d", c.name, bin.Size(), len(c.raw))
		}
	}
}

func TestLoadIdempotent(t *testing.T) {
	raw := elf64File(elf.EM_X86_64, testCode, 0x400000)
	a, err := Load("a", raw, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Load("a", raw, nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("loading twice differs (-first +second):\n%s", diff)
	}
}

func TestLoadUnrecognized(t *testing.T) {
	for _, raw := range [][]byte{nil, []byte("hello world"), {0x7f, 'E', 'L'}} {
		_, err := Load("junk", raw, nil)
		if !errors.Is(err, models.ErrUnrecognized) {
			t.Fatalf("%q: expected unrecognized, got %v", raw, err)
		}
	}
}

func TestLoadMalformed(t *testing.T) {
	raw := elf64File(elf.EM_X86_64, testCode, 0x400000)
	// point the program headers past the end of the file
	raw[0x20] = 0xff
	raw[0x21] = 0xff
	_, err := Load("bad", raw, nil)
	if !errors.Is(err, models.ErrMalformed) {
		t.Fatalf("expected malformed, got %v", err)
	}
}

func TestLoadNotSupported(t *testing.T) {
	raw := elf64File(elf.EM_PPC64, testCode, 0x400000)
	_, err := Load("ppc", raw, nil)
	if !errors.Is(err, models.ErrNotSupported) {
		t.Fatalf("expected not supported, got %v", err)
	}
}

func TestLoadSegmentOverflow(t *testing.T) {
	raw := elf32File(elf.EM_386, testCode, 0xfffffff0)
	_, err := Load("overflow", raw, nil)
	if !errors.Is(err, models.ErrMalformed) {
		t.Fatalf("expected malformed, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadFile(dir, nil); err == nil {
		t.Fatal("Failed to error on loading a directory.")
	}
	if _, err := LoadFile(filepath.Join(dir, "missing"), nil); err == nil {
		t.Fatal("Failed to error on a missing file.")
	}
	path := filepath.Join(dir, "a.out")
	if err := os.WriteFile(path, elf64File(elf.EM_X86_64, testCode, 0x400000), 0644); err != nil {
		t.Fatal(err)
	}
	bin, err := LoadFile(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if bin.Filename != path {
		t.Fatalf("filename %q, want %q", bin.Filename, path)
	}
}

func TestLoadRawMode(t *testing.T) {
	cfg := models.NewConfig()
	cfg.Arch = models.ArchX86_64
	cfg.RawBase = 0x1000
	bin, err := Load("raw", []byte{0xc3}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if bin.Type != models.TypeRaw || bin.Entry != 0x1000 || bin.Endian != models.EndianLittle {
		t.Fatalf("unexpected raw binary: %s %#x %s", bin.Type, bin.Entry, bin.Endian)
	}
	if len(bin.Segments) != 1 || bin.Segments[0].Addr != 0x1000 || bin.Segments[0].Prot != models.ProtRead|models.ProtExec {
		t.Fatalf("unexpected raw segments: %+v", bin.Segments)
	}

	cfg.Arch = models.ArchMIPS
	cfg.Endian = models.EndianUndef
	bin, err = Load("raw", []byte{0, 0, 0, 0}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if bin.Endian != models.EndianBig {
		t.Fatalf("mips raw endian %s, want big", bin.Endian)
	}
}

func TestLoadRawAlignment(t *testing.T) {
	code := []byte{0x1e, 0xff, 0x2f, 0xe1} // bx lr
	for _, arch := range []models.Arch{models.ArchARM, models.ArchARM64, models.ArchMIPS, models.ArchMIPS64} {
		if _, err := LoadRaw("raw", code, arch, models.EndianUndef, 0x8002); !errors.Is(err, models.ErrBadConfig) {
			t.Fatalf("%s: unaligned base gave %v, want ErrBadConfig", arch, err)
		}
		if _, err := LoadRaw("raw", code, arch, models.EndianUndef, 0x8000); err != nil {
			t.Fatalf("%s: %v", arch, err)
		}
	}
	for _, arch := range []models.Arch{models.ArchX86, models.ArchX86_64} {
		if _, err := LoadRaw("raw", code, arch, models.EndianUndef, 0x8003); err != nil {
			t.Fatalf("%s: %v", arch, err)
		}
	}
}
