package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunixbochs/ropcorn/go/gadget"
	"github.com/lunixbochs/ropcorn/go/loader"
	"github.com/lunixbochs/ropcorn/go/models"
)

func TestPrintGadgets(t *testing.T) {
	bin, err := loader.LoadRaw("raw", []byte{0x90, 0xc3}, models.ArchX86_64, models.EndianUndef, 0xfff)
	require.NoError(t, err)
	cfg := models.NewConfig()
	cfg.Filter = false
	cfg.Depth = 2
	gadgets, err := gadget.Find(bin, cfg)
	require.NoError(t, err)

	var buf bytes.Buffer
	NewPrinter(&buf, cfg).PrintGadgets(bin, gadgets)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "0x0000000000000fff -> nop; ret", lines[0])
	assert.Equal(t, "0x0000000000001000 -> ret", lines[1])
	assert.Equal(t, "2 unique gadgets found", lines[3])
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestPrintInfos(t *testing.T) {
	bin, err := loader.LoadRaw("blob.bin", []byte{0xc3}, models.ArchX86, models.EndianUndef, 0x8048000)
	require.NoError(t, err)
	bin.Symbols = []models.Symbol{{Name: "_ZN3foo3barEv", Addr: 0x8048000, Size: 1}}
	cfg := models.NewConfig()
	cfg.Demangle = true

	var buf bytes.Buffer
	p := NewPrinter(&buf, cfg)
	p.PrintInfos(bin)
	p.PrintSegments(bin)
	p.PrintSymbols(bin)
	out := buf.String()
	assert.Contains(t, out, "blob.bin")
	assert.Contains(t, out, "0x08048000")
	assert.Contains(t, out, "r-x")
	assert.Contains(t, out, "foo::bar()")
	assert.NotContains(t, out, "Security")
}

func TestPrintGadgetSymbol(t *testing.T) {
	bin, err := loader.LoadRaw("raw", []byte{0x90, 0x5f, 0xc3}, models.ArchX86_64, models.EndianUndef, 0x1000)
	require.NoError(t, err)
	bin.Symbols = []models.Symbol{{Name: "_ZN3foo3barEv", Addr: 0x1000, Size: 3}}
	cfg := models.NewConfig()
	cfg.Symbolize = true
	cfg.Demangle = true
	gadgets, err := gadget.Find(bin, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, gadgets)

	var buf bytes.Buffer
	NewPrinter(&buf, cfg).PrintGadget(bin, gadgets[0])
	assert.Equal(t, "0x0000000000001000 -> nop; pop rdi; ret <foo::bar()>\n", buf.String())
	buf.Reset()
	NewPrinter(&buf, cfg).PrintGadget(bin, gadgets[1])
	assert.Equal(t, "0x0000000000001001 -> pop rdi; ret <foo::bar()+0x1>\n", buf.String())
}
