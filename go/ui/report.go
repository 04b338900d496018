package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/ianlancetaylor/demangle"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"github.com/mgutz/ansi"

	"github.com/lunixbochs/ropcorn/go/gadget"
	"github.com/lunixbochs/ropcorn/go/models"
)

const labelWidth = 22

var (
	addrColor   = ansi.ColorFunc("red+b")
	insColor    = ansi.ColorFunc("green")
	sepColor    = ansi.ColorFunc("default+h")
	headColor   = ansi.ColorFunc("blue+b")
	bannerColor = ansi.ColorFunc("black:yellow")
	onColor     = ansi.ColorFunc("green+b")
	offColor    = ansi.ColorFunc("red+b")
)

// Printer renders results for a terminal or a plain stream.
type Printer struct {
	w     io.Writer
	cfg   *models.Config
	color bool
}

// NewPrinter colors output only when cfg allows it and w is a terminal.
func NewPrinter(w io.Writer, cfg *models.Config) *Printer {
	p := &Printer{w: w, cfg: cfg}
	if f, ok := w.(*os.File); ok {
		tty := isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		p.color = cfg.Color && tty
		if p.color {
			p.w = colorable.NewColorable(f)
		} else {
			p.w = colorable.NewNonColorable(f)
		}
	}
	return p
}

func (p *Printer) paint(fn func(string) string, s string) string {
	if !p.color {
		return s
	}
	return fn(s)
}

func (p *Printer) Printf(format string, a ...interface{}) {
	fmt.Fprintf(p.w, format, a...)
}

func (p *Printer) Println(a ...interface{}) {
	fmt.Fprintln(p.w, a...)
}

func (p *Printer) Banner(msg string) {
	p.Println(p.paint(bannerColor, msg))
}

func (p *Printer) addr(bin *models.Binary, addr uint64) string {
	return p.paint(addrColor, fmt.Sprintf("0x%0*x", bin.AddrSize()*2, addr))
}

func (p *Printer) PrintGadget(bin *models.Binary, g *gadget.Gadget) {
	sep := p.paint(sepColor, "; ")
	line := p.addr(bin, g.Addr) + " -> "
	for i, s := range g.Ins {
		if i > 0 {
			line += sep
		}
		line += p.paint(insColor, s.Text)
	}
	if p.cfg.Symbolize {
		if sym, off, ok := bin.Symbolicate(g.Addr); ok {
			name := p.symbolName(sym.Name)
			if off > 0 {
				name += fmt.Sprintf("+%#x", off)
			}
			line += p.paint(sepColor, " <"+name+">")
		}
	}
	p.Println(line)
}

func (p *Printer) PrintGadgets(bin *models.Binary, gadgets []*gadget.Gadget) {
	for _, g := range gadgets {
		p.PrintGadget(bin, g)
	}
	kind := "unique gadgets"
	if p.cfg.All {
		kind = "gadgets"
	}
	p.Println()
	p.Println(p.paint(headColor, fmt.Sprintf("%d %s found", len(gadgets), kind)))
}

func (p *Printer) field(label string, value interface{}) {
	p.Printf("  %s %v\n", runewidth.FillRight(label, labelWidth), value)
}

func (p *Printer) toggle(t models.Toggle) string {
	switch t {
	case models.Enabled:
		return p.paint(onColor, t.String())
	case models.Disabled:
		return p.paint(offColor, t.String())
	}
	return t.String()
}

func (p *Printer) PrintInfos(bin *models.Binary) {
	p.Println(p.paint(headColor, "File informations"))
	p.field("Filename", bin.Filename)
	p.field("File format", bin.Type)
	p.field("Architecture", bin.Arch)
	p.field("Endianness", bin.Endian)
	p.field("Size", fmt.Sprintf("%d bytes", bin.Size()))
	p.field("Entry point", p.addr(bin, bin.Entry))
	p.field("Loadable segments", len(bin.Segments))
	p.field("Sections", len(bin.Sections))
	p.field("Symbols", len(bin.Symbols))
	if h := bin.Hardening; h != nil {
		p.Println()
		p.Println(p.paint(headColor, "Security"))
		p.field("NX", p.toggle(h.NX))
		p.field("SSP", p.toggle(h.SSP))
		p.field("PIE", p.toggle(h.PIE))
		if bin.Type.IsELF() {
			relro := h.Relro.String()
			switch h.Relro {
			case models.RelroFull:
				relro = p.paint(onColor, relro)
			case models.RelroNone:
				relro = p.paint(offColor, relro)
			}
			p.field("RELRO", relro)
			p.field("RPATH", p.toggle(h.RPath))
			p.field("RUNPATH", p.toggle(h.RunPath))
		}
	}
}

func (p *Printer) PrintSegments(bin *models.Binary) {
	width := bin.AddrSize()*2 + 2
	p.Println(p.paint(headColor, "Segments"))
	p.Printf("  %s %s %s %s\n",
		runewidth.FillRight("Address", width), runewidth.FillRight("Size", width),
		runewidth.FillRight("Offset", width), "Prot")
	for _, s := range bin.Segments {
		p.Printf("  %s %s %s %s\n",
			p.addr(bin, s.Addr), runewidth.FillRight(fmt.Sprintf("%#x", s.Size), width),
			runewidth.FillRight(fmt.Sprintf("%#x", s.Offset), width), s.Prot)
	}
}

func (p *Printer) PrintSections(bin *models.Binary) {
	width := bin.AddrSize()*2 + 2
	nameWidth := 8
	for _, s := range bin.Sections {
		if w := runewidth.StringWidth(s.Name); w > nameWidth {
			nameWidth = w
		}
	}
	p.Println(p.paint(headColor, "Sections"))
	p.Printf("  %s %s %s\n", runewidth.FillRight("Name", nameWidth), runewidth.FillRight("Address", width), "Size")
	for _, s := range bin.Sections {
		p.Printf("  %s %s %#x\n", runewidth.FillRight(s.Name, nameWidth), p.addr(bin, s.Addr), s.Size)
	}
}

func (p *Printer) symbolName(name string) string {
	if p.cfg.Demangle {
		return demangle.Filter(name)
	}
	return name
}

func (p *Printer) PrintSymbols(bin *models.Binary) {
	width := bin.AddrSize()*2 + 2
	p.Println(p.paint(headColor, "Symbols"))
	p.Printf("  %s %s %s\n", runewidth.FillRight("Address", width), runewidth.FillRight("Size", 10), "Name")
	for _, s := range bin.Symbols {
		name := p.symbolName(s.Name)
		if s.Dynamic {
			name += " (dynamic)"
		}
		p.Printf("  %s %s %s\n", p.addr(bin, s.Addr), runewidth.FillRight(fmt.Sprintf("%#x", s.Size), 10), name)
	}
}
