package cpu

import (
	"strings"
	"sync"

	cs "github.com/lunixbochs/capstr"
	"github.com/pkg/errors"

	"github.com/lunixbochs/ropcorn/go/models"
)

var (
	mipsAnchors    = newNameSet("jr", "jalr", "jr.hb", "jalr.hb", "syscall", "eret")
	mipsJumps      = newNameSet("j", "jal", "b", "bal")
	mipsPrivileged = newNameSet(
		"break", "sdbbp", "deret", "wait", "cache",
		"mtc0", "mfc0", "dmtc0", "dmfc0", "tlbp", "tlbr", "tlbwi", "tlbwr",
	)
)

// Capstr decodes through capstone. The engine handle is not reentrant so
// every call holds the lock.
type Capstr struct {
	Arch, Mode int

	mu sync.Mutex
	cs *cs.Engine
}

func NewMIPS(arch models.Arch, endian models.Endian) (*Capstr, error) {
	mode := cs.MODE_MIPS32
	if arch == models.ArchMIPS64 {
		mode = cs.MODE_MIPS64
	}
	if endian == models.EndianBig {
		mode += cs.MODE_BIG_ENDIAN
	} else {
		mode += cs.MODE_LITTLE_ENDIAN
	}
	c := &Capstr{Arch: cs.ARCH_MIPS, Mode: mode}
	return c, c.Open()
}

func (c *Capstr) Open() (err error) {
	engine, err := cs.New(c.Arch, c.Mode)
	if err != nil {
		return errors.Wrap(err, "cs.New() failed")
	}
	c.cs = engine
	return nil
}

func (c *Capstr) MaxLen() int { return 4 }
func (c *Capstr) Align() int  { return 4 }

func (c *Capstr) Decode(mem []byte, addr uint64) (*Ins, error) {
	if len(mem) < 4 {
		return nil, ErrInvalid
	}
	c.mu.Lock()
	if c.cs == nil {
		if err := c.Open(); err != nil {
			c.mu.Unlock()
			return nil, err
		}
	}
	dis, err := c.cs.Dis(mem[:4], addr, 1)
	c.mu.Unlock()
	// capstone reports undecodable bytes as an empty result or an error
	if err != nil || len(dis) == 0 {
		return nil, ErrInvalid
	}
	ins := dis[0]
	mnemonic := strings.ToLower(ins.Mnemonic())
	flow := FlowNone
	switch {
	case mipsAnchors.Has(mnemonic):
		flow = FlowAnchor
	case mipsJumps.Has(mnemonic):
		flow = FlowJump
	case strings.HasPrefix(mnemonic, "b") && mnemonic != "break":
		flow = FlowCond
	}
	return newIns(len(ins.Bytes()), flow, mipsPrivileged.Has(mnemonic), mnemonic+" "+ins.OpStr()), nil
}
