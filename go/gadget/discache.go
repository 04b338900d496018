package gadget

import (
	"bytes"
	"sync"

	"github.com/lunixbochs/ropcorn/go/cpu"
)

// scanTable records the length and flow class of the instruction decoded at
// every aligned offset of a segment. A zero length marks an invalid decode.
type scanTable struct {
	align int
	size  []uint8
	flow  []cpu.Flow
}

func newScanTable(dataLen, align int) *scanTable {
	n := dataLen / align
	return &scanTable{
		align: align,
		size:  make([]uint8, n),
		flow:  make([]cpu.Flow, n),
	}
}

func (t *scanTable) Len() int {
	return len(t.size)
}

func (t *scanTable) put(off int, ins *cpu.Ins) {
	i := off / t.align
	t.size[i] = uint8(ins.Len)
	t.flow[i] = ins.Flow
}

func (t *scanTable) get(off int) (int, cpu.Flow) {
	i := off / t.align
	return int(t.size[i]), t.flow[i]
}

type discacheEntry struct {
	mem []byte
	ins *cpu.Ins
}

// Discache memoizes rendered instructions by address, shared by the segment
// workers of one search. Entries also remember their bytes, so segments that
// overlap in address never see each other's instructions.
type Discache struct {
	sync.RWMutex
	cache map[uint64]*discacheEntry
}

func NewDiscache() *Discache {
	return &Discache{cache: make(map[uint64]*discacheEntry)}
}

// Get returns the instruction cached at addr if mem still starts with the
// bytes it was decoded from.
func (d *Discache) Get(addr uint64, mem []byte) *cpu.Ins {
	d.RLock()
	ent, ok := d.cache[addr]
	d.RUnlock()
	if ok && len(mem) >= len(ent.mem) && bytes.Equal(mem[:len(ent.mem)], ent.mem) {
		return ent.ins
	}
	return nil
}

func (d *Discache) Put(addr uint64, mem []byte, ins *cpu.Ins) {
	if ins.Len > len(mem) {
		return
	}
	d.Lock()
	d.cache[addr] = &discacheEntry{mem: mem[:ins.Len:ins.Len], ins: ins}
	d.Unlock()
}
