package models

type Symbol struct {
	Name    string
	Addr    uint64
	Size    uint64
	Dynamic bool
}

// Contains treats a zero-sized symbol as extending to the next one.
func (s Symbol) Contains(addr uint64) bool {
	return s.Addr <= addr && (addr < s.Addr+s.Size || s.Size == 0)
}
