package loader

import (
	"github.com/lunixbochs/ropcorn/go/models"
)

func getMagic(raw []byte) []byte {
	ret := make([]byte, 4)
	copy(ret, raw)
	return ret
}

// mapSegment builds a segment whose file-backed bytes are a view into raw,
// rejecting ranges that fall outside the file or the address space.
func mapSegment(format string, raw []byte, arch models.Arch, addr, size, off, filesz uint64, prot models.Prot) (models.Segment, error) {
	seg := models.Segment{
		Addr:   addr,
		Size:   size,
		Prot:   prot,
		Offset: off,
	}
	if !seg.Fits(arch.AddrSize()) {
		return seg, malformedf(format, "segment %#x+%#x overflows the address space", addr, size)
	}
	if filesz > size {
		filesz = size
	}
	if filesz > 0 {
		if off > uint64(len(raw)) || filesz > uint64(len(raw))-off {
			return seg, malformedf(format, "segment data %#x+%#x is outside the file", off, filesz)
		}
		seg.Data = raw[off : off+filesz : off+filesz]
	}
	return seg, nil
}
