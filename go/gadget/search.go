package gadget

import (
	"sort"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/lunixbochs/ropcorn/go/cpu"
	"github.com/lunixbochs/ropcorn/go/models"
)

// Find returns every gadget of bin's executable segments, ordered by
// address, after the bad byte filter, the active policies and dedup.
func Find(bin *models.Binary, cfg *models.Config) ([]*Gadget, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dec, err := cpu.NewDecoder(bin.Arch, bin.Endian, cfg.Flavor)
	if err != nil {
		return nil, err
	}
	return NewSearch(dec, cfg).Run(bin)
}

// Each streams the result of Find to fn, stopping at the first error.
func Each(bin *models.Binary, cfg *models.Config, fn func(g *Gadget) error) error {
	gadgets, err := Find(bin, cfg)
	if err != nil {
		return err
	}
	for _, g := range gadgets {
		if err := fn(g); err != nil {
			return err
		}
	}
	return nil
}

type Search struct {
	dec cpu.Decoder
	cfg *models.Config
	log hclog.Logger
	dc  *Discache
}

func NewSearch(dec cpu.Decoder, cfg *models.Config) *Search {
	return &Search{
		dec: dec,
		cfg: cfg,
		log: cfg.Log().Named("gadget"),
		dc:  NewDiscache(),
	}
}

// Run searches every executable segment concurrently and merges the result.
func (s *Search) Run(bin *models.Binary) ([]*Gadget, error) {
	segs := bin.ExecSegments()
	results := make([][]*Gadget, len(segs))
	errs := make([]error, len(segs))
	var wg sync.WaitGroup
	for i := range segs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.segment(bin.Arch, &segs[i])
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	var all []*Gadget
	for _, r := range results {
		all = append(all, r...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Addr < all[j].Addr })

	total := len(all)
	all = lo.Filter(all, func(g *Gadget, _ int) bool {
		return !bin.IsBadAddr(g.Addr, s.cfg.BadBytes)
	})
	clean := len(all)
	all = lo.Filter(all, func(g *Gadget, _ int) bool {
		name, rejected := Rejected(g, s.cfg)
		if rejected {
			s.log.Trace("rejected", "addr", hclog.Fmt("%#x", g.Addr), "policy", name, "gadget", g.Text)
		}
		return !rejected
	})
	if !s.cfg.All {
		// sorted by address, so the lowest address of each text survives
		all = lo.UniqBy(all, func(g *Gadget) string { return g.Text })
	}
	s.log.Debug("search done", "candidates", total, "bad", total-clean, "kept", len(all),
		"policies", s.cfg.ActivePolicies())
	return all, nil
}

func (s *Search) segment(arch models.Arch, seg *models.Segment) ([]*Gadget, error) {
	data := seg.Data
	align := s.dec.Align()
	maxLen := s.dec.MaxLen()
	table := newScanTable(len(data), align)

	var anchors []int
	for off := 0; off < table.Len()*align; off += align {
		end := off + maxLen
		if end > len(data) {
			end = len(data)
		}
		addr := seg.Addr + uint64(off)
		ins, err := s.dec.Decode(data[off:end], addr)
		if errors.Is(err, cpu.ErrInvalid) {
			continue
		} else if err != nil {
			return nil, errors.Wrapf(err, "decoder failed at %#x", addr)
		}
		if ins.Len <= 0 || ins.Len > end-off || ins.Len%align != 0 {
			continue
		}
		table.put(off, ins)
		if ins.Flow == cpu.FlowAnchor {
			anchors = append(anchors, off)
			s.dc.Put(addr, data[off:end], ins)
		}
	}

	depth := s.cfg.Depth
	window := maxLen * (depth - 1)
	// reach[k]: instructions needed from anchor-k*align to land on the anchor
	reach := make([]int, window/align+1)
	var out []*Gadget
	for _, a := range anchors {
		g, err := s.build(arch, seg, a, a)
		if err != nil {
			return nil, err
		}
		out = append(out, g)

		low := a - window
		if low < 0 {
			low = 0
		}
		low = (low + align - 1) / align * align
		for j := a - align; j >= low; j -= align {
			k := (a - j) / align
			reach[k] = -1
			n, flow := table.get(j)
			if n == 0 || flow == cpu.FlowAnchor || flow == cpu.FlowJump {
				continue
			}
			next := j + n
			if next == a {
				reach[k] = 1
			} else if next < a {
				if r := reach[(a-next)/align]; r > 0 && r+1 < depth {
					reach[k] = r + 1
				}
			}
			if reach[k] > 0 {
				g, err := s.build(arch, seg, j, a)
				if err != nil {
					return nil, err
				}
				out = append(out, g)
			}
		}
	}
	s.log.Debug("segment searched", "addr", hclog.Fmt("%#x", seg.Addr), "size", len(data),
		"anchors", len(anchors), "candidates", len(out))
	return out, nil
}

// build renders the chain from start up to and including the anchor.
func (s *Search) build(arch models.Arch, seg *models.Segment, start, anchor int) (*Gadget, error) {
	g := &Gadget{
		Addr:   seg.Addr + uint64(start),
		Arch:   arch,
		Flavor: s.cfg.Flavor,
	}
	off := start
	for off <= anchor {
		addr := seg.Addr + uint64(off)
		end := off + s.dec.MaxLen()
		if end > len(seg.Data) {
			end = len(seg.Data)
		}
		mem := seg.Data[off:end]
		ins := s.dc.Get(addr, mem)
		if ins == nil {
			var err error
			if ins, err = s.dec.Decode(mem, addr); err != nil {
				return nil, errors.Wrapf(err, "decoder failed at %#x", addr)
			}
			s.dc.Put(addr, mem, ins)
		}
		g.Ins = append(g.Ins, Span{
			Off:        off - start,
			Len:        ins.Len,
			Mnemonic:   ins.Mnemonic,
			Text:       ins.String(),
			Flow:       ins.Flow,
			Privileged: ins.Privileged,
		})
		off += ins.Len
	}
	g.Size = off - start
	g.Text = joinText(g.Ins)
	return g, nil
}
