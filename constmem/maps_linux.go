package constmem

import (
	"fmt"

	"github.com/prometheus/procfs"
)

// Mappings implements MapSource from /proc/self/maps.
func (ProcSelf) Mappings() ([]Mapping, error) {
	p, err := procfs.Self()
	if err != nil {
		return nil, fmt.Errorf("open /proc/self: %w", err)
	}
	maps, err := p.ProcMaps()
	if err != nil {
		return nil, fmt.Errorf("read /proc/self/maps: %w", err)
	}

	out := make([]Mapping, 0, len(maps))
	for _, m := range maps {
		out = append(out, Mapping{
			Start:    m.StartAddr,
			End:      m.EndAddr,
			Writable: m.Perms == nil || m.Perms.Write,
		})
	}
	return out, nil
}
