package constmem

import "sort"

// Mapping is one contiguous region of the process address space.
type Mapping struct {
	Start    uintptr
	End      uintptr // exclusive
	Writable bool
}

// MapSource lists the current mappings of the process.
type MapSource interface {
	Mappings() ([]Mapping, error)
}

// ProcSelf reads the mappings of the running process.
type ProcSelf struct{}

// mappingSet is a sorted, immutable snapshot of mappings. Adjacent mappings
// with the same writability are merged, so a range crossing their boundary
// is still found.
type mappingSet []Mapping

func newMappingSet(m []Mapping) mappingSet {
	sorted := append([]Mapping(nil), m...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	s := make(mappingSet, 0, len(sorted))
	for _, cur := range sorted {
		if n := len(s); n > 0 && s[n-1].End == cur.Start && s[n-1].Writable == cur.Writable {
			s[n-1].End = cur.End
			continue
		}
		s = append(s, cur)
	}
	return s
}

// find returns the mapping containing [addr, addr+n).
func (s mappingSet) find(addr uintptr, n int) (Mapping, bool) {
	i := sort.Search(len(s), func(i int) bool { return s[i].End > addr })
	if i == len(s) || s[i].Start > addr {
		return Mapping{}, false
	}
	if uintptr(n) > s[i].End-addr {
		return Mapping{}, false
	}
	return s[i], true
}
