package cmphook

import "bytes"

// NotFound is the offset returned by the search operations when the needle
// does not occur in the haystack.
const NotFound = -1

// Index emulates strstr: it returns the offset of the first occurrence of the
// terminated needle in the terminated haystack, or NotFound.
// Candidates are located on the needle's first byte, and each candidate is
// verified with a bounded exact comparison reported for site.
func (in *Instrument) Index(site CallSite, haystack, needle []byte) int {
	n := strlen(needle)
	if n == 0 {
		return 0
	}

	h := haystack[:strlen(haystack)]
	first := needle[0]
	for off := 0; off < len(h); off++ {
		next := bytes.IndexByte(h[off:], first)
		if next < 0 {
			break
		}
		off += next
		if in.CompareN(site, haystack[off:], needle, n, Exact).Equal() {
			return off
		}
	}
	return NotFound
}

// IndexFold emulates strcasestr. Every offset of the haystack is tried with a
// bounded case-folded comparison, without first-byte filtering.
func (in *Instrument) IndexFold(site CallSite, haystack, needle []byte) int {
	n := strlen(needle)
	if n == 0 {
		return 0
	}

	for off := 0; at(haystack, off) != 0; off++ {
		if in.CompareN(site, haystack[off:], needle, n, Folded).Equal() {
			return off
		}
	}
	return NotFound
}

// IndexMemory emulates memmem over the full length of both views.
func (in *Instrument) IndexMemory(site CallSite, haystack, needle []byte) int {
	n := len(needle)
	if n > len(haystack) {
		return NotFound
	}
	if n == 0 {
		return 0
	}

	for off := 0; off <= len(haystack)-n; off++ {
		if in.CompareMemory(site, haystack[off:], needle, n).Equal() {
			return off
		}
	}
	return NotFound
}
