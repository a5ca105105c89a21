package cmphook

import "math/bits"

// LengthClass returns the bit width of l: the index of its highest set bit
// plus one. It is 0 for l <= 0.
func LengthClass(l int) int {
	if l <= 0 {
		return 0
	}
	return bits.Len(uint(l))
}

// CopyString emulates strcpy: it copies the terminated src, terminator
// included, into dst and returns the destination offset (always 0).
// The copied length is reported for site as a LengthClass bucket; empty
// copies are not reported. dst must hold strlen(src)+1 bytes.
func (in *Instrument) CopyString(site CallSite, dst, src []byte) int {
	n := in.ObserveCopy(site, src)

	copy(dst[:n], src[:n])
	dst[n] = 0
	return 0
}

// ObserveCopy reports the length class of a copy of src for site without
// copying anything, and returns strlen(src).
func (in *Instrument) ObserveCopy(site CallSite, src []byte) int {
	n := strlen(src)
	if n > 0 {
		in.progress.ReportProgress(site, LengthClass(n))
	}
	return n
}
