package cmphook

import "bytes"

// at returns s[i], or the terminator when i lies past the end of the view.
func at(s []byte, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return 0
}

// strlen returns the offset of the first terminator in s. The end of the
// view counts as a terminator.
func strlen(s []byte) int {
	if i := bytes.IndexByte(s, 0); i >= 0 {
		return i
	}
	return len(s)
}

// strnlen is strlen limited to the first n bytes.
func strnlen(s []byte, n int) int {
	if n <= 0 {
		return 0
	}
	if n < len(s) {
		s = s[:n]
	}
	return strlen(s)
}

// MatchString scans two terminated strings until the predicate fails or
// either string terminates. Score is the stopping offset; Order is the
// difference of the normalized bytes found there.
func MatchString(a, b []byte, p Predicate) Match {
	for i := 0; ; i++ {
		ca, cb := p.normalize(at(a, i)), p.normalize(at(b, i))
		if ca != cb || ca == 0 {
			return Match{Score: i, Order: int(ca) - int(cb)}
		}
	}
}

// MatchStringN is MatchString limited to n bytes. Reaching n without a
// disagreement is an equal result whatever follows.
func MatchStringN(a, b []byte, n int, p Predicate) Match {
	for i := 0; i < n; i++ {
		ca, cb := p.normalize(at(a, i)), p.normalize(at(b, i))
		if ca != cb || ca == 0 {
			return Match{Score: i, Order: int(ca) - int(cb)}
		}
	}
	if n < 0 {
		n = 0
	}
	return Match{Score: n}
}

// MatchMemory compares exactly n bytes of a and b, ignoring terminators.
// Both views must hold at least n bytes.
func MatchMemory(a, b []byte, n int) Match {
	if n <= 0 {
		return Match{}
	}
	i := commonPrefix(a, b, n)
	if i == n {
		return Match{Score: n}
	}
	return Match{Score: i, Order: int(a[i]) - int(b[i])}
}

// Compare emulates strcmp (Exact) or strcasecmp (Folded) and reports the
// result for site.
func (in *Instrument) Compare(site CallSite, a, b []byte, p Predicate) Match {
	m := MatchString(a, b, p)

	in.progress.ReportProgress(site, m.Score)
	in.constants.ReportConstant(a[:strlen(a)], true)
	in.constants.ReportConstant(b[:strlen(b)], true)
	return m
}

// CompareN emulates strncmp (Exact) or strncasecmp (Folded) and reports the
// result for site.
func (in *Instrument) CompareN(site CallSite, a, b []byte, n int, p Predicate) Match {
	m := MatchStringN(a, b, n, p)

	in.progress.ReportProgress(site, m.Score)
	in.constants.ReportConstant(a[:strnlen(a, n)], true)
	in.constants.ReportConstant(b[:strnlen(b, n)], true)
	return m
}

// CompareMemory emulates memcmp and reports the result for site.
func (in *Instrument) CompareMemory(site CallSite, a, b []byte, n int) Match {
	m := MatchMemory(a, b, n)

	if n < 0 {
		n = 0
	}
	in.progress.ReportProgress(site, m.Score)
	in.constants.ReportConstant(a[:n], true)
	in.constants.ReportConstant(b[:n], true)
	return m
}
