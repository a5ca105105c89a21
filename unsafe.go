package cmphook

import "unsafe"

// stringView lends the bytes of a Go string to the engine as an operand.
// Wrappers never write through it. "" maps to an empty non-nil view, since
// nil is reserved for NULL.
func stringView(s string) []byte {
	if s == "" {
		return []byte{}
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// sameView reports whether a and b denote the same operand: the same start
// address and the same length. A slice end is a terminator, so a shorter
// view of the same buffer is a different string. Two nil views are the
// same (NULL == NULL).
func sameView(a, b []byte) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return len(a) == len(b) && unsafe.SliceData(a) == unsafe.SliceData(b)
}

// commonPrefix returns the length of the longest common prefix of a[:n] and
// b[:n]. Both slices must hold at least n bytes.
// Equal machine words are skipped before falling back to a byte scan.
func commonPrefix(a, b []byte, n int) int {
	if n <= 0 {
		return 0
	}
	a, b = a[:n], b[:n]

	const wordSize = int(unsafe.Sizeof(uintptr(0)))

	i := 0
	for ; i+wordSize <= n; i += wordSize {
		aWord := *(*uintptr)(unsafe.Pointer(&a[i]))
		bWord := *(*uintptr)(unsafe.Pointer(&b[i]))
		if aWord != bWord {
			break
		}
	}

	for ; i < n; i++ {
		if a[i] != b[i] {
			break
		}
	}
	return i
}
