package cmphook

import "runtime"

// The wrappers below are drop-in instrumented replacements for callers
// written in Go. They use the return PC of their caller as the call site and
// run on the installed instrument. String arguments follow C semantics: an
// embedded NUL byte terminates the string.

// callerSite returns the return PC of the wrapper's caller.
func callerSite() CallSite {
	var pcs [1]uintptr
	// Skip runtime.Callers, callerSite and the wrapper itself.
	if runtime.Callers(3, pcs[:]) == 0 {
		return 0
	}
	return CallSite(pcs[0])
}

// Strcmp compares a and b like strcmp.
func Strcmp(a, b string) int {
	return Installed().Compare(callerSite(), stringView(a), stringView(b), Exact).Order
}

// Strcasecmp compares a and b like strcasecmp.
func Strcasecmp(a, b string) int {
	return Installed().Compare(callerSite(), stringView(a), stringView(b), Folded).Order
}

// Strncmp compares at most n bytes of a and b like strncmp.
func Strncmp(a, b string, n int) int {
	return Installed().CompareN(callerSite(), stringView(a), stringView(b), n, Exact).Order
}

// Strncasecmp compares at most n bytes of a and b like strncasecmp.
func Strncasecmp(a, b string, n int) int {
	return Installed().CompareN(callerSite(), stringView(a), stringView(b), n, Folded).Order
}

// Strstr returns the offset of needle in haystack, or NotFound.
func Strstr(haystack, needle string) int {
	return Installed().Index(callerSite(), stringView(haystack), stringView(needle))
}

// Strcasestr is Strstr ignoring ASCII case.
func Strcasestr(haystack, needle string) int {
	return Installed().IndexFold(callerSite(), stringView(haystack), stringView(needle))
}

// Memcmp compares the first n bytes of a and b.
func Memcmp(a, b []byte, n int) int {
	return Installed().CompareMemory(callerSite(), a, b, n).Order
}

// Bcmp returns 0 if the first n bytes of a and b are equal, non-zero otherwise.
func Bcmp(a, b []byte, n int) int {
	return Installed().CompareMemory(callerSite(), a, b, n).Order
}

// Memmem returns the offset of needle in haystack, or NotFound.
func Memmem(haystack, needle []byte) int {
	return Installed().IndexMemory(callerSite(), haystack, needle)
}

// Strcpy copies src and its terminator into dst.
func Strcpy(dst []byte, src string) {
	Installed().CopyString(callerSite(), dst, stringView(src))
}

// XMLStrcmp compares a and b like xmlStrcmp; nil is NULL.
func XMLStrcmp(a, b []byte) int {
	return xmlStrcmp.Invoke(Installed(), Call{Site: callerSite(), S1: a, S2: b})
}

// XMLStrEqual reports whether a and b are equal like xmlStrEqual; nil is NULL.
func XMLStrEqual(a, b []byte) bool {
	return xmlStrEqual.Invoke(Installed(), Call{Site: callerSite(), S1: a, S2: b}) == 1
}

var (
	xmlStrcmp, _   = DefaultTable().Lookup("xmlStrcmp")
	xmlStrEqual, _ = DefaultTable().Lookup("xmlStrEqual")
)
