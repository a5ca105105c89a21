package cmphook

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrUnknown is returned when no entry is registered under a name.
	ErrUnknown = errors.New("cmphook: unknown operation")
	// ErrDuplicate is returned when registering a name twice.
	ErrDuplicate = errors.New("cmphook: duplicate operation")
	// ErrInvalidEntry is returned for entries that cannot be dispatched.
	ErrInvalidEntry = errors.New("cmphook: invalid entry")
)

// Op is the primitive an entry delegates to.
type Op uint8

const (
	OpCompare    Op = iota + 1 // strcmp / strcasecmp
	OpCompareN                 // strncmp / strncasecmp
	OpMemCompare               // memcmp
	OpSearch                   // strstr / strcasestr
	OpMemSearch                // memmem
	OpCopy                     // strcpy
)

var opNames = [...]string{
	OpCompare:    "compare",
	OpCompareN:   "compare-n",
	OpMemCompare: "mem-compare",
	OpSearch:     "search",
	OpMemSearch:  "mem-search",
	OpCopy:       "copy",
}

func (o Op) String() string {
	if o == 0 || int(o) >= len(opNames) {
		return fmt.Sprintf("op(%d)", uint8(o))
	}
	return opNames[o]
}

func (o Op) comparison() bool {
	return o == OpCompare || o == OpCompareN || o == OpMemCompare
}

// Family is the library an intercepted name comes from.
type Family uint8

const (
	FamilyLibc Family = iota
	FamilyApache
	FamilyOpenSSL
	FamilyLibXML2
	FamilySamba
	FamilyLittleCMS
	FamilySanitizer
)

var familyNames = [...]string{
	FamilyLibc:      "libc",
	FamilyApache:    "apache",
	FamilyOpenSSL:   "openssl",
	FamilyLibXML2:   "libxml2",
	FamilySamba:     "samba",
	FamilyLittleCMS: "lcms",
	FamilySanitizer: "sanitizer",
}

func (f Family) String() string {
	if int(f) >= len(familyNames) {
		return fmt.Sprintf("family(%d)", uint8(f))
	}
	return familyNames[f]
}

// Policy is the NULL and zero-length contract of a library family.
// Checks run in order: bound guard, identity, NULL operands.
type Policy struct {
	Name string

	// BoundGuard returns BoundResult for bounded comparisons with N <= 0
	// without reading either operand.
	BoundGuard  bool
	BoundResult int

	// Identity returns Same when both operands are the same pointer,
	// including two NULLs.
	Identity bool
	Same     int

	// NilAware returns FirstNil or SecondNil when that operand is NULL.
	NilAware  bool
	FirstNil  int
	SecondNil int
}

var (
	// Strict trusts callers never to pass NULL.
	Strict = Policy{Name: "strict"}

	// NilOrdered orders NULL before any string and treats non-positive
	// bounds as equal.
	NilOrdered = Policy{
		Name:       "nil-ordered",
		BoundGuard: true,
		Identity:   true,
		NilAware:   true,
		FirstNil:   -1,
		SecondNil:  1,
	}

	// NilEqual is the boolean form: identical pointers are equal, a single
	// NULL is unequal.
	NilEqual = Policy{
		Name:     "nil-equal",
		Identity: true,
		Same:     1,
		NilAware: true,
	}

	// NilSearch finds nothing when either operand is NULL.
	NilSearch = Policy{
		Name:      "nil-search",
		NilAware:  true,
		FirstNil:  NotFound,
		SecondNil: NotFound,
	}
)

// apply runs the policy short-circuits. ok is false when the call must be
// delegated to a primitive.
func (p *Policy) apply(op Op, c Call) (result int, ok bool) {
	if p.BoundGuard && (op == OpCompareN || op == OpMemCompare) && c.N <= 0 {
		return p.BoundResult, true
	}
	if p.Identity && sameView(c.S1, c.S2) {
		return p.Same, true
	}
	if p.NilAware {
		if c.S1 == nil {
			return p.FirstNil, true
		}
		if c.S2 == nil {
			return p.SecondNil, true
		}
	}
	return 0, false
}

// Call carries the arguments of one intercepted call.
//
// S1 and S2 are the two operands in argument order: s1/s2 for comparisons,
// haystack/needle for searches, dest/src for copies. A nil slice is a NULL
// pointer. N is the length bound of bounded comparisons.
type Call struct {
	Site CallSite
	S1   []byte
	S2   []byte
	N    int
}

// Entry maps an externally visible function name onto a primitive.
type Entry struct {
	Name      string
	Family    Family
	Op        Op
	Predicate Predicate
	// Boolean entries return 1 for equal and 0 otherwise.
	Boolean bool
	// Observe entries mirror sanitizer hooks: the caller already holds the
	// real result, so the call is only measured and memory is never written.
	Observe bool
	Policy  *Policy
}

func (e Entry) validate() error {
	switch {
	case e.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidEntry)
	case e.Op == 0 || int(e.Op) >= len(opNames):
		return fmt.Errorf("%w: %s: %v", ErrInvalidEntry, e.Name, e.Op)
	case e.Predicate != Exact && e.Predicate != Folded:
		return fmt.Errorf("%w: %s: predicate %v", ErrInvalidEntry, e.Name, e.Predicate)
	case e.Predicate == Folded && (e.Op == OpMemCompare || e.Op == OpMemSearch || e.Op == OpCopy):
		return fmt.Errorf("%w: %s: %v has no folded form", ErrInvalidEntry, e.Name, e.Op)
	case e.Boolean && !e.Op.comparison():
		return fmt.Errorf("%w: %s: boolean %v", ErrInvalidEntry, e.Name, e.Op)
	}
	return nil
}

// Invoke runs the entry's contract for c on in and returns the emulated
// return value: an ordering for comparisons, 1/0 for Boolean entries, an
// offset or NotFound for searches and the destination offset for copies.
func (e Entry) Invoke(in *Instrument, c Call) int {
	if e.Policy != nil {
		if r, ok := e.Policy.apply(e.Op, c); ok {
			return r
		}
	}

	var r int
	switch e.Op {
	case OpCompare:
		r = in.Compare(c.Site, c.S1, c.S2, e.Predicate).Order
	case OpCompareN:
		r = in.CompareN(c.Site, c.S1, c.S2, c.N, e.Predicate).Order
	case OpMemCompare:
		r = in.CompareMemory(c.Site, c.S1, c.S2, c.N).Order
	case OpSearch:
		if e.Predicate == Folded {
			return in.IndexFold(c.Site, c.S1, c.S2)
		}
		return in.Index(c.Site, c.S1, c.S2)
	case OpMemSearch:
		return in.IndexMemory(c.Site, c.S1, c.S2)
	case OpCopy:
		if e.Observe {
			in.ObserveCopy(c.Site, c.S2)
			return 0
		}
		return in.CopyString(c.Site, c.S1, c.S2)
	}

	if e.Boolean {
		if r == 0 {
			return 1
		}
		return 0
	}
	return r
}

// Table is the interception registry: it resolves operation names to
// entries. It is safe for concurrent use.
type Table struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewTable creates a table holding entries.
func NewTable(entries ...Entry) (*Table, error) {
	t := &Table{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if err := t.Register(e); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Register adds an entry. An entry without a policy gets Strict.
func (t *Table) Register(e Entry) error {
	if err := e.validate(); err != nil {
		return err
	}
	if e.Policy == nil {
		e.Policy = &Strict
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[e.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, e.Name)
	}
	t.entries[e.Name] = e
	return nil
}

// Lookup returns the entry registered under name.
func (t *Table) Lookup(name string) (Entry, bool) {
	t.mu.RLock()
	e, ok := t.entries[name]
	t.mu.RUnlock()
	return e, ok
}

// Names returns the registered names in sorted order.
func (t *Table) Names() []string {
	t.mu.RLock()
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	t.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Len returns the number of registered entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Invoke dispatches c to the entry registered under name.
func (t *Table) Invoke(in *Instrument, name string, c Call) (int, error) {
	e, ok := t.Lookup(name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	return e.Invoke(in, c), nil
}

// Observe measures c as the entry registered under name would, for callers
// that already computed the real result. Copies are never performed.
func (t *Table) Observe(in *Instrument, name string, c Call) error {
	e, ok := t.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	e.Observe = true
	e.Invoke(in, c)
	return nil
}

// DefaultEntries returns the built-in interception entries.
func DefaultEntries() []Entry {
	entries := []Entry{
		// libc
		{Name: "strcmp", Family: FamilyLibc, Op: OpCompare},
		{Name: "strcasecmp", Family: FamilyLibc, Op: OpCompare, Predicate: Folded},
		{Name: "strncmp", Family: FamilyLibc, Op: OpCompareN},
		{Name: "strncasecmp", Family: FamilyLibc, Op: OpCompareN, Predicate: Folded},
		{Name: "strstr", Family: FamilyLibc, Op: OpSearch},
		{Name: "strcasestr", Family: FamilyLibc, Op: OpSearch, Predicate: Folded},
		{Name: "memcmp", Family: FamilyLibc, Op: OpMemCompare},
		{Name: "bcmp", Family: FamilyLibc, Op: OpMemCompare},
		{Name: "memmem", Family: FamilyLibc, Op: OpMemSearch},
		{Name: "strcpy", Family: FamilyLibc, Op: OpCopy},

		// Apache httpd and APR
		{Name: "ap_cstr_casecmp", Family: FamilyApache, Op: OpCompare, Predicate: Folded},
		{Name: "ap_cstr_casecmpn", Family: FamilyApache, Op: OpCompareN, Predicate: Folded},
		{Name: "ap_strcasestr", Family: FamilyApache, Op: OpSearch, Predicate: Folded},
		{Name: "apr_cstr_casecmp", Family: FamilyApache, Op: OpCompare, Predicate: Folded},
		{Name: "apr_cstr_casecmpn", Family: FamilyApache, Op: OpCompareN, Predicate: Folded},

		// OpenSSL, BoringSSL and friends
		{Name: "CRYPTO_memcmp", Family: FamilyOpenSSL, Op: OpMemCompare},
		{Name: "OPENSSL_memcmp", Family: FamilyOpenSSL, Op: OpMemCompare},
		{Name: "OPENSSL_strcasecmp", Family: FamilyOpenSSL, Op: OpCompare, Predicate: Folded},
		{Name: "OPENSSL_strncasecmp", Family: FamilyOpenSSL, Op: OpCompareN, Predicate: Folded},
		{Name: "memcmpct", Family: FamilyOpenSSL, Op: OpMemCompare},

		// libxml2
		{Name: "xmlStrncmp", Family: FamilyLibXML2, Op: OpCompareN, Policy: &NilOrdered},
		{Name: "xmlStrcmp", Family: FamilyLibXML2, Op: OpCompare, Policy: &NilOrdered},
		{Name: "xmlStrEqual", Family: FamilyLibXML2, Op: OpCompare, Boolean: true, Policy: &NilEqual},
		{Name: "xmlStrcasecmp", Family: FamilyLibXML2, Op: OpCompare, Predicate: Folded, Policy: &NilOrdered},
		{Name: "xmlStrncasecmp", Family: FamilyLibXML2, Op: OpCompareN, Predicate: Folded, Policy: &NilOrdered},
		{Name: "xmlStrstr", Family: FamilyLibXML2, Op: OpSearch, Policy: &NilSearch},
		{Name: "xmlStrcasestr", Family: FamilyLibXML2, Op: OpSearch, Predicate: Folded, Policy: &NilSearch},

		// Samba
		{Name: "memcmp_const_time", Family: FamilySamba, Op: OpMemCompare},
		{Name: "strcsequal", Family: FamilySamba, Op: OpCompare, Boolean: true, Policy: &NilEqual},

		// LittleCMS
		{Name: "cmsstrcasecmp", Family: FamilyLittleCMS, Op: OpCompare, Predicate: Folded},
	}

	// Sanitizer weak hooks observe the libc entry points.
	for _, name := range []string{
		"strcmp", "strcasecmp", "strncmp", "strncasecmp", "strstr",
		"strcasestr", "memcmp", "bcmp", "memmem", "strcpy",
	} {
		e := entries[indexOfEntry(entries, name)]
		e.Name = "__sanitizer_weak_hook_" + name
		e.Family = FamilySanitizer
		e.Observe = true
		entries = append(entries, e)
	}
	return entries
}

func indexOfEntry(entries []Entry, name string) int {
	for i := range entries {
		if entries[i].Name == name {
			return i
		}
	}
	panic("cmphook: no entry " + name)
}

var (
	defaultTableOnce sync.Once
	defaultTable     *Table
)

// DefaultTable returns the shared table built from DefaultEntries.
func DefaultTable() *Table {
	defaultTableOnce.Do(func() {
		t, err := NewTable(DefaultEntries()...)
		if err != nil {
			panic(err)
		}
		defaultTable = t
	})
	return defaultTable
}
