package cmphook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// installRecorded installs a recording instrument for the duration of t.
func installRecorded(t *testing.T) *recorder {
	t.Helper()
	in, rec := newRecorded()
	prev := Install(in)
	t.Cleanup(func() { Install(prev) })
	return rec
}

func TestInstall(t *testing.T) {
	in := New(nil, nil)

	prev := Install(in)
	assert.Same(t, in, Installed())

	assert.Same(t, in, Install(nil))
	assert.Same(t, Discard, Installed())

	Install(prev)
}

func TestWrappers(t *testing.T) {
	installRecorded(t)

	assert.Equal(t, int('l'-'p'), Strcmp("hello", "help"))
	assert.Equal(t, 0, Strcasecmp("Content-Type", "content-type"))
	assert.Equal(t, 0, Strncmp("abcd", "abXY", 2))
	assert.Negative(t, Strncasecmp("ABC", "abd", 3))
	assert.Equal(t, 0, Strcmp("abc\x00def", "abc"))

	assert.Equal(t, 2, Strstr("xxabcxx", "abc"))
	assert.Equal(t, NotFound, Strstr("xxabcxx", "abd"))
	assert.Equal(t, 2, Strcasestr("xxabcxx", "AbC"))
	assert.Equal(t, 0, Strcasestr("", ""))

	assert.Equal(t, 0, Memcmp([]byte("a\x00b"), []byte("a\x00b"), 3))
	assert.NotEqual(t, 0, Bcmp([]byte("key1"), []byte("key2"), 4))
	assert.Equal(t, 0, Memmem([]byte("anything"), nil))
	assert.Equal(t, NotFound, Memmem([]byte("ab"), []byte("abc")))

	dst := make([]byte, 6)
	Strcpy(dst, "hello")
	assert.Equal(t, "hello\x00", string(dst))

	assert.Equal(t, 0, XMLStrcmp(nil, nil))
	assert.Negative(t, XMLStrcmp(nil, []byte("x")))
	assert.Positive(t, XMLStrcmp([]byte("x"), nil))
	assert.True(t, XMLStrEqual([]byte("tag"), []byte("tag")))
	assert.False(t, XMLStrEqual([]byte("tag"), nil))

	buf := heapBytes("abcd")
	assert.Equal(t, sign(Strcmp("ab", "abcd")), sign(XMLStrcmp(buf[:2], buf)))
	assert.False(t, XMLStrEqual(buf[:2], buf))
	assert.True(t, XMLStrEqual(buf[:2], buf[:2]))
}

func TestWrapperCallSite(t *testing.T) {
	rec := installRecorded(t)

	for i := 0; i < 3; i++ {
		Strcmp("abc", "abd")
	}
	Strcmp("abc", "abd")

	sites := rec.sites()
	require.Len(t, sites, 4)
	assert.NotZero(t, sites[0])
	assert.Equal(t, sites[0], sites[1], "one call site, one key")
	assert.Equal(t, sites[0], sites[2])
	assert.NotEqual(t, sites[0], sites[3], "distinct call sites")
	assert.Equal(t, []int{2, 2, 2, 2}, rec.scores())
}

func TestWrapperCallSiteIsCaller(t *testing.T) {
	rec := installRecorded(t)

	compareFromHelper()
	compareFromHelper()
	Strcasecmp("a", "b")

	sites := rec.sites()
	require.Len(t, sites, 3)
	assert.Equal(t, sites[0], sites[1])
	assert.NotEqual(t, sites[0], sites[2])
}

//go:noinline
func compareFromHelper() int {
	return Strcasecmp("a", "b")
}

func TestConcurrentCallers(t *testing.T) {
	rec := installRecorded(t)

	var g errgroup.Group
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			for i := 0; i < 200; i++ {
				if Strcmp("concurrent", "concurrency") != 't'-'c' {
					t.Error("unexpected strcmp result")
				}
				if Memmem([]byte("..needle.."), []byte("needle")) != 2 {
					t.Error("unexpected memmem result")
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	scores := rec.scores()
	assert.Len(t, scores, 8*200*4, "one strcmp and three memmem candidate offsets per iteration")
}

func BenchmarkStrcmpWrapper(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Strcmp("Content-Length", "Content-Type")
	}
}
