package attachment

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeMIME(t *testing.T) {
	tests := []struct {
		name, file, declared, want string
	}{
		{"alias", "a.jpg", "image/jpg", "image/jpeg"},
		{"params stripped", "a.txt", "text/plain; charset=utf-8", "text/plain"},
		{"double prefix", "a.png", "image/image/png", "image/png"},
		{"empty uses extension", "notes.md", "", "text/markdown"},
		{"malformed uses extension", "clip.mov", "video/", "video/quicktime"},
		{"unknown kept", "blob", "application/x-custom", "application/x-custom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NormalizeMIME(tt.file, tt.declared))
		})
	}
}

func TestKinds(t *testing.T) {
	require.True(t, Attachment{Name: "x.png"}.IsImage())
	require.False(t, Attachment{Name: "x.png"}.IsText())
	require.True(t, Attachment{Name: "x", MIMEType: "application/json"}.IsText())
	require.False(t, Attachment{Name: "x.pdf", MIMEType: "application/pdf"}.IsText())
}

func TestInlineText(t *testing.T) {
	atts := []Attachment{
		{Name: "a.txt", MIMEType: "text/plain", Data: []byte("alpha")},
		{Name: "b.png", MIMEType: "image/png", Data: []byte{0x89}},
	}

	out := InlineText("question", atts, true)
	require.Contains(t, out, "question")
	require.Contains(t, out, "<<<FILE a.txt [text/plain]>>>\nalpha")
	require.Contains(t, out, "[binary attachment] b.png (image/png)")

	out = InlineText("question", atts, false)
	require.NotContains(t, out, "b.png")

	require.Equal(t, "question", InlineText("question", nil, true))
}

func TestBufferDrainPreservesOrderAndIdentity(t *testing.T) {
	b := NewBuffer()
	in := []Attachment{
		{Name: "one.bin", MIMEType: "application/octet-stream", Data: []byte{1, 2, 3}},
		{Name: "two.csv", MIMEType: "text/csv", Data: []byte("a,b")},
	}
	for _, a := range in {
		b.Add(a)
	}
	require.Equal(t, 2, b.Len())
	require.Equal(t, in, b.Snapshot())

	out := b.Drain()
	require.Equal(t, in, out)
	require.Zero(t, b.Len())

	empty := b.Drain()
	require.NotNil(t, empty)
	require.Empty(t, empty)
}

func TestBufferRemove(t *testing.T) {
	b := NewBuffer()
	b.Add(Attachment{Name: "a"})
	b.Add(Attachment{Name: "b"})
	b.Add(Attachment{Name: "c"})

	require.True(t, b.Remove("b"))
	require.False(t, b.Remove("missing"))
	require.Equal(t, []Attachment{{Name: "a"}, {Name: "c"}}, b.Drain())
}

func TestBufferRestore(t *testing.T) {
	b := NewBuffer()
	b.Add(Attachment{Name: "a"})
	drained := b.Drain()
	b.Add(Attachment{Name: "late"})

	b.Restore(drained)
	require.Equal(t, []Attachment{{Name: "a"}, {Name: "late"}}, b.Snapshot())
	b.Restore(nil)
	require.Equal(t, 2, b.Len())
}

func TestBufferConcurrentAddDrain(t *testing.T) {
	b := NewBuffer()
	const n = 200

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			b.Add(Attachment{Name: "f"})
		}()
	}

	total := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		select {
		case <-done:
			total += len(b.Drain())
			require.Equal(t, n, total)
			return
		default:
			total += len(b.Drain())
		}
	}
}

func TestLoadFileAndGlob(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.json"), []byte(`{}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "noext"), []byte("plain words"), 0644))

	a, err := LoadFile(filepath.Join(dir, "a.txt"), 0)
	require.NoError(t, err)
	require.Equal(t, Attachment{Name: "a.txt", MIMEType: "text/plain", Data: []byte("hello")}, a)

	sniffed, err := LoadFile(filepath.Join(dir, "noext"), 0)
	require.NoError(t, err)
	require.Equal(t, "text/plain", sniffed.MIMEType)

	_, err = LoadFile(filepath.Join(dir, "a.txt"), 2)
	require.ErrorIs(t, err, ErrTooLarge)

	all, err := Glob(filepath.Join(dir, "**", "*.*"), 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "a.txt", all[0].Name)
	require.Equal(t, "b.json", all[1].Name)

	_, err = Glob(filepath.Join(dir, "*.none"), 0)
	require.Error(t, err)
}

func TestGlobSkipsIgnoredFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"main.go", "build/out.go", "vendor/x/lib.go", ".git/HEAD", "keep.log", "debug.log"} {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"),
		[]byte("# generated\n/build/\nvendor/\n*.log\n!keep.log\n"), 0644))

	all, err := Glob(filepath.Join(dir, "**", "*"), 0)
	require.NoError(t, err)
	var names []string
	for _, a := range all {
		names = append(names, a.Name)
	}
	require.ElementsMatch(t, []string{".gitignore", "keep.log", "main.go"}, names)

	// A literal path bypasses the rules.
	one, err := Glob(filepath.Join(dir, "debug.log"), 0)
	require.NoError(t, err)
	require.Len(t, one, 1)

	// Rules come from the glob's base directory only.
	nested, err := Glob(filepath.Join(dir, "build", "*.go"), 0)
	require.NoError(t, err)
	require.Len(t, nested, 1)
}

func TestIgnoreRules(t *testing.T) {
	ig, err := LoadIgnoreRules(t.TempDir())
	require.NoError(t, err)
	require.True(t, ig.Ignored(".git/config"))
	require.False(t, ig.Ignored("main.go"))

	ig.Add("docs/*.md")
	ig.Add("tmp/")
	require.True(t, ig.Ignored("docs/a.md"))
	require.False(t, ig.Ignored("sub/docs/a.md"))
	require.True(t, ig.Ignored("sub/tmp/x"))

	var none *IgnoreRules
	require.False(t, none.Ignored("anything"))
}
