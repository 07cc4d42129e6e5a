package archive

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeJoin_AcceptsRelativeEntries(t *testing.T) {
	cases := []struct {
		name  string
		entry string
		want  string
	}{
		{"plain file", "a.txt", "a.txt"},
		{"nested file", "docs/readme.md", "docs/readme.md"},
		{"redundant separators", "docs//readme.md", "docs/readme.md"},
		{"internal dot", "docs/./readme.md", "docs/readme.md"},
		{"internal dotdot staying inside", "docs/../a.txt", "a.txt"},
		{"backslash separators", `docs\readme.md`, "docs/readme.md"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SafeJoin("/dest", tc.entry)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join("/dest", filepath.FromSlash(tc.want)), got)
		})
	}
}

func TestSafeJoin_RejectsTraversal(t *testing.T) {
	cases := []struct {
		name  string
		entry string
	}{
		{"empty name", ""},
		{"parent escape", "../evil.txt"},
		{"deep parent escape", "a/../../evil.txt"},
		{"bare dotdot", ".."},
		{"absolute path", "/etc/passwd"},
		{"windows absolute path", `C:\windows\system32`},
		{"windows drive relative", "c:evil.txt"},
		{"backslash escape", `..\evil.txt`},
		{"nul byte", "a\x00b.txt"},
		{"resolves to root", "."},
		{"reserved device name", "CON"},
		{"reserved device name with extension", "aux.txt"},
		{"nested reserved device name", "docs/NUL/readme.md"},
		{"reserved com port", "com1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := SafeJoin("/dest", tc.entry)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrPathTraversal)
		})
	}
}

func TestSafeJoin_DoesNotTouchReservedLookalikes(t *testing.T) {
	for _, entry := range []string{"CONSOLE.txt", "null.txt", "com.html", "lpt10"} {
		_, err := SafeJoin("/dest", entry)
		assert.NoError(t, err, "entry %q should be allowed", entry)
	}
}
