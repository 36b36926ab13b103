package storegate_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sagarc03/storegate"
	"github.com/stretchr/testify/assert"
)

func TestIsValidObjectName(t *testing.T) {
	// Build invalid UTF-8 without embedding raw bytes in source
	invalidUTF8 := string([]byte{'a', 0xff, 'b'})

	tt := []struct {
		Name string
		Path string
		Want bool
	}{
		{Name: "root path", Path: "/", Want: false},
		{Name: "empty path", Path: "", Want: false},
		{Name: "leading slash", Path: "/some/path", Want: false},
		{Name: "ends with slash", Path: "some/path/", Want: false},

		{Name: "double dots segment", Path: "../", Want: false},
		{Name: "double dots in middle segment", Path: "a/../b", Want: false},
		{Name: "double dots in filename", Path: "a/b..c", Want: false},

		{Name: "single dot segment", Path: "a/./b", Want: false},
		{Name: "single dot only", Path: ".", Want: false},
		{Name: "single dot prefix segment", Path: "./a", Want: false},
		{Name: "single dot suffix segment", Path: "a/.", Want: false},

		{Name: "double slash", Path: "a//b", Want: false},

		{Name: "contains space", Path: "some path/file.ext", Want: false},
		{Name: "contains tab", Path: "some\tpath/file.ext", Want: false},
		{Name: "contains backslash", Path: `some\path/file.ext`, Want: false},
		{Name: "contains hash", Path: "some/path#frag", Want: false},
		{Name: "contains question mark", Path: "some/path?x=1", Want: false},
		{Name: "contains tilde", Path: "some/~path/file.ext", Want: false},

		{Name: "contains NUL", Path: "some\x00path/file.ext", Want: false},
		{Name: "contains DEL", Path: "some\x7fpath/file.ext", Want: false},
		{Name: "contains control char", Path: "some\x1fpath/file.ext", Want: false},

		{Name: "invalid utf8", Path: invalidUTF8, Want: false},

		{Name: "report", Path: "report.pdf", Want: true},
		{Name: "nested", Path: "2025/q1/report.pdf", Want: true},
		{Name: "hidden file", Path: ".hidden/file", Want: true},
		{Name: "underscores and dashes", Path: "some_path/with-dash/file_name.ext", Want: true},
		{Name: "percent literal", Path: "a/%2e/b", Want: true},
		{Name: "unicode", Path: "привет/世界/file.ext", Want: true},
	}

	if utf8.ValidString(invalidUTF8) {
		t.Fatalf("test setup error: invalidUTF8 is unexpectedly valid")
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Want, storegate.IsValidObjectName(tc.Path), "object name %q", tc.Path)
		})
	}
}

func TestIsValidContainerName(t *testing.T) {
	tt := []struct {
		Name string
		In   string
		Want bool
	}{
		{Name: "simple", In: "uploads", Want: true},
		{Name: "digits and hyphens", In: "invoices-2025", Want: true},
		{Name: "minimum length", In: "abc", Want: true},
		{Name: "maximum length", In: strings.Repeat("a", 63), Want: true},
		{Name: "too short", In: "ab", Want: false},
		{Name: "too long", In: strings.Repeat("a", 64), Want: false},
		{Name: "empty", In: "", Want: false},
		{Name: "uppercase", In: "Uploads", Want: false},
		{Name: "leading hyphen", In: "-uploads", Want: false},
		{Name: "trailing hyphen", In: "uploads-", Want: false},
		{Name: "double hyphen", In: "up--loads", Want: false},
		{Name: "underscore", In: "up_loads", Want: false},
		{Name: "dot", In: "up.loads", Want: false},
	}

	for _, tc := range tt {
		t.Run(tc.Name, func(t *testing.T) {
			assert.Equal(t, tc.Want, storegate.IsValidContainerName(tc.In))
		})
	}
}
