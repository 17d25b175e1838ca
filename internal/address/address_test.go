package address

import (
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputPath_Stable(t *testing.T) {
	first := OutputPath("guides/setup.md")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, OutputPath("guides/setup.md"))
	}
}

func TestOutputPath_Shape(t *testing.T) {
	p := OutputPath("guides/setup.md")
	dir, file := path.Split(p)
	assert.Equal(t, "setup.html", file)
	assert.Len(t, strings.TrimSuffix(dir, "/"), PrefixLen)
}

func TestOutputPath_SameNameDifferentDirs(t *testing.T) {
	a := OutputPath("a/readme.md")
	b := OutputPath("b/readme.md")
	require.NotEqual(t, a, b)
	assert.Equal(t, path.Base(a), path.Base(b))
}

func TestOutputPath_SameDirShareSubdir(t *testing.T) {
	a := OutputPath("docs/one.md")
	b := OutputPath("docs/two.md")
	assert.Equal(t, path.Dir(a), path.Dir(b))
}

func TestOutputPath_RootFile(t *testing.T) {
	p := OutputPath("index.md")
	assert.Equal(t, DirHash("")+"/index.html", p)
}

func TestURL_ParentPrefix(t *testing.T) {
	assert.Equal(t, "../"+OutputPath("x/y.md"), URL("x/y.md"))
}
