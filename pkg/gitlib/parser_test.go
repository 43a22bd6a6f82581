package gitlib

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// numstatFixture is captured `git log --date=rfc --numstat` output:
// one header line and twelve change rows, insertions only.
const numstatFixture = `<Mon, 8 Nov 2021 23:34:49 +0800> <414915edea035738cc314c8ffab7eccf4e608045> <chenjiandongx> <chenjiandongx@qq.com>
19	0	.gitignore
21	0	LICENSE
1	0	README.md
99	0	conn_darwin.go
396	0	conn_linux.go
71	0	conn_windows.go
65	0	dns.go
18	0	go.mod
52	0	go.sum
335	0	pcap.go
261	0	stat.go
250	0	ui.go`

// TestParseCommit verifies header parsing and per-extension grouping of a
// captured numstat block.
func TestParseCommit(t *testing.T) {
	t.Parallel()

	lines := strings.Split(numstatFixture, "\n")

	commit, err := ParseCommit(lines, nil)
	require.NoError(t, err)

	assert.Equal(t, Author{Name: "chenjiandongx", Email: "chenjiandongx@qq.com"}, commit.Author)
	assert.Equal(t, "qq.com", commit.Author.Domain())
	assert.Equal(t, "Mon, 8 Nov 2021 23:34:49 +0800", commit.Datetime)
	assert.Equal(t, "414915edea035738cc314c8ffab7eccf4e608045", commit.Hash)
	assert.Equal(t, 12, commit.ChangeFiles)
	assert.Len(t, commit.Changes, 5)

	var insertions, deletions int

	for _, change := range commit.Changes {
		insertions += change.Insertion
		deletions += change.Deletion
	}

	assert.Equal(t, 1588, insertions)
	assert.Equal(t, 0, deletions)
}

// TestParseCommit_AuthorMapping verifies alias collapsing applies only on
// an exact (name, email) source match.
func TestParseCommit_AuthorMapping(t *testing.T) {
	t.Parallel()

	header := "<Mon, 8 Nov 2021 23:34:49 +0800> <abc123> <alias> <alias@example.com>"
	mappings := []AuthorMapping{
		{
			Source:      Author{Name: "alias", Email: "other@example.com"},
			Destination: Author{Name: "nope", Email: "nope@example.com"},
		},
		{
			Source:      Author{Name: "alias", Email: "alias@example.com"},
			Destination: Author{Name: "canonical", Email: "canonical@example.com"},
		},
	}

	commit, err := ParseCommit([]string{header}, mappings)
	require.NoError(t, err)
	assert.Equal(t, Author{Name: "canonical", Email: "canonical@example.com"}, commit.Author)

	// A near-miss source must leave the author untouched.
	commit, err = ParseCommit([]string{header}, mappings[:1])
	require.NoError(t, err)
	assert.Equal(t, Author{Name: "alias", Email: "alias@example.com"}, commit.Author)
}

// TestParseCommit_InvalidHeader verifies a malformed header is rejected.
func TestParseCommit_InvalidHeader(t *testing.T) {
	t.Parallel()

	_, err := ParseCommit([]string{"not a header"}, nil)
	require.ErrorIs(t, err, ErrInvalidCommitFormat)
}

// TestParseCommit_BinaryChange verifies "-" numstat fields parse as zero.
func TestParseCommit_BinaryChange(t *testing.T) {
	t.Parallel()

	lines := []string{
		"<Mon, 8 Nov 2021 23:34:49 +0800> <abc123> <a> <a@b.c>",
		"-\t-\tassets/logo.png",
	}

	commit, err := ParseCommit(lines, nil)
	require.NoError(t, err)
	require.Len(t, commit.Changes, 1)
	assert.Equal(t, "png", commit.Changes[0].Ext)
	assert.Equal(t, 0, commit.Changes[0].Insertion)
	assert.Equal(t, 0, commit.Changes[0].Deletion)
}

// TestNormalizeExt covers trailing punctuation stripping and idempotence.
func TestNormalizeExt(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"main.go":              "go",
		"src/{old => new}.rs}": "rs",
		"Makefile":             "",
		"a/b.c":                "c",
		"noext/":               "",
		"trailing.go}":         "go",
		".gitignore":           "",
		"dir/.hidden":          "",
		".config.yml":          "yml",
	}

	for path, want := range cases {
		got := NormalizeExt(path)
		assert.Equal(t, want, got, "path %q", path)

		// Normalization must be idempotent.
		if got != "" {
			assert.Equal(t, got, NormalizeExt("x."+got))
		}
	}

	assert.NotContains(t, NormalizeExt("a/b/c.go"), "/")
}

// TestParseFileExtStats verifies ls-tree aggregation and submodule skipping.
func TestParseFileExtStats(t *testing.T) {
	t.Parallel()

	lines := []string{
		"100644 blob fc15aee1cb60737ea15ce83b88d0fac349f9d0ff   12827\tui.go",
		"100644 blob 0aa15aee1cb60737ea15ce83b88d0fac349f9d0f   100\tmain.go",
		"106000 commit deadbeefdeadbeefdeadbeefdeadbeefdeadbeef   -\tvendor/sub",
		"100644 blob 1aa15aee1cb60737ea15ce83b88d0fac349f9d0f   42\tREADME",
	}

	stats := ParseFileExtStats(lines)
	require.Len(t, stats, 1)
	assert.Equal(t, "go", stats[0].Ext)
	assert.Equal(t, int64(12927), stats[0].Size)
	assert.Equal(t, 2, stats[0].Files)
}

// TestSplitCommitBlocks verifies header-anchored block grouping.
func TestSplitCommitBlocks(t *testing.T) {
	t.Parallel()

	lines := []string{
		"<Mon, 8 Nov 2021 23:34:49 +0800> <a> <n> <e@d.c>",
		"1\t2\tmain.go",
		"<Tue, 9 Nov 2021 10:00:00 +0800> <b> <n> <e@d.c>",
	}

	blocks := SplitCommitBlocks(lines)
	require.Len(t, blocks, 2)
	assert.Len(t, blocks[0], 2)
	assert.Len(t, blocks[1], 1)
}

// TestToRFC3339 verifies datetime normalization and the empty-string
// fallback for malformed input.
func TestToRFC3339(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2021-11-08T23:34:49+08:00", ToRFC3339("Mon, 8 Nov 2021 23:34:49 +0800"))
	assert.Empty(t, ToRFC3339("not a datetime"))
	assert.Empty(t, ToRFC3339(""))
}

// TestAuthorDomain verifies the derived domain accessor.
func TestAuthorDomain(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "qq.com", Author{Email: "x@qq.com"}.Domain())
	assert.Equal(t, "b.com", Author{Email: "a@x@b.com"}.Domain())
	assert.Empty(t, Author{Email: "nodomain"}.Domain())
}
