package query

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMountDatabase verifies CSV tables mount under "<db>_<variant>" names
// with numeric affinity on counter columns.
func TestMountDatabase(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "commit.csv"),
		"repo_name,hash,branch,datetime,author_name,author_email,author_domain\n"+
			"gitv,abc,master,2021-10-12T14:20:50+08:00,dongdong,x@qq.com,qq.com\n"+
			"gitv,def,master,2021-10-13T08:20:50+08:00,dongdong,x@qq.com,qq.com\n")

	writeFile(t, filepath.Join(dir, "change.csv"),
		"repo_name,hash,branch,datetime,author_name,author_email,author_domain,ext,insertion,deletion\n"+
			"gitv,abc,master,2021-10-12T14:20:50+08:00,dongdong,x@qq.com,qq.com,go,10,2\n"+
			"gitv,abc,master,2021-10-12T14:20:50+08:00,dongdong,x@qq.com,qq.com,md,5,1\n")

	engine, err := Open()
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })

	ctx := context.Background()
	require.NoError(t, engine.MountDatabase(ctx, "repo", dir))

	commits, selectErr := engine.Select(ctx, `SELECT count(1) FROM repo_commit`)
	require.NoError(t, selectErr)
	assert.Equal(t, int64(2), commits.Rows[0][0])

	sums, sumErr := engine.Select(ctx, `SELECT sum(insertion), sum(deletion) FROM repo_change`)
	require.NoError(t, sumErr)
	assert.Equal(t, int64(15), sums.Rows[0][0])
	assert.Equal(t, int64(3), sums.Rows[0][1])

	// Registered functions work against mounted tables.
	years, yearErr := engine.Select(ctx, `SELECT DISTINCT year(datetime) FROM repo_commit`)
	require.NoError(t, yearErr)
	require.Len(t, years.Rows, 1)
	assert.Equal(t, int64(2021), years.Rows[0][0])
}

// TestMountDatabase_MissingFiles verifies absent variant files are skipped.
func TestMountDatabase_MissingFiles(t *testing.T) {
	t.Parallel()

	engine, err := Open()
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })

	require.NoError(t, engine.MountDatabase(context.Background(), "empty", t.TempDir()))
}

// TestSelect_BadSQL verifies user SQL errors surface without closing the engine.
func TestSelect_BadSQL(t *testing.T) {
	t.Parallel()

	engine, err := Open()
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })

	ctx := context.Background()

	_, selectErr := engine.Select(ctx, `SELECT FROM nowhere`)
	require.Error(t, selectErr)

	// The engine stays usable after a failed statement.
	result, okErr := engine.Select(ctx, `SELECT 1`)
	require.NoError(t, okErr)
	assert.Equal(t, int64(1), result.Rows[0][0])
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}
