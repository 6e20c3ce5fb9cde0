package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testEngines(t *testing.T) map[string]func(t *testing.T) Engine {
	t.Helper()
	return map[string]func(t *testing.T) Engine{
		"git": func(t *testing.T) Engine {
			t.Helper()
			g, err := OpenGit(zaptest.NewLogger(t), filepath.Join(t.TempDir(), "repo"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = g.Close() })
			return g
		},
		"blob": func(t *testing.T) Engine {
			t.Helper()
			b, err := OpenBlob(context.Background(), zaptest.NewLogger(t), newTestBlobStorage(t, "repo"))
			require.NoError(t, err)
			return b
		},
	}
}

func commitFile(t *testing.T, e Engine, name, content, message string) string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.WriteFile(ctx, name, []byte(content)))
	id, err := e.Commit(ctx, name, message)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	return id
}

func TestEngine_EmptyHistory(t *testing.T) {
	for name, newEngine := range testEngines(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := newEngine(t)

			head, err := e.Resolve(ctx, Latest)
			require.NoError(t, err)
			assert.Empty(t, head)

			_, err = e.ReadFile(ctx, Latest, "users.json")
			assert.ErrorIs(t, err, os.ErrNotExist)

			_, err = e.ReadFile(ctx, "HEAD~1", "users.json")
			assert.ErrorIs(t, err, ErrSnapshotNotFound)

			log, err := e.Log(ctx, "", 0)
			require.NoError(t, err)
			assert.Empty(t, log)
		})
	}
}

func TestEngine_CommitAndRead(t *testing.T) {
	for name, newEngine := range testEngines(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := newEngine(t)

			first := commitFile(t, e, "users.json", `{"a":1}`, "Create record a")
			second := commitFile(t, e, "users.json", `{"a":2}`, "Update record a")
			assert.NotEqual(t, first, second)

			head, err := e.Resolve(ctx, "latest")
			require.NoError(t, err)
			assert.Equal(t, second, head)

			data, err := e.ReadFile(ctx, Latest, "users.json")
			require.NoError(t, err)
			assert.Equal(t, `{"a":2}`, string(data))

			data, err = e.ReadFile(ctx, first, "users.json")
			require.NoError(t, err)
			assert.Equal(t, `{"a":1}`, string(data))

			data, err = e.ReadFile(ctx, "HEAD~1", "users.json")
			require.NoError(t, err)
			assert.Equal(t, `{"a":1}`, string(data))

			id, err := e.Resolve(ctx, first[:24])
			require.NoError(t, err)
			assert.Equal(t, first, id)

			_, err = e.ReadFile(ctx, Latest, "other.json")
			assert.ErrorIs(t, err, os.ErrNotExist)
		})
	}
}

func TestEngine_UnknownSnapshot(t *testing.T) {
	for name, newEngine := range testEngines(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := newEngine(t)
			commitFile(t, e, "users.json", `{}`, "Create record a")

			_, err := e.ReadFile(ctx, "does-not-exist", "users.json")
			assert.ErrorIs(t, err, ErrSnapshotNotFound)

			_, err = e.Resolve(ctx, "HEAD~5")
			assert.ErrorIs(t, err, ErrSnapshotNotFound)
		})
	}
}

func TestEngine_EmptyCommit(t *testing.T) {
	for name, newEngine := range testEngines(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := newEngine(t)

			first := commitFile(t, e, "users.json", `{"a":1}`, "Create record a")
			second := commitFile(t, e, "users.json", `{"a":1}`, "Update record a")
			assert.NotEqual(t, first, second)

			log, err := e.Log(ctx, "", 0)
			require.NoError(t, err)
			assert.Len(t, log, 2)
		})
	}
}

func TestEngine_Log(t *testing.T) {
	for name, newEngine := range testEngines(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := newEngine(t)

			commitFile(t, e, "users.json", `{"a":1}`, "Create record a")
			commitFile(t, e, "groups.json", `{"g":1}`, "Create record g")
			last := commitFile(t, e, "users.json", `{"a":1,"b":2}`, "Create record b")

			log, err := e.Log(ctx, "", 0)
			require.NoError(t, err)
			require.Len(t, log, 3)
			assert.Equal(t, last, log[0].ID)
			assert.Equal(t, "Create record b", log[0].Message)
			assert.Equal(t, log[1].ID, log[0].Parent)

			log, err = e.Log(ctx, "users.json", 0)
			require.NoError(t, err)
			require.Len(t, log, 2)
			assert.Equal(t, "Create record b", log[0].Message)
			assert.Equal(t, "Create record a", log[1].Message)

			log, err = e.Log(ctx, "", 1)
			require.NoError(t, err)
			assert.Len(t, log, 1)
		})
	}
}

func TestEngine_NestedFile(t *testing.T) {
	for name, newEngine := range testEngines(t) {
		t.Run(name, func(t *testing.T) {
			e := newEngine(t)
			commitFile(t, e, "tenants/acme/users.json", `{"a":1}`, "Create record a")

			data, err := e.ReadFile(context.Background(), Latest, "tenants/acme/users.json")
			require.NoError(t, err)
			assert.Equal(t, `{"a":1}`, string(data))
		})
	}
}

func TestEngine_CommitWithoutWrite(t *testing.T) {
	for name, newEngine := range testEngines(t) {
		t.Run(name, func(t *testing.T) {
			_, err := newEngine(t).Commit(context.Background(), "missing.json", "Create record a")
			assert.ErrorIs(t, err, ErrNothingStaged)
		})
	}
}

func TestRev(t *testing.T) {
	assert.Equal(t, Latest, Rev(""))
	assert.Equal(t, Latest, Rev("latest"))
	assert.Equal(t, Latest, Rev(" HEAD "))
	assert.Equal(t, "abc", Rev("abc"))
	assert.True(t, IsLatest("latest"))
	assert.False(t, IsLatest("HEAD~1"))
}

func TestSplitAncestry(t *testing.T) {
	base, n, err := splitAncestry("HEAD~3")
	require.NoError(t, err)
	assert.Equal(t, "HEAD", base)
	assert.Equal(t, 3, n)

	base, n, err = splitAncestry("abc~")
	require.NoError(t, err)
	assert.Equal(t, "abc", base)
	assert.Equal(t, 1, n)

	_, _, err = splitAncestry("HEAD~x")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
}
