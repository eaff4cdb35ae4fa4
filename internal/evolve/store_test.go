package evolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope", "evo_results.jsonl"))
	cache, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, cache)
}

func TestStoreAppendLoadRoundTrip(t *testing.T) {
	// Parent directories are created on first append.
	path := filepath.Join(t.TempDir(), "results", "evo_results.jsonl")
	store := NewStore(path)

	first := Record{
		Key:        "-O2||||",
		Score:      1234.5,
		Flags:      []string{"-O2"},
		Target:     TargetCompress,
		ScoreMode:  ScoreModeBest,
		Timestamp:  1700000000.25,
		Generation: 1,
		Status:     StatusOK,
	}
	second := Record{
		Key:        "-O3|-march=native|||",
		Score:      0,
		Flags:      []string{"-O3", "-march=native"},
		Generation: 1,
		Status:     StatusBuildFailed,
		Error:      "make exited 2",
	}
	require.NoError(t, store.Append(first))
	require.NoError(t, store.Append(second))

	cache, err := store.Load()
	require.NoError(t, err)
	require.Len(t, cache, 2)
	assert.Equal(t, first, cache[first.Key])
	assert.Equal(t, second, cache[second.Key])
}

func TestStoreLoadLastWriteWins(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "evo_results.jsonl"))
	require.NoError(t, store.Append(Record{Key: "k", Score: 1, Status: StatusBenchFailed}))
	require.NoError(t, store.Append(Record{Key: "k", Score: 2, Status: StatusOK}))

	cache, err := store.Load()
	require.NoError(t, err)
	require.Len(t, cache, 1)
	assert.Equal(t, 2.0, cache["k"].Score)
	assert.Equal(t, StatusOK, cache["k"].Status)
}

func TestStoreLoadSkipsBlankLinesRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evo_results.jsonl")
	content := "\n" + `{"key":"a","score":1,"status":"ok"}` + "\n\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cache, err := NewStore(path).Load()
	require.NoError(t, err)
	assert.Len(t, cache, 1)

	require.NoError(t, os.WriteFile(path, []byte("not json\n"), 0644))
	_, err = NewStore(path).Load()
	assert.Error(t, err)
}

func TestBuildBlacklist(t *testing.T) {
	cache := map[string]Record{
		"good":  {Key: "good", Status: StatusOK},
		"build": {Key: "build", Status: StatusBuildFailed},
		"bench": {Key: "bench", Status: StatusBenchFailed},
		"empty": {Key: "empty"},
	}

	blacklist := BuildBlacklist(cache, false)
	assert.Len(t, blacklist, 2)
	assert.Contains(t, blacklist, "build")
	assert.Contains(t, blacklist, "bench")

	assert.Empty(t, BuildBlacklist(cache, true), "reset discards the blacklist")
}
