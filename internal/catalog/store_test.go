package catalog_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/catalog-service/internal/catalog"
)

func newStore(t *testing.T) *catalog.FileStore {
	t.Helper()
	store, err := catalog.NewFileStore(filepath.Join(t.TempDir(), "cataloglist.txt"))
	require.NoError(t, err)
	return store
}

func TestNewFileStore_RequiresPath(t *testing.T) {
	_, err := catalog.NewFileStore("  ")
	assert.Error(t, err)
}

func TestInsertThenFindByID(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.Insert(ctx, "42", "Blue Widget"))

	line, err := store.FindByID(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "42,Blue Widget\n", line)
	assert.Contains(t, line, "42")
	assert.Contains(t, line, "Blue Widget")
}

func TestInsertFindByIDRoundTripBoundaries(t *testing.T) {
	cases := []struct {
		name     string
		id       string
		item     string
		rejected bool
	}{
		{name: "id at limit", id: strings.Repeat("i", catalog.MaxIDLen), item: "Widget"},
		{name: "id over limit", id: strings.Repeat("i", catalog.MaxIDLen+1), item: "Widget", rejected: true},
		{name: "name at limit", id: "7", item: strings.Repeat("n", catalog.MaxNameLen)},
		{name: "name over limit", id: "7", item: strings.Repeat("n", catalog.MaxNameLen+1), rejected: true},
		{name: "quote and ampersand in name", id: "8", item: `Say "hi" & wave`},
		{name: "comma in name", id: "9", item: "Widget, large"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)
			require.NoError(t, store.Insert(ctx, "seed", "first"))
			before, err := os.Stat(store.Path())
			require.NoError(t, err)

			err = store.Insert(ctx, tc.id, tc.item)
			if tc.rejected {
				require.ErrorIs(t, err, catalog.ErrInvalidArgument)
				after, statErr := os.Stat(store.Path())
				require.NoError(t, statErr)
				assert.Equal(t, before.Size(), after.Size())
				return
			}
			require.NoError(t, err)

			line, err := store.FindByID(ctx, tc.id)
			require.NoError(t, err)
			assert.Equal(t, tc.id+","+tc.item+"\n", line)
		})
	}

	t.Run("duplicate id returns first", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		require.NoError(t, store.Insert(ctx, "dup", "first"))
		require.NoError(t, store.Insert(ctx, "dup", "second"))

		line, err := store.FindByID(ctx, "dup")
		require.NoError(t, err)
		assert.Equal(t, "dup,first\n", line)
	})
}

func TestInsert_InvalidArgumentLeavesFileUntouched(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.Insert(ctx, "1", "first"))

	before, err := os.Stat(store.Path())
	require.NoError(t, err)

	cases := []struct {
		name string
		id   string
		item string
	}{
		{"empty id", "", "name"},
		{"empty name", "7", ""},
		{"both empty", "", ""},
		{"comma in id", "7,8", "name"},
		{"newline in name", "7", "bad\nname"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.Insert(ctx, tc.id, tc.item)
			require.ErrorIs(t, err, catalog.ErrInvalidArgument)

			after, statErr := os.Stat(store.Path())
			require.NoError(t, statErr)
			assert.Equal(t, before.Size(), after.Size())
		})
	}
}

func TestInsert_EmptyFieldsDoNotCreateFile(t *testing.T) {
	store := newStore(t)
	require.ErrorIs(t, store.Insert(context.Background(), "", "x"), catalog.ErrInvalidArgument)

	_, err := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestListAll_ReturnsEveryInsertedLine(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("0,preexisting\n"), 0o600))

	const n = 5
	for i := 1; i <= n; i++ {
		require.NoError(t, store.Insert(ctx, fmt.Sprint(i), fmt.Sprintf("item %d", i)))
	}

	data, err := store.ListAll(ctx)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, n+1)
	assert.Equal(t, "0,preexisting", lines[0])
	for i, line := range lines[1:] {
		entry, ok := catalog.ParseLine(line)
		require.True(t, ok, "line %q should parse", line)
		assert.Equal(t, fmt.Sprint(i+1), entry.ID)
	}
}

func TestListAll_MissingFile(t *testing.T) {
	store := newStore(t)
	_, err := store.ListAll(context.Background())
	require.ErrorIs(t, err, catalog.ErrStorageUnavailable)
}

func TestFindByID_NotFound(t *testing.T) {
	ctx := context.Background()

	t.Run("absent file", func(t *testing.T) {
		store := newStore(t)
		_, err := store.FindByID(ctx, "nope")
		require.ErrorIs(t, err, catalog.ErrNotFound)
	})

	t.Run("empty file", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, os.WriteFile(store.Path(), nil, 0o600))
		_, err := store.FindByID(ctx, "nope")
		require.ErrorIs(t, err, catalog.ErrNotFound)
	})

	t.Run("no match", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Insert(ctx, "1", "one"))
		_, err := store.FindByID(ctx, "2")
		require.ErrorIs(t, err, catalog.ErrNotFound)
	})
}

func TestFindByID_FirstDuplicateWins(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.Insert(ctx, "9", "older"))
	require.NoError(t, store.Insert(ctx, "9", "newer"))

	line, err := store.FindByID(ctx, "9")
	require.NoError(t, err)
	assert.Equal(t, "9,older\n", line)
}

func TestFindByID_SkipsMalformedLines(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	content := "no-comma-here\n" +
		",missing id\n" +
		"5,\n" +
		strings.Repeat("x", catalog.MaxIDLen+1) + ",too long id\n" +
		"5,valid, with comma in name\n" +
		"6,last line without newline"
	require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0o600))

	line, err := store.FindByID(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, "5,valid, with comma in name\n", line)

	line, err = store.FindByID(ctx, "6")
	require.NoError(t, err)
	assert.Equal(t, "6,last line without newline\n", line)

	_, err = store.FindByID(ctx, "no-comma-here")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestInsert_ConcurrentAppendsStayIntact(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	const writers = 16
	const perWriter = 25
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				assert.NoError(t, store.Insert(ctx, id, "name-"+id))
			}
		}(w)
	}
	wg.Wait()

	data, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(string(data), "\n"))

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, writers*perWriter)
	seen := make(map[string]bool, len(lines))
	for _, line := range lines {
		entry, ok := catalog.ParseLine(line)
		require.True(t, ok, "corrupt line %q", line)
		assert.Equal(t, "name-"+entry.ID, entry.Name)
		seen[entry.ID] = true
	}
	assert.Len(t, seen, writers*perWriter)
}

func TestReady(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.Ready(context.Background()))

	missing, err := catalog.NewFileStore(filepath.Join(t.TempDir(), "gone", "catalog.txt"))
	require.NoError(t, err)
	assert.Error(t, missing.Ready(context.Background()))
}
