package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-qb-stats/internal/model"
)

const header = "play_id,season,passer_id,passer,pass,complete_pass,interception,sack,yards_gained,touchdown,week"

// writeCSV writes a CSV file with the given header and rows to path.
func writeCSV(t *testing.T, path, header string, rows []string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	body := header + "\n" + strings.Join(rows, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func writeGzipCSV(t *testing.T, path, header string, rows []string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(header + "\n" + strings.Join(rows, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestSeasonFilter(t *testing.T) {
	f := SeasonFilter([]int{2019, 2021})
	assert.True(t, f("play_by_play_2019"))
	assert.True(t, f("2021"))
	assert.False(t, f("play_by_play_2020"))
	assert.False(t, f("misc"))
}

func TestDiscover_SortsAndFilters(t *testing.T) {
	root := t.TempDir()
	writeCSV(t, filepath.Join(root, "pbp_2020", "play_by_play_2020.csv"), header, nil)
	writeCSV(t, filepath.Join(root, "pbp_2019", "play_by_play_2019.csv"), header, nil)
	writeCSV(t, filepath.Join(root, "pbp_2018", "play_by_play_2018.csv"), header, nil)
	// Stray files at the root are not season directories.
	require.NoError(t, os.WriteFile(filepath.Join(root, "README_2019.txt"), []byte("x"), 0o644))

	dirs, err := Discover(root, SeasonFilter([]int{2019, 2020}))
	require.NoError(t, err)
	require.Len(t, dirs, 2)
	assert.Equal(t, "pbp_2019", dirs[0].Name)
	assert.Equal(t, "pbp_2020", dirs[1].Name)
	assert.Equal(t, filepath.Join(root, "pbp_2019", "play_by_play_2019.csv"), dirs[0].File)
}

func TestDiscover_IgnoresNonDataFiles(t *testing.T) {
	root := t.TempDir()
	writeCSV(t, filepath.Join(root, "pbp_2019", "play_by_play_2019.csv.gz"), header, nil)
	require.NoError(t, os.WriteFile(filepath.Join(root, "pbp_2019", "notes.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pbp_2019", ".hidden.csv"), []byte("x"), 0o644))

	dirs, err := Discover(root, nil)
	require.NoError(t, err)
	require.Len(t, dirs, 1)
	assert.True(t, strings.HasSuffix(dirs[0].File, ".csv.gz"))
}

func TestDiscover_MissingFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pbp_2019"), 0o755))

	_, err := Discover(root, SeasonFilter([]int{2019}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingSeasonFile)
	assert.Contains(t, err.Error(), "pbp_2019")
}

func TestDiscover_AmbiguousFile(t *testing.T) {
	root := t.TempDir()
	writeCSV(t, filepath.Join(root, "pbp_2019", "a.csv"), header, nil)
	writeCSV(t, filepath.Join(root, "pbp_2019", "b.csv"), header, nil)

	_, err := Discover(root, SeasonFilter([]int{2019}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAmbiguousSeasonFile)
	assert.Contains(t, err.Error(), "a.csv, b.csv")
}

func TestDiscover_MissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"), nil)
	require.Error(t, err)
}

func TestMissingSeasons(t *testing.T) {
	dirs := []SeasonDir{{Name: "pbp_2019"}, {Name: "pbp_2021"}}
	assert.Equal(t, []int{2020}, MissingSeasons(dirs, []int{2019, 2020, 2021}))
	assert.Nil(t, MissingSeasons(dirs, []int{2019}))
}

func TestLoad_ConcatenatesWithContiguousIndex(t *testing.T) {
	root := t.TempDir()
	writeCSV(t, filepath.Join(root, "pbp_2019", "pbp.csv"), header, []string{
		"1,2019,00-001,A.Alpha,1,1,0,0,12,0,1",
		"2,2019,00-001,A.Alpha,1,0,1,0,0,0,1",
	})
	writeGzipCSV(t, filepath.Join(root, "pbp_2020", "pbp.csv.gz"), header, []string{
		"1,2020,00-001,A.Alpha,1,1,0,0,30.0,1.0,1",
		"2,2020,,,0,0,0,0,4,0,1",
		"3,2020,00-002,B.Bravo,NA,,0,1,-7,0,1",
	})

	dirs, err := Discover(root, SeasonFilter([]int{2019, 2020}))
	require.NoError(t, err)
	plays, err := Load(dirs, nil)
	require.NoError(t, err)
	require.Len(t, plays, 5)

	for i, p := range plays {
		assert.Equal(t, i, p.Index, "index must be contiguous across files")
	}

	first := plays[0]
	assert.True(t, first.KeyValid)
	assert.Equal(t, model.Key{Season: 2019, PasserID: "00-001", PasserName: "A.Alpha"}, first.Key)
	assert.Equal(t, model.NullFloat{Value: 12, Valid: true}, first.YardsGained)

	td := plays[2]
	assert.Equal(t, 2020, td.Key.Season)
	assert.Equal(t, model.NullFloat{Value: 1, Valid: true}, td.Touchdown)

	assert.False(t, plays[3].KeyValid, "play without passer has a null key")

	bravo := plays[4]
	assert.True(t, bravo.KeyValid)
	assert.False(t, bravo.Pass.Valid)
	assert.False(t, bravo.CompletePass.Valid)
	assert.Equal(t, -7.0, bravo.YardsGained.Value)
}

func TestLoad_MissingColumn(t *testing.T) {
	root := t.TempDir()
	writeCSV(t, filepath.Join(root, "pbp_2019", "pbp.csv"),
		"season,passer_id,passer,pass", []string{"2019,00-001,A.Alpha,1"})

	dirs, err := Discover(root, nil)
	require.NoError(t, err)
	_, err = Load(dirs, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "complete_pass")
	assert.Contains(t, err.Error(), "pbp.csv")
}

func TestLoad_NoDirs(t *testing.T) {
	plays, err := Load(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, plays)
}

func TestParseSeason(t *testing.T) {
	cases := map[string]struct {
		want int
		ok   bool
	}{
		"2019":   {2019, true},
		"2019.0": {2019, true},
		" 2020 ": {2020, true},
		"2019.5": {0, false},
		"NA":     {0, false},
		"":       {0, false},
	}
	for in, c := range cases {
		got, ok := parseSeason(in)
		assert.Equal(t, c.ok, ok, in)
		assert.Equal(t, c.want, got, in)
	}
}
