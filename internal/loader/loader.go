// Package loader discovers season directories of play-by-play files and
// reads them into a single row-set of passing plays.
package loader

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/pable/go-qb-stats/internal/model"
)

var (
	// ErrMissingSeasonFile is returned when a season directory holds no data file.
	ErrMissingSeasonFile = errors.New("missing season file")
	// ErrAmbiguousSeasonFile is returned when a season directory holds more than one data file.
	ErrAmbiguousSeasonFile = errors.New("ambiguous season file")
)

// dataSuffixes are the recognized data file extensions (compared lower-case).
var dataSuffixes = []string{".csv", ".csv.gz"}

// nullValues are cell spellings treated as missing.
var nullValues = []string{"", "na", "nan", "null", "<nil>"}

// SeasonDir is one matched season directory and its single data file.
type SeasonDir struct {
	Name string // directory name, e.g. "play_by_play_2019"
	Path string // directory path
	File string // path to the data file inside Path
}

// Filter reports whether a directory name belongs to the ingestion set.
type Filter func(name string) bool

// SeasonFilter matches directory names containing any of the given years.
func SeasonFilter(seasons []int) Filter {
	years := make([]string, len(seasons))
	for i, s := range seasons {
		years[i] = strconv.Itoa(s)
	}
	return func(name string) bool {
		for _, y := range years {
			if strings.Contains(name, y) {
				return true
			}
		}
		return false
	}
}

// MissingSeasons returns the seasons that no discovered directory name contains.
func MissingSeasons(dirs []SeasonDir, seasons []int) []int {
	var missing []int
	for _, s := range seasons {
		y := strconv.Itoa(s)
		found := false
		for _, d := range dirs {
			if strings.Contains(d.Name, y) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, s)
		}
	}
	return missing
}

// Discover lists the subdirectories of root accepted by filter and resolves
// each to its single data file. Directories are returned sorted by name.
func Discover(root string, filter Filter) ([]SeasonDir, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read data dir %s: %w", root, err)
	}

	var out []SeasonDir
	for _, e := range entries {
		if !e.IsDir() || (filter != nil && !filter(e.Name())) {
			continue
		}
		dir := filepath.Join(root, e.Name())
		file, err := seasonFile(dir)
		if err != nil {
			return nil, err
		}
		out = append(out, SeasonDir{Name: e.Name(), Path: dir, File: file})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// seasonFile returns the only recognized data file in dir.
func seasonFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read season dir %s: %w", dir, err)
	}
	var candidates []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !isDataFile(e.Name()) {
			continue
		}
		candidates = append(candidates, e.Name())
	}
	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("season dir %s: %w", dir, ErrMissingSeasonFile)
	case 1:
		return filepath.Join(dir, candidates[0]), nil
	default:
		sort.Strings(candidates)
		return "", fmt.Errorf("season dir %s has %d data files (%s): %w",
			dir, len(candidates), strings.Join(candidates, ", "), ErrAmbiguousSeasonFile)
	}
}

func isDataFile(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range dataSuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

// ReadFrame reads one data file as an all-string frame projected to columns.
func ReadFrame(path string, columns []string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("gunzip %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}

	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.WithLazyQuotes(true),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read csv %s: %w", path, df.Err)
	}
	if missing := missingColumns(df.Names(), columns); len(missing) > 0 {
		return dataframe.DataFrame{}, fmt.Errorf("csv %s: missing columns %s", path, strings.Join(missing, ", "))
	}
	df = df.Select(columns)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("select columns %s: %w", path, df.Err)
	}
	return df, nil
}

func missingColumns(have, want []string) []string {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[h] = struct{}{}
	}
	var missing []string
	for _, w := range want {
		if _, ok := set[w]; !ok {
			missing = append(missing, w)
		}
	}
	return missing
}

// Load reads every season file, concatenates them in order, and converts the
// combined frame into plays with a contiguous index.
func Load(dirs []SeasonDir, log *zap.Logger) ([]model.Play, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var combined dataframe.DataFrame
	for i, d := range dirs {
		df, err := ReadFrame(d.File, model.PlayColumns)
		if err != nil {
			return nil, err
		}
		log.Debug("read season file", zap.String("dir", d.Name), zap.String("file", d.File), zap.Int("rows", df.Nrow()))
		if i == 0 {
			combined = df
			continue
		}
		combined = combined.RBind(df)
		if combined.Err != nil {
			return nil, fmt.Errorf("concat %s: %w", d.File, combined.Err)
		}
	}
	if len(dirs) == 0 {
		return nil, nil
	}

	plays, err := Plays(combined)
	if err != nil {
		return nil, err
	}
	log.Info("loaded play-by-play data",
		zap.Int("files", len(dirs)), zap.Int("rows", combined.Nrow()), zap.Int("columns", combined.Ncol()))
	return plays, nil
}

// Plays converts a frame holding model.PlayColumns into plays.
func Plays(df dataframe.DataFrame) ([]model.Play, error) {
	cols := make(map[string][]string, len(model.PlayColumns))
	for _, c := range model.PlayColumns {
		s := df.Col(c)
		if s.Err != nil {
			return nil, fmt.Errorf("column %s: %w", c, s.Err)
		}
		cols[c] = s.Records()
	}

	n := df.Nrow()
	plays := make([]model.Play, n)
	for i := 0; i < n; i++ {
		p := model.Play{Index: i}
		season, seasonOK := parseSeason(cols[model.ColSeason][i])
		id := cell(cols[model.ColPasserID][i])
		name := cell(cols[model.ColPasser][i])
		p.Key = model.Key{Season: season, PasserID: id, PasserName: name}
		p.KeyValid = seasonOK && id != "" && name != ""

		p.Pass = parseFloat(cols[model.ColPass][i])
		p.CompletePass = parseFloat(cols[model.ColCompletePass][i])
		p.Interception = parseFloat(cols[model.ColInterception][i])
		p.Sack = parseFloat(cols[model.ColSack][i])
		p.YardsGained = parseFloat(cols[model.ColYardsGained][i])
		p.Touchdown = parseFloat(cols[model.ColTouchdown][i])
		plays[i] = p
	}
	return plays, nil
}

// cell trims v and maps null spellings to "".
func cell(v string) string {
	v = strings.TrimSpace(v)
	lower := strings.ToLower(v)
	for _, n := range nullValues {
		if lower == n {
			return ""
		}
	}
	return v
}

func parseFloat(v string) model.NullFloat {
	v = cell(v)
	if v == "" {
		return model.NullFloat{}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return model.NullFloat{}
	}
	return model.NullFloat{Value: f, Valid: true}
}

// parseSeason accepts "2019" and integral floats such as "2019.0".
func parseSeason(v string) (int, bool) {
	v = cell(v)
	if v == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}
