package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Result directory layout below the output directory
const (
	FullDir           = "full"
	AffinedDir        = "affined"
	MoneyEvolutionDir = "withMoneyEvolution"
)

// ResultFileName names a result file after the time it was written, e.g. 2024_3_5_14h7m9s.json
func ResultFileName(now time.Time, ext string) string {
	return fmt.Sprintf("%d_%d_%d_%dh%dm%ds%s",
		now.Year(), int(now.Month()), now.Day(), now.Hour(), now.Minute(), now.Second(), ext)
}

// ResultPaths are the files one sweep writes
type ResultPaths struct {
	Full             string
	FullWithCurve    string
	Affined          string
	AffinedWithCurve string
	SummaryCSV       string
	Workbook         string
}

// NewResultPaths lays out the result files of a sweep finished at now
func NewResultPaths(outputDir string, now time.Time) ResultPaths {
	name := ResultFileName(now, ".json")
	return ResultPaths{
		Full:             filepath.Join(outputDir, FullDir, name),
		FullWithCurve:    filepath.Join(outputDir, FullDir, MoneyEvolutionDir, name),
		Affined:          filepath.Join(outputDir, AffinedDir, name),
		AffinedWithCurve: filepath.Join(outputDir, AffinedDir, MoneyEvolutionDir, name),
		SummaryCSV:       filepath.Join(outputDir, ResultFileName(now, ".csv")),
		Workbook:         filepath.Join(outputDir, ResultFileName(now, ".xlsx")),
	}
}

// EnsureDirectoryExists creates the parent directory of path
func EnsureDirectoryExists(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
