package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/askiada/go-rnaseq/pkg/pipeline/model"
)

// Disabled turns off an optional output path such as the ledger or the stage graph.
const Disabled = "none"

// Config holds every path and option of a run. It is built once at startup and passed to
// the constructors that need it.
type Config struct {
	InputDir    string
	ResultsDir  string
	GenomeIndex string
	Annotation  string
	Conditions  string
	Script      string
	ToolsFile   string
	LedgerPath  string
	GraphPath   string
	// FastqSuffixes selects the raw read files of InputDir.
	FastqSuffixes []string
	Concurrency   int
	LogLevel      string
	LogFormat     string
}

// Load reads envFile (".env" when empty, a missing file is ignored) then the RNASEQ_*
// environment variables, falling back to defaults. Variables already set in the
// environment take precedence over the file.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}

	err := godotenv.Load(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(err, "unable to load %s", envFile)
	}

	cfg := &Config{
		InputDir:      getEnv("RNASEQ_INPUT_DIR", "./data/fastq"),
		ResultsDir:    getEnv("RNASEQ_RESULTS_DIR", "./results"),
		GenomeIndex:   getEnv("RNASEQ_GENOME_INDEX", "./genome/hisat2_index/genome"),
		Annotation:    getEnv("RNASEQ_ANNOTATION", "./genome/annotations.gtf"),
		Conditions:    getEnv("RNASEQ_CONDITIONS", "./conditions.csv"),
		Script:        getEnv("RNASEQ_DESEQ2_SCRIPT", "./scripts/deseq2.R"),
		ToolsFile:     getEnv("RNASEQ_TOOLS_FILE", ""),
		LedgerPath:    getEnv("RNASEQ_LEDGER", ""),
		GraphPath:     getEnv("RNASEQ_GRAPH", ""),
		FastqSuffixes: getEnvList("RNASEQ_FASTQ_SUFFIXES", []string{".fastq"}),
		Concurrency:   getEnvInt("RNASEQ_CONCURRENCY", 1),
		LogLevel:      getEnv("RNASEQ_LOG_LEVEL", "info"),
		LogFormat:     getEnv("RNASEQ_LOG_FORMAT", "json"),
	}

	return cfg, nil
}

// StageDir returns the output directory of a stage under the results root.
func (c *Config) StageDir(name string) string {
	return filepath.Join(c.ResultsDir, name)
}

// LedgerFile returns the run ledger path, empty when the ledger is disabled.
func (c *Config) LedgerFile() string {
	return optionalPath(c.LedgerPath, filepath.Join(c.ResultsDir, "runs.db"))
}

// GraphFile returns the stage graph path, empty when drawing is disabled.
func (c *Config) GraphFile() string {
	return optionalPath(c.GraphPath, filepath.Join(c.ResultsDir, "pipeline.dot"))
}

// Validate checks the operator supplied inputs. Missing paths are environment errors.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return errors.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}

	if len(c.FastqSuffixes) == 0 {
		return errors.New("at least one fastq suffix is required")
	}

	err := requireDir("input directory", c.InputDir)
	if err != nil {
		return err
	}

	for _, file := range []struct{ what, path string }{
		{"annotation", c.Annotation},
		{"condition table", c.Conditions},
		{"differential expression script", c.Script},
	} {
		err := requireFile(file.what, file.path)
		if err != nil {
			return err
		}
	}

	indexFiles, err := filepath.Glob(c.GenomeIndex + ".*.ht2*")
	if err != nil || len(indexFiles) == 0 {
		return errors.Wrapf(model.ErrEnvironment, "no genome index file with prefix %s", c.GenomeIndex)
	}

	return nil
}

func requireDir(what, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(model.ErrEnvironment, "%s %s: %v", what, path, err)
	}

	if !info.IsDir() {
		return errors.Wrapf(model.ErrEnvironment, "%s %s is not a directory", what, path)
	}

	return nil
}

func requireFile(what, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(model.ErrEnvironment, "%s %s: %v", what, path, err)
	}

	if info.IsDir() {
		return errors.Wrapf(model.ErrEnvironment, "%s %s is a directory", what, path)
	}

	return nil
}

func optionalPath(path, fallback string) string {
	switch path {
	case Disabled:
		return ""
	case "":
		return fallback
	default:
		return path
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}

	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	return SplitList(v)
}

// SplitList splits a comma separated list, dropping blank entries.
func SplitList(v string) []string {
	out := []string{}

	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}

	return out
}
