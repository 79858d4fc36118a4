// Package batch cleans many tables in one run and writes their outputs next
// to a run manifest.
package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/tabclean-cli/internal/analysis"
	"github.com/KaramelBytes/tabclean-cli/internal/reader"
	"github.com/KaramelBytes/tabclean-cli/internal/table"
	"github.com/KaramelBytes/tabclean-cli/internal/utils"
)

// ErrAllFailed is returned when no table of the run could be cleaned.
var ErrAllFailed = errors.New("every table failed")

// ManifestFile is the manifest's name inside the output directory.
const ManifestFile = "manifest.json"

// Options controls a batch run.
type Options struct {
	Clean analysis.Options
	Read  reader.Options
	// Workers bounds concurrent tables. Values <= 0 mean 1.
	Workers int
	OutDir  string
	// ReportFormat is "json" (default) or "yaml".
	ReportFormat string
	// FailFast stops the run at the first failed table.
	FailFast bool
	// Progress receives "[i/n] Processing ..." lines. Nil is quiet.
	Progress io.Writer
	Logger   *zap.Logger
}

// Entry is the manifest record of one table.
type Entry struct {
	Source
	RowsIn  int      `json:"rows_in"`
	RowsOut int      `json:"rows_out"`
	ColsIn  int      `json:"cols_in"`
	ColsOut int      `json:"cols_out"`
	Actions int      `json:"actions"`
	Outputs []string `json:"outputs,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Failed reports whether the table could not be cleaned.
func (e Entry) Failed() bool { return e.Error != "" }

// RunOptions is the part of the pipeline configuration recorded in the
// manifest.
type RunOptions struct {
	HeaderSampleRows     int    `json:"header_sample_rows"`
	RowSlack             int    `json:"row_slack"`
	ColumnSlack          int    `json:"column_slack"`
	FloatPattern         string `json:"float_pattern"`
	CensoredPattern      string `json:"censored_pattern"`
	LegacyEmptyHeaderRow bool   `json:"legacy_empty_header_row"`
}

// Manifest describes one batch run.
type Manifest struct {
	RunID     string     `json:"run_id"`
	CreatedAt time.Time  `json:"created_at"`
	Options   RunOptions `json:"options"`
	Tables    []Entry    `json:"tables"`
}

// Failed counts failed tables.
func (m *Manifest) Failed() int {
	n := 0
	for _, e := range m.Tables {
		if e.Failed() {
			n++
		}
	}
	return n
}

// Run cleans every source and writes its outputs and the manifest into
// opt.OutDir. A failed table is recorded in its manifest entry and the run
// goes on, unless opt.FailFast is set. The manifest is written even when
// Run returns an error.
func Run(ctx context.Context, sources []Source, opt Options) (*Manifest, error) {
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	if opt.Clean.Logger == nil {
		opt.Clean.Logger = opt.Logger
	}
	switch opt.ReportFormat {
	case "":
		opt.ReportFormat = "json"
	case "json", "yaml":
	default:
		return nil, fmt.Errorf("unsupported report format: %s (use json or yaml)", opt.ReportFormat)
	}
	workers := opt.Workers
	if workers <= 0 {
		workers = 1
	}
	if err := utils.EnsureDir(opt.OutDir); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	co := opt.Clean
	m := &Manifest{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Options: RunOptions{
			HeaderSampleRows:     co.HeaderSampleRows,
			RowSlack:             co.RowSlack,
			ColumnSlack:          co.ColumnSlack,
			FloatPattern:         co.FloatPattern,
			CensoredPattern:      co.CensoredPattern,
			LegacyEmptyHeaderRow: co.LegacyEmptyHeaderRow,
		},
		Tables: make([]Entry, len(sources)),
	}
	log := opt.Logger.With(zap.String("run_id", m.RunID))

	var (
		mu      sync.Mutex
		started int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, src := range sources {
		i, src := i, src
		m.Tables[i] = Entry{Source: src}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				m.Tables[i].Error = err.Error()
				return nil
			}
			if opt.Progress != nil {
				mu.Lock()
				started++
				fmt.Fprintf(opt.Progress, "[%d/%d] Processing %s...\n", started, len(sources), filepath.Base(src.Path))
				mu.Unlock()
			}
			entry, err := cleanOne(src, opt)
			m.Tables[i] = entry
			if err != nil {
				m.Tables[i].Error = err.Error()
				log.Warn("table failed", zap.String("table", src.ID), zap.Error(err))
				if opt.FailFast {
					return fmt.Errorf("%s: %w", src.ID, err)
				}
				return nil
			}
			log.Debug("table cleaned", zap.String("table", src.ID), zap.Int("actions", entry.Actions))
			return nil
		})
	}
	runErr := g.Wait()

	b, err := utils.PrettyJSON(m)
	if err != nil {
		return m, err
	}
	if err := utils.SafeWriteFile(filepath.Join(opt.OutDir, ManifestFile), b); err != nil {
		return m, fmt.Errorf("write manifest: %w", err)
	}
	if runErr != nil {
		return m, runErr
	}
	if len(sources) > 0 && m.Failed() == len(sources) {
		return m, ErrAllFailed
	}
	log.Info("batch finished", zap.Int("tables", len(sources)), zap.Int("failed", m.Failed()))
	return m, nil
}

func cleanOne(src Source, opt Options) (Entry, error) {
	e := Entry{Source: src}
	t, err := reader.ReadFile(src.Path, opt.Read)
	if err != nil {
		return e, &analysis.TableError{Table: src.ID, Err: err}
	}
	res, err := analysis.Clean(src.ID, t, opt.Clean)
	if err != nil {
		return e, err
	}
	e.RowsIn, e.ColsIn = res.RowsIn, res.ColsIn
	e.RowsOut, e.ColsOut = res.Table.NumRows(), res.Table.NumCols()
	e.Actions = len(res.Actions)

	outputs, err := WriteOutputs(opt.OutDir, src.ID, res, opt.ReportFormat, opt.Read.Delimiter)
	e.Outputs = outputs
	return e, err
}

// WriteOutputs writes the cleaned table, the Markdown report and the
// structured report of res into dir and returns the file names written.
func WriteOutputs(dir, id string, res *analysis.Result, format string, comma rune) ([]string, error) {
	var csvBuf bytes.Buffer
	if err := table.WriteCSV(&csvBuf, res.Table, comma); err != nil {
		return nil, fmt.Errorf("encode cleaned table: %w", err)
	}
	report, err := EncodeResult(res, format)
	if err != nil {
		return nil, err
	}
	files := []struct {
		name string
		data []byte
	}{
		{id + ".cleaned.csv", csvBuf.Bytes()},
		{id + ".report.md", []byte(res.Markdown())},
		{id + ".report." + format, report},
	}
	var written []string
	for _, f := range files {
		if err := utils.SafeWriteFile(filepath.Join(dir, f.name), f.data); err != nil {
			return written, fmt.Errorf("write %s: %w", f.name, err)
		}
		written = append(written, f.name)
	}
	return written, nil
}

// EncodeResult renders res as indented JSON or as YAML.
func EncodeResult(res *analysis.Result, format string) ([]byte, error) {
	switch format {
	case "", "json":
		return utils.PrettyJSON(res)
	case "yaml":
		b, err := yaml.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("unsupported report format: %s (use json or yaml)", format)
}
