package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"chatguard/internal/classifier"
	"chatguard/internal/config"
	"chatguard/internal/logging"
	"chatguard/internal/storage"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

var version = "v0.0.1-default"

type result struct {
	Text    string             `json:"text" yaml:"text"`
	Verdict classifier.Verdict `json:"verdict" yaml:"verdict"`
}

type report struct {
	Results []result       `json:"results,omitempty" yaml:"results,omitempty"`
	Summary *storage.Stats `json:"summary,omitempty" yaml:"summary,omitempty"`
}

func main() {
	cmd := &cli.Command{
		Name:      "label",
		Version:   version,
		Usage:     "Label chat messages as phishing, benign or uncertain",
		ArgsUsage: "[text...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "Path to the config file",
			},
			&cli.StringFlag{
				Name:  "csv",
				Usage: "Read texts from a CSV file instead of arguments",
			},
			&cli.StringFlag{
				Name:  "column",
				Value: "text",
				Usage: "CSV column holding the message text",
			},
			&cli.IntFlag{
				Name:  "batch",
				Value: 32,
				Usage: "Texts sent to the backend per call",
			},
			&cli.StringFlag{
				Name:  "format",
				Value: formatJSON,
				Usage: "Output format [json, yaml]",
			},
			&cli.BoolFlag{
				Name:  "summary",
				Usage: "Print only label counts",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Prints verbose logs",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.Log.Level
	if cmd.Bool("debug") {
		level = "debug"
	}
	logging.SetDefault(level, cfg.Log.Format)

	texts := cmd.Args().Slice()
	if path := cmd.String("csv"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if texts, err = readColumn(f, cmd.String("column")); err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
	}
	if len(texts) == 0 {
		return classifier.ErrEmptyBatch
	}

	labeler, err := classifier.New(cfg.Classifier)
	if err != nil {
		return err
	}

	verdicts, err := labelBatches(ctx, labeler, texts, int(cmd.Int("batch")))
	if err != nil {
		return err
	}

	return write(os.Stdout, buildReport(texts, verdicts, cmd.Bool("summary")), cmd.String("format"))
}

// readColumn returns the named column of a headed CSV.
func readColumn(r io.Reader, column string) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), column) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("CSV is missing column %q", column)
	}

	var texts []string
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		text := ""
		if idx < len(row) {
			text = row[idx]
		}
		texts = append(texts, text)
	}
	return texts, nil
}

func labelBatches(ctx context.Context, l classifier.Labeler, texts []string, size int) ([]classifier.Verdict, error) {
	if size < 1 {
		size = len(texts)
	}
	verdicts := make([]classifier.Verdict, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		batch, err := l.Label(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("label texts %d-%d: %w", start, end-1, err)
		}
		verdicts = append(verdicts, batch...)
		slog.Debug("labelled batch", "done", end, "total", len(texts))
	}
	return verdicts, nil
}

func buildReport(texts []string, verdicts []classifier.Verdict, summaryOnly bool) report {
	var stats storage.Stats
	results := make([]result, len(texts))
	for i, v := range verdicts {
		results[i] = result{Text: texts[i], Verdict: v}
		stats.Add(v.Label, 1)
	}
	if summaryOnly {
		return report{Summary: &stats}
	}
	return report{Results: results, Summary: &stats}
}

func write(w io.Writer, r report, format string) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(r)
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}
