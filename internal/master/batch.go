package master

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// batchExtensions are the inputs [Mastering.Batch] picks up.
var batchExtensions = []string{".mp3", ".wav", ".flac", ".m4a", ".ogg", ".aac"}

// BatchItem is the outcome for one file of a batch.
type BatchItem struct {
	Input  string
	Result Result

	// Analysis is nil when the output could not be analysed.
	Analysis *Analysis
	Err      error
}

// Batch masters every audio file below inDir into outDir as
// "<stem>_mastered.mp3". An empty outDir means inDir/mastered, which is
// skipped while walking. Files are processed in path order.
func (m *Mastering) Batch(ctx context.Context, inDir, outDir string) ([]BatchItem, error) {
	info, err := os.Stat(inDir)
	if err != nil {
		return nil, fmt.Errorf("master: batch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("master: batch: %s is not a directory", inDir)
	}
	if outDir == "" {
		outDir = filepath.Join(inDir, "mastered")
	}

	files, err := collectAudio(inDir, outDir)
	if err != nil {
		return nil, fmt.Errorf("master: batch: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("master: batch: no audio files in %s", inDir)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("master: batch: %w", err)
	}

	items := make([]BatchItem, 0, len(files))
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return items, err
		}
		slog.Info("mastering file", "n", i+1, "of", len(files), "file", filepath.Base(f))

		stem := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		out := filepath.Join(outDir, stem+"_mastered.mp3")
		item := BatchItem{Input: f}
		item.Result, item.Err = m.Master(ctx, f, out)
		if item.Err == nil && m.tools.FFprobe != "" {
			if a, err := m.Analyze(ctx, item.Result.Path); err == nil {
				item.Analysis = &a
			} else {
				slog.Warn("analysis failed", "file", item.Result.Path, "err", err)
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func collectAudio(root, skip string) ([]string, error) {
	skipAbs, _ := filepath.Abs(skip)
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if abs, _ := filepath.Abs(path); abs == skipAbs && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if slices.Contains(batchExtensions, strings.ToLower(filepath.Ext(path))) {
			files = append(files, path)
		}
		return nil
	})
	slices.Sort(files)
	return files, err
}
