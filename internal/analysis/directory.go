package analysis

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/framegrade/framegrade/internal/errors"
	"github.com/framegrade/framegrade/internal/logger"
)

// DirectoryAnalysis evaluates every video in dir in parallel and emits the
// successful reports. A failed video does not stop the others; the
// failures are returned together.
func (s *Stack) DirectoryAnalysis(ctx context.Context, dir string, recursive bool) error {
	files, err := listVideos(dir, s.settings.Video.Extensions, recursive)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.Newf("no video files found in %s", dir).
			Component("analysis").
			Category(errors.CategoryNotFound).
			Build()
	}

	log := GetLogger()
	log.Info("evaluating directory",
		logger.String("directory", dir),
		logger.Int("videos", len(files)),
		logger.Int("workers", s.runner.Workers()))

	results := s.Evaluate(ctx, files)

	var failures []error
	for _, res := range results {
		if res.Err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", filepath.Base(res.ID), res.Err))
		}
	}

	if reports := reportsOf(results); len(reports) > 0 {
		if err := s.Emit(ctx, reports); err != nil {
			failures = append(failures, err)
		}
	}
	return errors.Join(failures...)
}

// listVideos returns the files under dir whose extension is in extensions,
// compared case-insensitively, sorted by path
func listVideos(dir string, extensions []string, recursive bool) ([]string, error) {
	wanted := make([]string, len(extensions))
	for i, ext := range extensions {
		wanted[i] = strings.ToLower(ext)
	}

	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if slices.Contains(wanted, strings.ToLower(filepath.Ext(path))) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(err).
				Component("analysis").
				Category(errors.CategoryNotFound).
				Build()
		}
		return nil, fileError(err, "list directory")
	}
	slices.Sort(files)
	return files, nil
}
