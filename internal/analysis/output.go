package analysis

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/framegrade/framegrade/internal/errors"
	"github.com/framegrade/framegrade/internal/evaluation"
	"github.com/framegrade/framegrade/internal/logger"
	"github.com/framegrade/framegrade/internal/report"
)

// Emit writes reports in the configured format, then saves and publishes
// each one when those sinks are enabled. Sink failures are logged and
// returned together after every report was attempted.
func (s *Stack) Emit(ctx context.Context, reports []evaluation.Report) error {
	if err := s.writeReports(reports); err != nil {
		return err
	}

	log := GetLogger()
	var errs []error
	for i := range reports {
		r := &reports[i]
		if s.store != nil {
			if err := s.store.Save(r); err != nil {
				log.Error("failed to save report", logger.String("video", r.Source), logger.Error(err))
				errs = append(errs, err)
			}
		}
		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, r); err != nil {
				log.Error("failed to publish report", logger.String("video", r.Source), logger.Error(err))
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (s *Stack) writeReports(reports []evaluation.Report) error {
	w, err := report.ForFormat(s.settings.Output.Format)
	if err != nil {
		return err
	}

	path := s.settings.Output.Path
	if path == "" {
		return w.Write(os.Stdout, reports)
	}
	return writeFile(path, func(out io.Writer) error { return w.Write(out, reports) })
}

// writeFile writes through a temporary file renamed into place on success
func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fileError(err, "create output directory")
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fileError(err, "create output file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fileError(err, "close output file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fileError(err, "rename output file")
	}
	GetLogger().Info("report written", logger.String("path", path))
	return nil
}

// reportsOf returns the successful reports of results, in order
func reportsOf(results []evaluation.Result) []evaluation.Report {
	out := make([]evaluation.Report, 0, len(results))
	for _, res := range results {
		if res.Report != nil {
			out = append(out, *res.Report)
		}
	}
	return out
}
