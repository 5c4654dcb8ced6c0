package analysis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/framegrade/framegrade/internal/errors"
)

// FileAnalysis evaluates one video and emits its report
func (s *Stack) FileAnalysis(ctx context.Context, path string) error {
	if err := validateVideoFile(path); err != nil {
		return err
	}

	results := s.Evaluate(ctx, []string{path})
	if err := results[0].Err; err != nil {
		return err
	}
	return s.Emit(ctx, reportsOf(results))
}

// validateVideoFile checks that path is a non-empty regular file, or a
// directory holding still images
func validateVideoFile(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return errors.New(fmt.Errorf("error accessing %s: %w", filepath.Base(path), err)).
			Component("analysis").
			Category(errors.CategoryFileIO).
			VideoContext(path, -1).
			Build()
	}
	if fi.IsDir() {
		return nil
	}
	if fi.Size() == 0 {
		return errors.Newf("file %s is empty (0 bytes)", filepath.Base(path)).
			Component("analysis").
			Category(errors.CategoryValidation).
			VideoContext(path, -1).
			Build()
	}
	return nil
}
