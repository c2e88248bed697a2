package display

import (
	"fmt"
	"path/filepath"

	"github.com/gauthierbraillon/moltwatch/pkg/atomicfile"
)

// FileSink writes rendered reports into a directory, one file per window end
// date.
type FileSink struct {
	Dir string
}

// Path returns the file a report ending on date is written to.
func (s FileSink) Path(date string) string {
	return filepath.Join(s.Dir, date+".md")
}

// Write stores doc as <Dir>/<date>.md, replacing any previous report for the
// same date, and returns the path written.
func (s FileSink) Write(date string, doc []byte) (string, error) {
	path := s.Path(date)
	if err := atomicfile.Write(path, doc, 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}
