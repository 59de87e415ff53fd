package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FilePath returns the log file of one run: <dir>/<app>.<start>.log.
func FilePath(dir, app string, start time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%s.log", app, start.Format("20060102_150405")))
}

// OpenFile creates dir when needed and opens the log file of a run for appending. A file
// left by a run that started in the same second is moved aside to <name>.old.
func OpenFile(dir, app string, start time.Time) (*os.File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs dir: %w", err)
	}
	path := FilePath(dir, app, start)
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".old"); err != nil {
			return nil, fmt.Errorf("failed to rotate log file: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
