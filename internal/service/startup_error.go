package service

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StartupErrorFile is the name of the file written by WriteStartupError.
const StartupErrorFile = "startup-error.log"

// WriteStartupError records why the exporter failed to start next to its
// log file, so the reason survives when stderr is not captured. The file is
// overwritten on each call. It returns the path written.
func WriteStartupError(logDir, program string, err error) (string, error) {
	if mkErr := os.MkdirAll(logDir, 0755); mkErr != nil {
		return "", mkErr
	}

	path := filepath.Join(logDir, StartupErrorFile)
	f, ferr := os.Create(path)
	if ferr != nil {
		return "", ferr
	}
	defer f.Close()

	ts := time.Now().Format("2006-01-02 15:04:05")
	if _, werr := fmt.Fprintf(f, "[%s] %s failed to start\n%v\n", ts, program, err); werr != nil {
		return "", werr
	}
	return path, nil
}
