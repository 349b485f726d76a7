// Package logger builds the process-wide logger for the registry daemon.
package logger

import (
	"log"
	"os"
)

// New returns the stdout logger shared by the engine and the sweep loop.
// Lines carry the civreg prefix after the timestamp.
func New() *log.Logger {
	return log.New(os.Stdout, "civreg: ", log.LstdFlags|log.Lmsgprefix)
}
