package cmd

import (
	"os"
	"runtime/debug"
)

// CrashWriter appends fatal-signal crash reports to a fixed file, one
// open/append/close per write since crashes are rare and shouldn't hold a
// descriptor open across the whole run.
type CrashWriter struct {
	fileName string
}

func (w *CrashWriter) Write(p []byte) (n int, err error) {
	f, err := os.OpenFile(w.fileName, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	n, err = f.Write(p)

	return
}

// installCrashHandler directs fatal-signal crash reports (segfaults,
// unrecoverable runtime errors) to crash.log in the working directory
// instead of only stderr, matching the requirement that a fatal exception
// leave a durable trace even after the terminal display is torn down.
func installCrashHandler() {
	debug.SetCrashOutput(&CrashWriter{fileName: "crash.log"}, debug.CrashOptions{})
}
