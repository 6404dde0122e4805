// Package logger adapts the original colored leveled-logger surface
// (Debug/Info/Warn/Error/Success/Fatal, Banner/Section) onto
// gopkg.in/op/go-logging.v1, so the rest of the tree keeps the same
// call sites while getting a real leveled, backend-configurable logger
// underneath instead of hand-rolled ANSI formatting over log.Println.
package logger

import (
	"fmt"
	"os"

	logging "gopkg.in/op/go-logging.v1"
)

// ANSI color codes, kept for Section/Banner which go-logging has no
// concept of.
const (
	ColorReset = "\033[0m"
	ColorCyan  = "\033[36m"
	ColorGreen = "\033[32m"
)

var log = logging.MustGetLogger("raknetclient")

func init() {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatter := logging.MustStringFormatter(
		`%{color}[%{time:15:04:05}] %{level:.4s}%{color:reset} %{message}`,
	)
	leveled := logging.AddModuleLevel(logging.NewBackendFormatter(backend, formatter))
	leveled.SetLevel(logging.INFO, "")
	logging.SetBackend(leveled)
}

// SetLevel sets the minimum log level.
func SetLevel(level logging.Level) {
	logging.SetLevel(level, "")
}

// Debug logs a debug message.
func Debug(format string, args ...interface{}) { log.Debugf(format, args...) }

// Info logs an informational message.
func Info(format string, args ...interface{}) { log.Infof(format, args...) }

// Warn logs a warning message.
func Warn(format string, args ...interface{}) { log.Warningf(format, args...) }

// Error logs an error message.
func Error(format string, args ...interface{}) { log.Errorf(format, args...) }

// Success logs at INFO level with a green-highlighted message; go-logging
// has no distinct "success" level.
func Success(format string, args ...interface{}) {
	log.Infof(ColorGreen+format+ColorReset, args...)
}

// Fatal logs at CRITICAL and exits the process.
func Fatal(format string, args ...interface{}) {
	log.Criticalf(format, args...)
	os.Exit(1)
}

// Section prints a section header.
func Section(title string) {
	border := "═══════════════════════════════════════════════════════════"
	fmt.Printf("\n%s╔%s╗%s\n", ColorCyan, border, ColorReset)
	fmt.Printf("%s║%s %-57s %s║%s\n", ColorCyan, ColorReset, title, ColorCyan, ColorReset)
	fmt.Printf("%s╚%s╝%s\n\n", ColorCyan, border, ColorReset)
}

// Banner prints the application startup banner.
func Banner(title, version string) {
	banner := `
╔═══════════════════════════════════════════════════════════╗
║                                                             ║
║   ██████╗ ███████╗██████╗ ██████╗  ██████╗  ██████╗██╗  ██╗║
║   ██╔══██╗██╔════╝██╔══██╗██╔══██╗██╔═══██╗██╔════╝██║ ██╔╝║
║   ██████╔╝█████╗  ██║  ██║██████╔╝██║   ██║██║     █████╔╝ ║
║   ██╔══██╗██╔══╝  ██║  ██║██╔══██╗██║   ██║██║     ██╔═██╗ ║
║   ██████╔╝███████╗██████╔╝██║  ██║╚██████╔╝╚██████╗██║  ██╗║
║   ╚═════╝ ╚══════╝╚═════╝ ╚═╝  ╚═╝ ╚═════╝  ╚═════╝╚═╝  ╚═╝║
║                                                             ║
║              %s%-37s%s║
║                    %sVersion %-7s%s                      ║
║                                                             ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, ColorCyan, title, ColorReset, ColorGreen, version, ColorReset)
}
