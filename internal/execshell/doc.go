// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with logging, timeouts and process slot limits via
// ShellExecutor, exposes OSCommandRunner for default process execution, and
// defines the abstractions the subprocess facade uses to run executables as
// discrete argument tokens, never through a shell.
package execshell
