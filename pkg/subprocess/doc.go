// Package subprocess runs external processes behind a safety facade.
//
// A Facade validates repository paths before they are used as working
// directories, refuses commands that would need a shell to interpret them,
// bounds every process by a timeout and a concurrency limit, and sanitizes all
// error text it returns. Security rejections are reported as SecurityError
// values and always happen before a process is spawned.
//
// The zero Configuration is safe: every relaxation of the defaults is an
// explicit opt-in. DefaultConfiguration returns the same policy with the
// package constants filled in.
package subprocess
