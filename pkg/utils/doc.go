// Package utils is the compact entry point to the subprocess safety facade.
//
// It exposes the default timeout, the security error type and three functions
// that delegate to a facade built once from subprocess.DefaultConfiguration.
// Callers needing a different policy construct their own subprocess.Facade.
package utils
