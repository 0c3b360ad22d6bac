// Package discovery finds Git work trees below directories on disk.
package discovery
