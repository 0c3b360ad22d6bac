// Package ui renders subprocess lifecycle events as short console messages.
//
// Structured telemetry keeps flowing through the executor's own logger; the
// console logger only adds human-readable progress lines, sanitized the same way.
package ui
