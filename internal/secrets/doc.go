// Package secrets finds credential material in free-form text using the
// gitleaks default rule set.
package secrets
