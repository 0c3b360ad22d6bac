// Package gitrepo inspects Git repositories on disk without spawning git.
//
// Inspector answers whether a directory is the root of a repository and which
// branch it has checked out. Subprocess validation relies on it to refuse
// working directories that are not repositories.
package gitrepo
