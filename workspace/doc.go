// Package workspace tracks the folder roots of an open workspace.
//
// A Service starts unpublished: Roots blocks until the first root set is
// set, after which every effective change is announced with a snapshot of
// the new roots. Root sets come from a folder list or a .code-workspace
// file.
package workspace
