// Package watcher reports changes to individual configuration files.
//
// fsnotify watches directories, so the watcher arms each file through its
// parent directory, or through the nearest existing ancestor when the parent
// does not exist yet, and re-arms when missing directories appear. Bursts of
// events for one file are coalesced over a debounce window: a removal wins,
// a creation is kept over later writes.
package watcher
