// Package preference holds the value types shared by providers and the
// resolution engine: resolve results, change sets, the deep right-biased
// merge, and the naming policy that maps (folder, path, name) triples to
// configuration file URIs.
//
// Preference values are opaque: maps are merged key by key, every other
// value (including arrays) is replaced wholesale.
package preference
