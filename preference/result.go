package preference

import "github.com/kbukum/prefkit/uri"

// ResolveResult is the value a provider (or the engine) found for a
// preference, together with the configuration file it came from. The zero
// value means nothing was found.
type ResolveResult struct {
	Value     any     `json:"value"`
	ConfigURI uri.URI `json:"configUri"`
}

// Found reports whether the result carries both a value and its origin.
func (r ResolveResult) Found() bool {
	return r.Value != nil && !r.ConfigURI.IsZero()
}
