package provider

import "github.com/kbukum/prefkit/uri"

// FolderSelector picks the folder whose providers answer for a resource.
type FolderSelector struct{}

// Select returns the entries of the folder closest to resource: the folder
// with the smallest non-negative relativity to it, the earliest registered
// folder on a tie. The result keeps registration order and is empty when
// resource is zero or lies outside every folder.
func (FolderSelector) Select(entries []*Entry, resource uri.URI) []*Entry {
	if resource.IsZero() || len(entries) == 0 {
		return nil
	}

	var (
		winner    *Entry
		winnerRel = -1
	)
	for _, e := range entries {
		rel := uri.Relativity(e.Folder.Path(), resource.Path())
		if rel < 0 {
			continue
		}
		if winner == nil || rel < winnerRel || rel == winnerRel && e.seq < winner.seq {
			winner, winnerRel = e, rel
		}
	}
	if winner == nil {
		return nil
	}

	var out []*Entry
	for _, e := range entries {
		if e.Folder.Equal(winner.Folder) {
			out = append(out, e)
		}
	}
	return out
}
