package anime

import (
	"context"

	"github.com/snapetech/anidbclient/internal/store"
)

// RelatedAnime walks root's relation graph transitively, visiting each
// anime at most once, optionally restricted to anime already present in
// the caller's mylist. Grounded on adbb/utils.py's get_related_anime,
// an original-source feature the distilled spec dropped but that
// composes directly from the relations capability spec.md already
// requires, using the cycle-safe visited-set traversal spec.md §9
// mandates.
func RelatedAnime(ctx context.Context, s *store.Store, fetcher Fetcher, root *Anime, onlyInMylist bool, inMylist func(aid int) bool) ([]*Anime, error) {
	visited := map[int]bool{root.AID(): true}
	queue := []*Anime{root}
	var out []*Anime

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		rels, err := cur.Relations(ctx)
		if err != nil {
			return nil, err
		}
		for relAID := range rels {
			if visited[relAID] {
				continue
			}
			visited[relAID] = true
			if onlyInMylist && inMylist != nil && !inMylist(relAID) {
				continue
			}
			child := New(s, fetcher, relAID)
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out, nil
}
