// Package fusion merges keyword and vector results into one ranked set.
package fusion

import (
	"sort"

	"github.com/kailas-cloud/paralegal/internal/domain/search/result"
)

// Fuse concatenates keyword then vector results, sorts by score descending and
// keeps the first occurrence of every id. Sorting is stable, so on equal scores
// the keyword result wins. At most topK results are returned.
func Fuse(keyword, vector []result.Result, topK int) []result.Result {
	if topK <= 0 {
		return nil
	}

	all := make([]result.Result, 0, len(keyword)+len(vector))
	all = append(all, keyword...)
	all = append(all, vector...)

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Score() > all[j].Score()
	})

	seen := make(map[string]struct{}, len(all))
	out := make([]result.Result, 0, min(topK, len(all)))
	for i := range all {
		id := all[i].ID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, all[i])
		if len(out) == topK {
			break
		}
	}
	return out
}
