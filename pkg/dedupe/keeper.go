package dedupe

import (
	"sort"

	"github.com/alexchilton/calibre-janitor/pkg/catalog"
)

// Decision names the record to retain for one duplicate group and the
// records that become deletion candidates.
type Decision struct {
	KeeperID  int         `json:"keeper_id"`
	DeleteIDs []int       `json:"delete_ids"`
	Scores    map[int]int `json:"scores,omitempty"`
}

// SelectKeeper scores every member of a group and keeps the highest. Equal
// scores resolve to the lowest record id, so the same group and priority
// always produce the same decision.
func SelectKeeper(group []catalog.Record, priority []string) Decision {
	type scored struct {
		id    int
		score int
	}
	ranked := make([]scored, len(group))
	scores := make(map[int]int, len(group))
	for i, r := range group {
		s := Score(r, priority)
		ranked[i] = scored{id: r.ID, score: s}
		scores[r.ID] = s
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})

	d := Decision{KeeperID: ranked[0].id, Scores: scores}
	for _, s := range ranked[1:] {
		d.DeleteIDs = append(d.DeleteIDs, s.id)
	}
	return d
}
