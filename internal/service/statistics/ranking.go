package statistics

import (
	"sort"
	"strings"

	models "beps/internal/domain/models/statistics"
)

const rankSize = 3

// groupKey renders a grouping key as a comparable string. User ids compare
// case-insensitively, matching how the ledger stores them.
func groupKey(grouping models.Grouping, k models.GroupKey) string {
	switch grouping {
	case models.GroupUser:
		return strings.ToLower(k.UserID)
	case models.GroupDepartment:
		return k.Company + "||" + k.Department
	case models.GroupCompany:
		return k.Company
	}
	return ""
}

// accumulator merges per-segment group durations into one total per key.
type accumulator struct {
	grouping models.Grouping
	entries  map[string]*models.RankEntry
}

func newAccumulator(grouping models.Grouping) *accumulator {
	return &accumulator{grouping: grouping, entries: map[string]*models.RankEntry{}}
}

func (a *accumulator) add(rows []models.GroupDuration) {
	for _, g := range rows {
		key := groupKey(a.grouping, g.Key)
		e, ok := a.entries[key]
		if !ok {
			e = &models.RankEntry{Key: key}
			switch a.grouping {
			case models.GroupUser:
				e.UserID = key
			case models.GroupDepartment:
				e.Company = g.Key.Company
				e.Department = g.Key.Department
			case models.GroupCompany:
				e.Company = g.Key.Company
			}
			a.entries[key] = e
		}
		if e.Name == "" && g.Label != "" {
			e.Name = g.Label
		}
		e.Seconds += g.Duration.Seconds()
	}
}

// label fills missing user names; summary rows carry only the key.
func (a *accumulator) label(users []models.UserRef) {
	for _, u := range users {
		if e, ok := a.entries[strings.ToLower(u.ID)]; ok && e.Name == "" {
			e.Name = u.Name
		}
	}
}

// rank returns the highest and lowest entries, ties broken by key ascending.
func (a *accumulator) rank() *models.Ranking {
	all := make([]models.RankEntry, 0, len(a.entries))
	for _, e := range a.entries {
		all = append(all, *e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Key < all[j].Key })

	top := append([]models.RankEntry(nil), all...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Seconds > top[j].Seconds })
	bottom := append([]models.RankEntry(nil), all...)
	sort.SliceStable(bottom, func(i, j int) bool { return bottom[i].Seconds < bottom[j].Seconds })

	return &models.Ranking{Top: head(top, rankSize), Bottom: head(bottom, rankSize)}
}

func head(entries []models.RankEntry, n int) []models.RankEntry {
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
