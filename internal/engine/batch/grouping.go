// internal/engine/batch/grouping.go
package batch

import (
	"github.com/law-makers/pricewatch/internal/sites"
	"github.com/law-makers/pricewatch/pkg/models"
)

// Pair is one (item, site) unit of work. Index is its position in the plan.
type Pair struct {
	Index int
	Item  models.CatalogItem
	Site  sites.Profile
}

// Group holds the pairs for one site in plan order
type Group struct {
	SiteID string
	Pairs  []Pair
}

// Plan lays out every (item, site) pair item-major: all sites for the first
// item, then all sites for the second, and so on.
func Plan(items []models.CatalogItem, profiles []sites.Profile) []Pair {
	pairs := make([]Pair, 0, len(items)*len(profiles))
	for _, item := range items {
		for _, p := range profiles {
			pairs = append(pairs, Pair{Index: len(pairs), Item: item, Site: p})
		}
	}
	return pairs
}

// GroupBySite splits a plan into per-site queues. Groups are returned in the
// order their site first appears; pairs keep their plan order.
func GroupBySite(pairs []Pair) []Group {
	var groups []Group
	index := make(map[string]int)

	for _, p := range pairs {
		i, ok := index[p.Site.ID]
		if !ok {
			i = len(groups)
			index[p.Site.ID] = i
			groups = append(groups, Group{SiteID: p.Site.ID})
		}
		groups[i].Pairs = append(groups[i].Pairs, p)
	}

	return groups
}
