package batch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/law-makers/pricewatch/internal/sites"
	"github.com/law-makers/pricewatch/pkg/models"
)

func fixtures() ([]models.CatalogItem, []sites.Profile) {
	items := []models.CatalogItem{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}
	profiles := []sites.Profile{{ID: "x"}, {ID: "y"}, {ID: "z"}}
	return items, profiles
}

func TestPlan_ItemMajor(t *testing.T) {
	items, profiles := fixtures()
	pairs := Plan(items, profiles)
	require.Len(t, pairs, 6)

	var got []string
	for i, p := range pairs {
		assert.Equal(t, i, p.Index)
		got = append(got, p.Item.Name+p.Site.ID)
	}
	assert.Equal(t, []string{"ax", "ay", "az", "bx", "by", "bz"}, got)
}

func TestPlan_Empty(t *testing.T) {
	_, profiles := fixtures()
	assert.Empty(t, Plan(nil, profiles))
}

func TestGroupBySite(t *testing.T) {
	items, profiles := fixtures()
	groups := GroupBySite(Plan(items, profiles))
	require.Len(t, groups, 3)

	assert.Equal(t, "x", groups[0].SiteID)
	assert.Equal(t, "z", groups[2].SiteID)
	for _, g := range groups {
		require.Len(t, g.Pairs, 2)
		assert.Less(t, g.Pairs[0].Index, g.Pairs[1].Index)
		assert.Equal(t, int64(1), g.Pairs[0].Item.ID)
	}
}

func TestSiteWorkers(t *testing.T) {
	assert.Equal(t, 1, SiteWorkers(0, 0))
	assert.Equal(t, 3, SiteWorkers(3, 0))
	assert.Equal(t, 2, SiteWorkers(3, 2))
	assert.Equal(t, MaxWorkers, SiteWorkers(100, 1000))
}
