package differ

import (
	"slices"
	"sort"
	"strings"

	"github.com/toolsascode/shift/internal/model"
)

// orderColumns returns the column order used in a new table: primary key,
// hinted, scalar (base types first), owned/complex, then JSON-mapped columns
// alphabetically. The order is cosmetic but must be stable.
func orderColumns(t *model.Table) []*model.Column {
	placed := make(map[*model.Column]bool, len(t.Columns))
	out := make([]*model.Column, 0, len(t.Columns))
	place := func(c *model.Column) {
		if c != nil && !placed[c] {
			placed[c] = true
			out = append(out, c)
		}
	}

	if t.PrimaryKey != nil {
		for _, name := range t.PrimaryKey.Columns {
			place(t.FindColumn(name))
		}
	}

	var hinted, scalar, owned, json []*model.Column
	for _, c := range t.Columns {
		switch {
		case placed[c]:
		case c.InJSON:
			json = append(json, c)
		case c.Order != nil:
			hinted = append(hinted, c)
		case isOwned(c):
			owned = append(owned, c)
		default:
			scalar = append(scalar, c)
		}
	}

	sort.SliceStable(hinted, func(i, j int) bool { return *hinted[i].Order < *hinted[j].Order })
	sort.SliceStable(scalar, func(i, j int) bool { return depth(scalar[i]) < depth(scalar[j]) })
	slices.SortStableFunc(json, func(a, b *model.Column) int { return strings.Compare(a.Name, b.Name) })

	for _, group := range [][]*model.Column{hinted, scalar, owned, json} {
		for _, c := range group {
			place(c)
		}
	}
	return out
}

func isOwned(c *model.Column) bool {
	if len(c.Properties) == 0 {
		return false
	}
	for _, p := range c.Properties {
		if p.Kind != model.PropertyOwned && p.Kind != model.PropertyComplex {
			return false
		}
	}
	return true
}

// depth is the shallowest declaring type among the column's properties
func depth(c *model.Column) int {
	if len(c.Properties) == 0 {
		return 0
	}
	shallowest := c.Properties[0].Depth
	for _, p := range c.Properties[1:] {
		if p.Depth < shallowest {
			shallowest = p.Depth
		}
	}
	return shallowest
}
