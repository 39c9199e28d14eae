package analytics

import "github.com/erazemk/spares/internal/model"

// ItemIndex looks items up the way transactions reference them: by id, then
// by the name denormalized onto the transaction.
type ItemIndex struct {
	byID   map[int64]*model.Item
	byName map[string]*model.Item
}

// NewItemIndex indexes items. When names collide the first item wins.
func NewItemIndex(items []model.Item) *ItemIndex {
	idx := &ItemIndex{
		byID:   make(map[int64]*model.Item, len(items)),
		byName: make(map[string]*model.Item, len(items)),
	}
	for i := range items {
		item := &items[i]
		idx.byID[item.ID] = item
		if _, ok := idx.byName[item.Name]; !ok && item.Name != "" {
			idx.byName[item.Name] = item
		}
	}
	return idx
}

// Lookup returns the live item a transaction refers to, or nil if it is gone.
func (idx *ItemIndex) Lookup(t *model.Transaction) *model.Item {
	if idx == nil {
		return nil
	}
	if item, ok := idx.byID[t.ItemID]; ok {
		return item
	}
	return idx.byName[t.ItemName]
}

// ResolveDisplayFields returns a copy of t with any missing item details
// filled from the live item. Values stored on the transaction always win.
func ResolveDisplayFields(t model.Transaction, idx *ItemIndex) model.Transaction {
	item := idx.Lookup(&t)
	if item == nil {
		return t
	}

	fill := func(dst *string, live string) {
		if *dst == "" {
			*dst = live
		}
	}
	fill(&t.ItemName, item.Name)
	fill(&t.Make, item.Make)
	fill(&t.Model, item.Model)
	fill(&t.Specification, item.Specification)
	fill(&t.Rack, item.Rack)
	fill(&t.Bin, item.Bin)
	return t
}
