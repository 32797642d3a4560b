package projection

import (
	"sort"
	"strings"

	"github.com/example/shelfstock/internal/model"
)

// FallbackShelf is charged with inventory whose movement and product both
// carry no location.
const FallbackShelf = "General"

// ShelfRow is a per-(shelf, product) aggregate of currently held stock.
type ShelfRow struct {
	ProductID   string `json:"product_id"`
	ProductCode string `json:"product_code"`
	ProductName string `json:"product_name"`
	Barcode     string `json:"barcode,omitempty"`
	Units       int    `json:"units"`
	Sets        int    `json:"sets"`
}

// ShelfInventory groups the rows held on one shelf.
type ShelfInventory struct {
	Shelf string     `json:"shelf"`
	Rows  []ShelfRow `json:"rows"`
}

// Project derives the per-shelf stock breakdown by replaying the whole
// movement ledger on top of each product's opening stock. It is a pure
// function of its inputs and is recomputed from scratch on every call; the
// dataset is inventory-scale, not transaction-log-scale.
//
// Opening stock is seeded as units on the product's default shelf (opening
// set counts are not tracked). Movements then replay in ascending
// (date, time) order, a missing time sorting earliest in its day. Each
// movement is charged to its own recorded shelf name, falling back to the
// product's default shelf and then to FallbackShelf.
func Project(products []model.Product, movements []model.StockMovement, search string) []ShelfInventory {
	byID := make(map[string]*model.Product, len(products))
	for i := range products {
		if products[i].IsDeleted {
			continue
		}
		byID[products[i].ID] = &products[i]
	}

	type cell struct{ units, sets int }
	// shelf name -> product id -> running tally
	tally := make(map[string]map[string]*cell)
	bump := func(shelf, productID string, units, sets int) {
		rows, ok := tally[shelf]
		if !ok {
			rows = make(map[string]*cell)
			tally[shelf] = rows
		}
		c, ok := rows[productID]
		if !ok {
			c = &cell{}
			rows[productID] = c
		}
		c.units += units
		c.sets += sets
	}

	for _, p := range byID {
		shelf := p.Location
		if shelf == "" {
			shelf = FallbackShelf
		}
		bump(shelf, p.ID, p.OpeningStock, 0)
	}

	ordered := make([]model.StockMovement, len(movements))
	copy(ordered, movements)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].MovementDate != ordered[j].MovementDate {
			return ordered[i].MovementDate < ordered[j].MovementDate
		}
		// "" < "00:00" lexically, so timeless movements replay first.
		return ordered[i].MovementTime < ordered[j].MovementTime
	})

	for _, m := range ordered {
		if m.IsDeleted {
			continue
		}
		p, ok := byID[m.ProductID]
		if !ok {
			// Dangling product reference; skip rather than fail the view.
			continue
		}
		shelf := m.ShelfName
		if shelf == "" {
			shelf = p.Location
		}
		if shelf == "" {
			shelf = FallbackShelf
		}
		sign := 1
		if m.Type == model.MovementOut {
			sign = -1
		}
		bump(shelf, m.ProductID, sign*m.Quantity, sign*m.SetQuantity)
	}

	out := make([]ShelfInventory, 0, len(tally))
	for shelf, rows := range tally {
		inv := ShelfInventory{Shelf: shelf}
		for productID, c := range rows {
			if c.units == 0 && c.sets == 0 {
				continue
			}
			p := byID[productID]
			if !MatchesSearch(p, search) {
				continue
			}
			inv.Rows = append(inv.Rows, ShelfRow{
				ProductID:   p.ID,
				ProductCode: p.Code,
				ProductName: p.Name,
				Barcode:     p.Barcode,
				Units:       c.units,
				Sets:        c.sets,
			})
		}
		if len(inv.Rows) == 0 {
			continue
		}
		sort.Slice(inv.Rows, func(i, j int) bool {
			return inv.Rows[i].ProductName < inv.Rows[j].ProductName
		})
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Shelf < out[j].Shelf })
	return out
}

// MatchesSearch reports whether the product matches a case-insensitive
// substring search against name, code, or barcode. An empty search matches
// everything.
func MatchesSearch(p *model.Product, search string) bool {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Code), needle) ||
		strings.Contains(strings.ToLower(p.Barcode), needle)
}
