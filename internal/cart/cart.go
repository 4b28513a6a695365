// Package cart implements the storefront cart as pure functions over an
// owned item list. Nothing here persists or mutates its inputs; the caller
// (the storefront UI layer) owns the value and its storage.
package cart

// Item is one cart line. Price is in VND, so minor-unit free.
type Item struct {
	ID             string `json:"id"`
	ProductID      string `json:"product_id"`
	Title          string `json:"title"`
	Price          int64  `json:"price"`
	CompareAtPrice int64  `json:"compare_at_price,omitempty"`
	Quantity       int    `json:"quantity"`
	Image          string `json:"image,omitempty"`
	Slug           string `json:"slug,omitempty"`
	SKU            string `json:"sku,omitempty"`
	// MaxQuantity caps the line quantity for inventory tracking.
	// Zero means no cap.
	MaxQuantity int `json:"max_quantity,omitempty"`
}

func clampQuantity(quantity, max int) int {
	if max > 0 && quantity > max {
		return max
	}
	return quantity
}

// Add merges an item into the list. An existing line with the same ID has
// its quantity increased; a new line is appended. Quantities are clamped to
// the line's MaxQuantity when one is set. A zero quantity on the incoming
// item means one.
func Add(items []Item, item Item) []Item {
	quantity := item.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	out := make([]Item, len(items))
	copy(out, items)

	for i := range out {
		if out[i].ID == item.ID {
			max := item.MaxQuantity
			if max == 0 {
				max = out[i].MaxQuantity
			}
			out[i].Quantity = clampQuantity(out[i].Quantity+quantity, max)
			out[i].MaxQuantity = max
			return out
		}
	}

	item.Quantity = clampQuantity(quantity, item.MaxQuantity)
	return append(out, item)
}

// Remove drops the line with the given ID.
func Remove(items []Item, id string) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}

// SetQuantity sets a line's quantity, clamped to MaxQuantity. Zero or
// negative removes the line.
func SetQuantity(items []Item, id string, quantity int) []Item {
	if quantity <= 0 {
		return Remove(items, id)
	}

	out := make([]Item, len(items))
	copy(out, items)

	for i := range out {
		if out[i].ID == id {
			out[i].Quantity = clampQuantity(quantity, out[i].MaxQuantity)
			break
		}
	}
	return out
}

// Clear returns the empty cart.
func Clear() []Item {
	return []Item{}
}

// Total is the cart total in VND.
func Total(items []Item) int64 {
	var total int64
	for _, item := range items {
		total += item.Price * int64(item.Quantity)
	}
	return total
}

// Count is the number of units across all lines.
func Count(items []Item) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

// Find returns the line with the given ID.
func Find(items []Item, id string) (Item, bool) {
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}
