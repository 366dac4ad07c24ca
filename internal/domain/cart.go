package domain

// CartLine is a single product selection in the pre-checkout cart.
// ProductID is unique within a cart; Quantity is always >= 1.
type CartLine struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	UnitCoinPrice  int64  `json:"unit_coin_price"`
	ImageURL       string `json:"image_url,omitempty"`
	Quantity       int    `json:"quantity"`
}

// Cart is the ordered set of lines the member is assembling before checkout.
// Insertion order is display order. Totals are never stored; they are
// recomputed from the lines on every call.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

// FindLineIndex returns the index of the line for productID, or -1.
func (c *Cart) FindLineIndex(productID string) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// AddItem merges a selection into the cart: an existing line for the product
// gains one unit, otherwise a new line with quantity 1 is appended. Prices
// on an existing line are refreshed in case the catalog changed.
func (c *Cart) AddItem(line CartLine) {
	if i := c.FindLineIndex(line.ProductID); i >= 0 {
		c.Lines[i].Quantity++
		c.Lines[i].UnitPriceMinor = line.UnitPriceMinor
		c.Lines[i].UnitCoinPrice = line.UnitCoinPrice
		c.Lines[i].Name = line.Name
		c.Lines[i].ImageURL = line.ImageURL
		return
	}
	line.Quantity = 1
	c.Lines = append(c.Lines, line)
}

// SetQuantity overwrites a line's quantity. A quantity below 1 removes the
// line; a zero-quantity line is never retained. Unknown products are a no-op.
func (c *Cart) SetQuantity(productID string, quantity int) {
	i := c.FindLineIndex(productID)
	if i < 0 {
		return
	}
	if quantity < 1 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
		return
	}
	c.Lines[i].Quantity = quantity
}

// RemoveItem deletes the line for productID if present.
func (c *Cart) RemoveItem(productID string) {
	if i := c.FindLineIndex(productID); i >= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Lines = nil
}

// TotalMinor returns the payable total in minor currency units.
func (c *Cart) TotalMinor() int64 {
	var total int64
	for _, line := range c.Lines {
		total += line.UnitPriceMinor * int64(line.Quantity)
	}
	return total
}

// TotalCoin returns the payable total in coins.
func (c *Cart) TotalCoin() int64 {
	var total int64
	for _, line := range c.Lines {
		total += line.UnitCoinPrice * int64(line.Quantity)
	}
	return total
}

// ItemCount returns the sum of quantities across all lines (the cart badge
// number), not the line count.
func (c *Cart) ItemCount() int {
	var count int
	for _, line := range c.Lines {
		count += line.Quantity
	}
	return count
}

// Clone returns a deep copy so callers can read lines without holding the
// owning store's lock.
func (c *Cart) Clone() *Cart {
	cp := &Cart{}
	if len(c.Lines) > 0 {
		cp.Lines = make([]CartLine, len(c.Lines))
		copy(cp.Lines, c.Lines)
	}
	return cp
}
