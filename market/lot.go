package market

// LotSize is the A-share board lot: orders must be whole multiples of it.
const LotSize int64 = 100

// IsLot reports whether qty is a positive whole number of board lots.
func IsLot(qty int64) bool {
	return qty > 0 && qty%LotSize == 0
}

// FloorLot rounds qty down to a whole number of board lots. Negative
// quantities floor to zero.
func FloorLot(qty int64) int64 {
	if qty <= 0 {
		return 0
	}
	return qty / LotSize * LotSize
}
