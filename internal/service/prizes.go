package service

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultPrizePrecision is the number of decimals prizes are rounded to (USDC).
const DefaultPrizePrecision int32 = 6

// PrizeTable holds the share of the prize pool paid to each rank, rank 1 first.
type PrizeTable struct {
	shares    []decimal.Decimal
	precision int32
}

// NewPrizeTable validates shares (non-negative, summing to at most 1).
func NewPrizeTable(shares []decimal.Decimal, precision int32) (PrizeTable, error) {
	if precision < 0 {
		return PrizeTable{}, fmt.Errorf("prize precision must not be negative")
	}
	total := decimal.Zero
	for i, s := range shares {
		if s.IsNegative() {
			return PrizeTable{}, fmt.Errorf("prize share for rank %d is negative", i+1)
		}
		total = total.Add(s)
	}
	if total.GreaterThan(decimal.NewFromInt(1)) {
		return PrizeTable{}, fmt.Errorf("prize shares sum to %s, must not exceed 1", total)
	}

	cp := make([]decimal.Decimal, len(shares))
	copy(cp, shares)
	return PrizeTable{shares: cp, precision: precision}, nil
}

// DefaultPrizeTable pays 50%, 30% and 20% to the top three.
func DefaultPrizeTable() PrizeTable {
	return PrizeTable{
		shares: []decimal.Decimal{
			decimal.RequireFromString("0.5"),
			decimal.RequireFromString("0.3"),
			decimal.RequireFromString("0.2"),
		},
		precision: DefaultPrizePrecision,
	}
}

// Places returns the number of paid ranks.
func (p PrizeTable) Places() int {
	return len(p.shares)
}

// Distribute splits pool across min(entrants, Places()) ranks. Each prize is
// rounded down to the table precision; the last paid rank receives the
// remainder, so the amounts always sum to pool times the paid shares rounded
// down to the precision. Dust below the precision is never paid.
func (p PrizeTable) Distribute(pool decimal.Decimal, entrants int) []decimal.Decimal {
	paid := min(entrants, len(p.shares))
	if paid <= 0 {
		return nil
	}

	total := decimal.Zero
	for _, s := range p.shares[:paid] {
		total = total.Add(pool.Mul(s))
	}
	total = total.RoundFloor(p.precision)

	amounts := make([]decimal.Decimal, paid)
	distributed := decimal.Zero
	for i := 0; i < paid-1; i++ {
		amounts[i] = pool.Mul(p.shares[i]).RoundFloor(p.precision)
		distributed = distributed.Add(amounts[i])
	}
	amounts[paid-1] = total.Sub(distributed)
	return amounts
}
