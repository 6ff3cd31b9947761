package pairing

func init() {
	register(FIFOStrategy{})
	register(LIFOStrategy{})
	register(AverageCostStrategy{})
	register(MaxLossStrategy{})
	register(MaxProfitStrategy{})
}

// FIFOStrategy sells the oldest lots first.
type FIFOStrategy struct{}

// Name implements Strategy.
func (FIFOStrategy) Name() string { return "FIFO" }

// Phases implements Strategy.
func (FIFOStrategy) Phases() []Phase {
	return []Phase{{Order: OldestFirst}}
}

// LIFOStrategy sells the newest lots first, after using up exempt lots oldest first.
type LIFOStrategy struct{}

// Name implements Strategy.
func (LIFOStrategy) Name() string { return "LIFO" }

// Phases implements Strategy.
func (LIFOStrategy) Phases() []Phase {
	return []Phase{
		{Order: OldestFirst, ExemptOnly: true},
		{Order: NewestFirst},
	}
}

// AverageCostStrategy spreads every sale over all eligible lots.
type AverageCostStrategy struct{}

// Name implements Strategy.
func (AverageCostStrategy) Name() string { return "AverageCost" }

// Phases implements Strategy.
func (AverageCostStrategy) Phases() []Phase {
	return []Phase{{Order: Proportional}}
}

// MaxLossStrategy sells the most expensive lots first. Exempt lots are used up
// cheapest first beforehand, which leaves the expensive taxable lots for the
// second pass.
type MaxLossStrategy struct{}

// Name implements Strategy.
func (MaxLossStrategy) Name() string { return "MaxLoss" }

// Phases implements Strategy.
func (MaxLossStrategy) Phases() []Phase {
	return []Phase{
		{Order: LowestCostFirst, ExemptOnly: true},
		{Order: HighestCostFirst},
	}
}

// MaxProfitStrategy is the mirror image of MaxLossStrategy.
type MaxProfitStrategy struct{}

// Name implements Strategy.
func (MaxProfitStrategy) Name() string { return "MaxProfit" }

// Phases implements Strategy.
func (MaxProfitStrategy) Phases() []Phase {
	return []Phase{
		{Order: HighestCostFirst, ExemptOnly: true},
		{Order: LowestCostFirst},
	}
}
