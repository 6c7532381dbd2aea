package models

// FarmResult holds the outcome of a farm action
type FarmResult struct {
	Coins      int64
	Rare       bool
	NewBalance int64
}

// SlotsResult holds the outcome of a slot machine spin
type SlotsResult struct {
	Reels      [3]string
	Won        bool
	Jackpot    bool
	WinAmount  int64
	LossAmount int64
	TaxPaid    int64
	NewBalance int64
}

// RouletteBetKind distinguishes the supported roulette bet types
type RouletteBetKind string

const (
	RouletteBetRed    RouletteBetKind = "red"
	RouletteBetBlack  RouletteBetKind = "black"
	RouletteBetNumber RouletteBetKind = "number"
)

// RouletteResult holds the outcome of a roulette spin
type RouletteResult struct {
	Number     int
	Color      string
	Won        bool
	Payout     int64
	TaxPaid    int64
	NewBalance int64
}
