package models

import "time"

// Action tells whether a trade opens or closes a position.
type Action string

const (
	ActionUnknown Action = "Unknown"
	ActionOpen    Action = "Open"
	ActionClose   Action = "Close"
	// ActionCloseOpen marks an execution that crosses through zero. It never
	// leaves the position accumulator, which splits it into a Close and an Open.
	ActionCloseOpen Action = "Close/Open"
	ActionTransfer  Action = "Transfer"
)

// Type classifies the economic nature of a trade.
type Type string

const (
	TypeUnknown     Type = "Unknown"
	TypeLong        Type = "Long"
	TypeShort       Type = "Short"
	TypeAssigned    Type = "Assigned"
	TypeExercised   Type = "Exercised"
	TypeExpired     Type = "Expired"
	TypeTransferIn  Type = "Transfer In"
	TypeTransferOut Type = "Transfer Out"
	TypeSpinoff     Type = "Spinoff"
	TypeAcquisition Type = "Acquisition"
)

// Trade represents one executed transaction.
type Trade struct {
	Hash          string    `gorm:"primaryKey" json:"hash"`
	Account       string    `gorm:"index" json:"account"`
	Symbol        string    `gorm:"index" json:"symbol"`
	Ticker        string    `json:"ticker"`
	DisplaySuffix string    `json:"display_suffix,omitempty"` // option contract suffix, e.g. " 17JAN25 150 C"
	Currency      string    `json:"currency"`
	Time          time.Time `gorm:"index" json:"time"`
	OrigQuantity  float64   `json:"orig_quantity"`
	OrigPrice     float64   `json:"orig_price"`
	Quantity      float64   `json:"quantity"`
	Price         float64   `json:"price"`
	Proceeds      float64   `json:"proceeds"`
	Commission    float64   `json:"commission"`
	Basis         float64   `json:"basis"`
	RealizedPL    float64   `json:"realized_pl"`
	Code          string    `json:"code"`
	Action        Action    `json:"action"`
	Type          Type      `json:"type"`
	Target        string    `json:"target,omitempty"` // counterpart account of a transfer
	Manual        bool      `json:"manual"`
	Seq           int       `json:"seq"` // import order, breaks timestamp ties

	SplitRatio                 float64 `gorm:"-" json:"split_ratio"`
	AccumulatedQuantity        float64 `gorm:"-" json:"accumulated_quantity"`
	AccountAccumulatedQuantity float64 `gorm:"-" json:"account_accumulated_quantity"`
	CoveredQuantity            float64 `gorm:"-" json:"covered_quantity"`
	UncoveredQuantity          float64 `gorm:"-" json:"uncovered_quantity"`
}

// DisplayName is the instrument key trades are grouped by.
func (t *Trade) DisplayName() string {
	return t.Ticker + t.DisplaySuffix
}

// Pairable reports whether the trade takes part in lot matching.
func (t *Trade) Pairable() bool {
	return t.Action == ActionOpen || t.Action == ActionClose
}

// Side returns the direction of the position the trade belongs to: Long when
// it opens with a purchase or closes with a sale, Short otherwise.
func (t *Trade) Side() Type {
	switch {
	case t.Action == ActionOpen && t.Quantity > 0, t.Action == ActionClose && t.Quantity < 0:
		return TypeLong
	case t.Action == ActionOpen, t.Action == ActionClose:
		return TypeShort
	}
	return TypeUnknown
}
