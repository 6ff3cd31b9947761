package models

import "time"

// ActionKind is the kind of a corporate action.
type ActionKind string

const (
	KindSplit       ActionKind = "Split"
	KindSpinoff     ActionKind = "Spinoff"
	KindAcquisition ActionKind = "Acquisition"
	KindDividend    ActionKind = "Dividend"
	KindUnknown     ActionKind = "Unknown"
)

// CorporateAction is a split, spin-off, acquisition or dividend tied to a raw symbol.
type CorporateAction struct {
	ID          uint       `gorm:"primaryKey"`
	Symbol      string     `gorm:"index;uniqueIndex:idx_action"`
	Account     string     `gorm:"uniqueIndex:idx_action"`
	Time        time.Time  `gorm:"uniqueIndex:idx_action"`
	Kind        ActionKind `gorm:"uniqueIndex:idx_action"`
	Ratio       float64    // new units per old unit, splits only
	Quantity    float64    // units received or removed by spin-offs and acquisitions
	Proceeds    float64
	Currency    string
	Description string
}

// PositionSnapshot is a broker-reported open position at a point in time.
type PositionSnapshot struct {
	ID       uint      `gorm:"primaryKey"`
	Account  string    `gorm:"uniqueIndex:idx_snapshot"`
	Symbol   string    `gorm:"uniqueIndex:idx_snapshot"`
	Date     time.Time `gorm:"uniqueIndex:idx_snapshot"`
	Quantity float64
	Price    float64
	Currency string
}

// SymbolMapping maps a raw broker symbol to a canonical ticker. When
// ChangeDate is set the mapping only applies to trades before that date.
type SymbolMapping struct {
	Symbol     string     `gorm:"primaryKey"`
	Ticker     string
	ChangeDate *time.Time
	Manual     bool
}
