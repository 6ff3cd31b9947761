package models

import (
	"time"

	"gorm.io/gorm"
)

// Pair is one closing trade matched against one (possibly partial) opening trade.
type Pair struct {
	gorm.Model
	RunID          string    `gorm:"index" json:"run_id"`
	Strategy       string    `json:"strategy"`
	DisplayName    string    `gorm:"index" json:"display_name"`
	Currency       string    `json:"currency"`
	OpenTradeHash  string    `gorm:"index" json:"open_trade_hash"`
	CloseTradeHash string    `gorm:"index" json:"close_trade_hash"`
	OpenTime       time.Time `json:"open_time"`
	CloseTime      time.Time `gorm:"index" json:"close_time"`
	CloseYear      int       `gorm:"index" json:"close_year"`
	Quantity       float64   `json:"quantity"`
	BuyPrice       float64   `json:"buy_price"`
	SellPrice      float64   `json:"sell_price"`
	BuyUnitCost    float64   `json:"buy_unit_cost"` // buy price net of commission per unit
	SellUnitNet    float64   `json:"sell_unit_net"` // sell price net of commission per unit
	Cost           float64   `json:"cost"`          // negative
	Proceeds       float64   `json:"proceeds"`
	Revenue        float64   `json:"revenue"`
	Ratio          float64   `json:"ratio"`
	HoldingDays    int       `json:"holding_days"`
	Taxable        bool      `json:"taxable"`
	Type           Type      `json:"type"`
}

// PairingRun records one invocation of the pairing engine.
type PairingRun struct {
	ID            string `gorm:"primaryKey"`
	Strategy      string
	FromYear      int
	PairCount     int
	UnpairedCount int
	CreatedAt     time.Time
}
