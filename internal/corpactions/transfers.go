package corpactions

import (
	"time"

	"taxlot-matcher-go/internal/models"
	"taxlot-matcher-go/internal/normalize"
)

// Transfers generates the position changes caused by spin-offs and
// acquisitions. They are dated one second before the action so the new
// position exists before anything that happens at the action's timestamp.
func Transfers(actions []models.CorporateAction, firstSeq int) []models.Trade {
	var out []models.Trade
	for _, a := range actions {
		var typ models.Type
		switch a.Kind {
		case models.KindSpinoff:
			typ = models.TypeSpinoff
		case models.KindAcquisition:
			typ = models.TypeAcquisition
		default:
			continue
		}
		if a.Quantity == 0 {
			continue
		}

		t := models.Trade{
			Account:      a.Account,
			Symbol:       a.Symbol,
			Ticker:       a.Symbol,
			Currency:     a.Currency,
			Time:         a.Time.Add(-time.Second),
			OrigQuantity: a.Quantity,
			Quantity:     a.Quantity,
			Proceeds:     a.Proceeds,
			Code:         string(a.Kind),
			Action:       models.ActionTransfer,
			Type:         typ,
			Seq:          firstSeq + len(out),
			SplitRatio:   1,
		}
		t.Hash = normalize.Identity(&t)
		out = append(out, t)
	}
	return out
}
