package position

import (
	"math"
	"time"

	"taxlot-matcher-go/internal/models"
)

// Finding points at a trade whose running position suggests missing history.
type Finding struct {
	Hash        string
	Account     string
	DisplayName string
	Time        time.Time
	Position    float64
	Reason      string
}

// MissingHistory flags closing trades that moved a position away from zero and
// outgoing transfers that left an account short.
func MissingHistory(trades []models.Trade) []Finding {
	var out []Finding
	for _, t := range trades {
		switch {
		case t.Action == models.ActionClose && t.AccumulatedQuantity*t.Quantity > 0:
			out = append(out, finding(t, t.AccumulatedQuantity, "close without a preceding open"))
		case t.Type == models.TypeTransferOut && t.AccountAccumulatedQuantity < -Epsilon:
			out = append(out, finding(t, t.AccountAccumulatedQuantity, "transfer out of a position the account does not hold"))
		}
	}
	return out
}

// UnmatchedTransfers returns account-to-account transfers that have no
// counterpart of opposite sign and equal size booked by the target account on
// the same day.
func UnmatchedTransfers(trades []models.Trade) []Finding {
	var transfers []int
	for i, t := range trades {
		if (t.Type == models.TypeTransferIn || t.Type == models.TypeTransferOut) && t.Target != "" {
			transfers = append(transfers, i)
		}
	}

	matched := make(map[int]bool, len(transfers))
	for _, i := range transfers {
		if matched[i] {
			continue
		}
		a := trades[i]
		for _, j := range transfers {
			if j == i || matched[j] {
				continue
			}
			b := trades[j]
			if b.Account == a.Target && b.Target == a.Account &&
				b.DisplayName() == a.DisplayName() &&
				math.Abs(a.Quantity+b.Quantity) < Epsilon &&
				sameDay(a.Time, b.Time) {
				matched[i], matched[j] = true, true
				break
			}
		}
	}

	var out []Finding
	for _, i := range transfers {
		if !matched[i] {
			t := trades[i]
			out = append(out, finding(t, t.Quantity, "transfer without counterpart in "+t.Target))
		}
	}
	return out
}

func finding(t models.Trade, pos float64, reason string) Finding {
	return Finding{
		Hash:        t.Hash,
		Account:     t.Account,
		DisplayName: t.DisplayName(),
		Time:        t.Time,
		Position:    pos,
		Reason:      reason,
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
