package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"taxlot-matcher-go/internal/models"
)

// Identity hashes the economically meaningful fields of a trade in a fixed
// order. Derived fields (ticker, split ratio, accumulations) are excluded so the
// identity survives re-import and re-adjustment.
func Identity(t *models.Trade) string {
	fields := []string{
		t.Account,
		t.Symbol,
		t.DisplaySuffix,
		t.Currency,
		t.Time.UTC().Format(time.RFC3339Nano),
		formatFloat(t.OrigQuantity),
		formatFloat(t.OrigPrice),
		formatFloat(t.Proceeds),
		formatFloat(t.Commission),
		formatFloat(t.Basis),
		formatFloat(t.RealizedPL),
		t.Code,
		string(t.Action),
		t.Target,
	}

	h := sha256.New()
	for _, f := range fields {
		h.Write([]byte(f))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
