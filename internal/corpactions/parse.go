package corpactions

import (
	"regexp"
	"strconv"
	"strings"
)

var splitPattern = regexp.MustCompile(`^\s*([^(]+?)\s*\(([^)]*)\)\s+Split\s+([0-9]*\.?[0-9]+)\s+for\s+([0-9]*\.?[0-9]+)`)

// ParseSplit reads broker split descriptions such as "AAPL(US0378331005) Split 4 for 1".
// The returned ratio is new units per old unit.
func ParseSplit(description string) (symbol string, isin string, ratio float64, ok bool) {
	m := splitPattern.FindStringSubmatch(description)
	if m == nil {
		return "", "", 0, false
	}
	newUnits, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return "", "", 0, false
	}
	oldUnits, err := strconv.ParseFloat(m[4], 64)
	if err != nil || oldUnits == 0 || newUnits == 0 {
		return "", "", 0, false
	}
	return strings.TrimSpace(m[1]), m[2], newUnits / oldUnits, true
}
