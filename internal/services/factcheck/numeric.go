package factcheck

import (
	"regexp"
	"strconv"
	"strings"

	"TradeGate/internal/domain/models"
)

// NumericClaim is a magnitude plus implied direction extracted from claim text.
type NumericClaim struct {
	Value     float64 // percents normalized to fractions
	IsPercent bool
	Direction int // +1 rising, -1 falling, 0 none stated
	Raw       string
}

var (
	percentRe  = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*(?:%|percent)`)
	currencyRe = regexp.MustCompile(`(?i)\$\s*(-?\d+(?:,\d{3})*(?:\.\d+)?)\s*(billion|million|thousand|bn|b|mm|m|k)?`)
	numberRe   = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
)

var scaleSuffixes = map[string]float64{
	"billion": 1e9, "bn": 1e9, "b": 1e9,
	"million": 1e6, "mm": 1e6, "m": 1e6,
	"thousand": 1e3, "k": 1e3,
}

var upStems = []string{"grew", "grow", "rose", "rise", "risen", "rising", "increas", "gain", "climb", "expand", "improv", "surge", "jump", "beat", "higher", "up "}
var downStems = []string{"fell", "fall", "fallen", "falling", "declin", "decreas", "drop", "shrank", "shrink", "contract", "plung", "slump", "miss", "lower", "down ", "lost", "loss"}

// ExtractNumeric pulls the first numeric magnitude and any direction stem
// out of a claim. Returns false when the claim carries no number at all.
func ExtractNumeric(text string) (NumericClaim, bool) {
	lower := strings.ToLower(text)
	nc := NumericClaim{Direction: DirectionOf(lower), Raw: text}

	if m := percentRe.FindStringSubmatch(lower); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			nc.Value = v / 100
			nc.IsPercent = true
			return nc, true
		}
	}
	if m := currencyRe.FindStringSubmatch(lower); m != nil {
		raw := strings.ReplaceAll(m[1], ",", "")
		v, err := strconv.ParseFloat(raw, 64)
		if err == nil {
			if scale, ok := scaleSuffixes[strings.ToLower(m[2])]; ok {
				v *= scale
			}
			nc.Value = v
			return nc, true
		}
	}
	if m := numberRe.FindString(lower); m != "" {
		v, err := strconv.ParseFloat(m, 64)
		if err == nil {
			nc.Value = v
			return nc, true
		}
	}
	return NumericClaim{}, false
}

// Signed returns the magnitude with the implied direction applied, so
// "fell 8%" compares as -0.08. A literal that already carried an explicit
// sign is left alone.
func (nc NumericClaim) Signed() float64 {
	if nc.Direction < 0 && nc.Value > 0 {
		return -nc.Value
	}
	return nc.Value
}

// DirectionOf returns +1/-1/0 for the directional stems present in text.
func DirectionOf(lower string) int {
	for _, s := range upStems {
		if strings.Contains(lower, s) {
			return 1
		}
	}
	for _, s := range downStems {
		if strings.Contains(lower, s) {
			return -1
		}
	}
	return 0
}

// metricSynonyms maps metric-name tokens to the stems a claim may use for them.
var metricSynonyms = map[string][]string{
	"growth":     {"grew", "grow", "growth", "increas", "expand", "rose", "rise"},
	"revenue":    {"revenue", "sales", "turnover", "topline", "top-line"},
	"margin":     {"margin", "profitability"},
	"eps":        {"eps", "earnings"},
	"income":     {"income", "profit", "earnings"},
	"price":      {"price", "stock", "share"},
	"volume":     {"volume"},
	"volatility": {"volatility", "vol"},
	"debt":       {"debt", "leverage", "borrowing"},
	"cash":       {"cash"},
	"yoy":        {"yoy", "year-over-year", "year over year", "annual"},
}

// ResolveMetric finds the ground-truth fact the claim most plausibly refers
// to by token affinity against metric names. A metric absent from the map
// leaves the claim unverifiable by the numeric layer.
func ResolveMetric(text string, facts map[string]models.GroundTruthFact) (models.GroundTruthFact, bool) {
	lower := strings.ToLower(text)
	best := models.GroundTruthFact{}
	bestScore := 0
	for name, fact := range facts {
		score := metricAffinity(lower, name)
		if score > bestScore {
			best = fact
			bestScore = score
		}
	}
	return best, bestScore > 0
}

func metricAffinity(lowerClaim, metricName string) int {
	tokens := strings.FieldsFunc(strings.ToLower(metricName), func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == ' '
	})
	score := 0
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if strings.Contains(lowerClaim, tok) {
			score++
			continue
		}
		for _, stem := range metricSynonyms[tok] {
			if strings.Contains(lowerClaim, stem) {
				score++
				break
			}
		}
	}
	return score
}

// Divergence computes the relative divergence between the extracted claim
// value (direction applied) and the ground truth, honoring percent/fraction
// units. Returns -1 when the truth value makes the ratio undefined.
func Divergence(nc NumericClaim, fact models.GroundTruthFact) float64 {
	truth := fact.Value
	claimed := nc.Signed()
	if nc.IsPercent && isPercentUnit(fact.Unit) {
		// Truth already stored in percent points; undo the fraction
		// normalization so both sides share units.
		claimed *= 100
	}
	if truth == 0 {
		if claimed == 0 {
			return 0
		}
		return -1
	}
	d := claimed - truth
	if d < 0 {
		d = -d
	}
	t := truth
	if t < 0 {
		t = -t
	}
	return d / t
}

func isPercentUnit(unit string) bool {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "%", "percent", "pct":
		return true
	}
	return false
}
