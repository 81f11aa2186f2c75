package matching

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Reason tags surfaced to the user alongside a suggestion.
const (
	ReasonExactAmount = "exact amount match"
	ReasonNearAmount  = "amount match within €1"
	ReasonCloseAmount = "amount close"
	ReasonExactDate   = "exact date match"
	ReasonDateWithin3 = "date within 3 days"
	ReasonDateWithin7 = "date within 7 days"
	ReasonNameMatch   = "name match"
	ReasonPartialName = "partial name match"
)

// amountCloseness scores the magnitude closeness of two amounts in tiers.
// Signs are ignored; direction is handled by the proposer's type filter.
// A zero score means the pair failed every tier and must not be proposed.
func amountCloseness(cfg Config, a, b decimal.Decimal) (float64, string) {
	a, b = a.Abs(), b.Abs()
	diff := a.Sub(b).Abs()

	switch {
	case diff.LessThanOrEqual(cfg.ExactAmountTolerance):
		return 1.0, ReasonExactAmount
	case diff.LessThanOrEqual(cfg.NearAmountTolerance):
		return 0.75, ReasonNearAmount
	}

	larger := a
	if b.GreaterThan(larger) {
		larger = b
	}
	if !larger.IsZero() && diff.LessThanOrEqual(larger.Mul(cfg.PercentTolerance)) {
		return 0.5, ReasonCloseAmount
	}
	return 0, ""
}

// dateProximity scores the absolute day distance between two dates.
// Beyond 30 days the signal is present but contributes zero; only a missing
// date excludes the signal, and that is the caller's call.
func dateProximity(t1, t2 time.Time) (float64, string) {
	days := int(t1.Sub(t2).Hours() / 24)
	if days < 0 {
		days = -days
	}

	switch {
	case days == 0:
		return 1.0, ReasonExactDate
	case days <= 3:
		return 0.8, ReasonDateWithin3
	case days <= 7:
		return 0.5, ReasonDateWithin7
	case days <= 30:
		return 0.2, ""
	default:
		return 0, ""
	}
}

// minTokenLen is the minimum rune length for a counterparty token to count
// as evidence. Short tokens ("SA", "ΑΕ", "of") match everything.
const minTokenLen = 3

// textSimilarity scores how strongly the transaction description refers to
// the record's counterparty. Both sides are normalized first (lower-case,
// diacritics and punctuation stripped, as bank exports mangle both Greek and
// Latin names). A substring either way scores 1.0; otherwise the fraction of
// the counterparty's significant tokens found verbatim in the description.
// The second return is false when the counterparty carries no usable signal.
func textSimilarity(description, counterparty string) (float64, string, bool) {
	desc := normalizeText(description)
	name := normalizeText(counterparty)
	if name == "" || desc == "" {
		return 0, "", false
	}

	if strings.Contains(desc, name) || strings.Contains(name, desc) {
		return 1.0, ReasonNameMatch, true
	}

	var total, found int
	for _, tok := range strings.Fields(name) {
		if len([]rune(tok)) < minTokenLen {
			continue
		}
		total++
		if strings.Contains(desc, tok) {
			found++
		}
	}
	if total == 0 {
		return 0, "", false
	}

	score := float64(found) / float64(total)
	if score >= 0.5 {
		return score, ReasonPartialName, true
	}
	return score, "", true
}

// normalizeText lower-cases, strips diacritics (NFD decomposition, drop
// combining marks), and replaces punctuation with spaces.
func normalizeText(s string) string {
	s = strings.ToLower(s)
	s = norm.NFD.String(s)

	var b strings.Builder
	b.Grow(len(s))
	prevSpace := true
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark from the decomposition, drop it
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevSpace = false
		default:
			if !prevSpace {
				b.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
