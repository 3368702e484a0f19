package canonical

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Decimal is a fixed-precision decimal stored as scaled hundredths.
// Decimal(1050) is 10.50. Two fractional digits cover every percentage the
// ledger records; storing the scaled integer keeps arithmetic and equality
// exact.
type Decimal int64

func (Decimal) canonicalValue() {}

// ParseDecimal parses plain decimal text with at most two fractional
// digits: "10", "10.5", "33.33". Exponents and wider fractions are
// rejected rather than rounded.
func ParseDecimal(s string) (Decimal, error) {
	text := s
	neg := strings.HasPrefix(text, "-")
	if neg {
		text = text[1:]
	}

	intPart, fracPart, hasFrac := strings.Cut(text, ".")
	if !isDigits(intPart) {
		return 0, fmt.Errorf("canonical: malformed decimal %q", s)
	}
	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("canonical: decimal out of range: %q", s)
	}

	var frac int64
	if hasFrac {
		if !isDigits(fracPart) {
			return 0, fmt.Errorf("canonical: malformed decimal %q", s)
		}
		switch len(fracPart) {
		case 1:
			frac = int64(fracPart[0]-'0') * 10
		case 2:
			frac = int64(fracPart[0]-'0')*10 + int64(fracPart[1]-'0')
		default:
			return 0, fmt.Errorf("canonical: at most two fractional digits: %q", s)
		}
	}

	// whole*100+frac must fit in int64; the fraction matters right at
	// the edge (92233720368547758.07 fits, .08 does not).
	if whole > (math.MaxInt64-frac)/100 {
		return 0, fmt.Errorf("canonical: decimal out of range: %q", s)
	}

	v := whole*100 + frac
	if neg {
		v = -v
	}
	return Decimal(v), nil
}

// String renders the canonical decimal text: at least one fractional digit,
// trailing fractional zeros trimmed. Decimal(1000) is "10.0", Decimal(3550)
// is "35.5", Decimal(3333) is "33.33". This matches the shortest-round-trip
// rendering other implementations produce for two-digit values.
func (d Decimal) String() string {
	v := int64(d)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}

	whole := v / 100
	frac := v % 100
	switch {
	case frac == 0:
		return fmt.Sprintf("%s%d.0", sign, whole)
	case frac%10 == 0:
		return fmt.Sprintf("%s%d.%d", sign, whole, frac/10)
	default:
		return fmt.Sprintf("%s%d.%02d", sign, whole, frac)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
