package mt940

import (
	"math/big"
	"regexp"
	"strings"
)

var (
	ibanToken = regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{4,30}\b`)
	nameToken = regexp.MustCompile(`NAME:\s*([^/:]+?)\s*(?:\b[A-Z]{2,}:|/|$)`)
	sepaName  = regexp.MustCompile(`/NAME/([^/]+)`)
)

// Enrich fills counterparty fields from the narrative. Fields a reader already
// set are left alone.
func Enrich(tx *Transaction) {
	text := tx.Description
	if text == "" {
		return
	}
	if tx.CounterpartyAccount == "" {
		tx.CounterpartyAccount = findIBAN(text)
	}
	if tx.CounterpartyName == "" {
		tx.CounterpartyName = findName(text)
	}
}

// findIBAN prefers a token with a valid ISO 13616 check sum and falls back to
// the first IBAN shaped token.
func findIBAN(text string) string {
	tokens := ibanToken.FindAllString(text, -1)
	for _, tok := range tokens {
		if validIBAN(tok) {
			return tok
		}
	}
	if len(tokens) > 0 {
		return tokens[0]
	}
	return ""
}

func findName(text string) string {
	if m := sepaName.FindStringSubmatch(text); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			return name
		}
	}
	if m := nameToken.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

func validIBAN(iban string) bool {
	if len(iban) < 15 || len(iban) > 34 {
		return false
	}
	rearranged := iban[4:] + iban[:4]
	var digits strings.Builder
	for _, r := range rearranged {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			digits.WriteString(big.NewInt(int64(r-'A'+10)).String())
		default:
			return false
		}
	}
	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return false
	}
	return new(big.Int).Mod(n, big.NewInt(97)).Int64() == 1
}
