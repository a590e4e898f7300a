package extract

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/amishk599/jobsieve/internal/model"
)

// Tokens flattens fragment text into lowercase whitespace-separated tokens.
// Text is NFC-normalized first so composed and decomposed accents tokenize alike.
func Tokens(text string) []string {
	return strings.Fields(strings.ToLower(norm.NFC.String(text)))
}

// LabeledValue finds the first token containing label and returns the token
// right after it. ok is false when no token contains label or it is the last one.
//
// This label-then-next-token lookup is deliberately naive. It depends on the
// listing's wording ("Salary: £45,000" splits into "salary:" and "£45,000"), and
// the salary and location filters are tuned against exactly this behaviour, so
// it must not be made smarter.
func LabeledValue(tokens []string, label string) (string, bool) {
	for i, tok := range tokens {
		if strings.Contains(tok, label) {
			if i+1 >= len(tokens) {
				return "", false
			}
			return tokens[i+1], true
		}
	}
	return "", false
}

// Salary returns the digits of the token following the first "salary" token as
// an integer, or model.SalaryNotFound.
func Salary(tokens []string) int {
	raw, ok := LabeledValue(tokens, "salary")
	if !ok {
		return model.SalaryNotFound
	}
	digits := keepBytes(raw, func(c byte) bool { return c >= '0' && c <= '9' })
	n, err := strconv.Atoi(digits)
	if err != nil {
		return model.SalaryNotFound
	}
	return n
}

// Location returns the ASCII letters of the token following the first
// "location" token, or model.LocationNotFound. A following token without any
// letters yields the empty string, not the sentinel.
func Location(tokens []string) string {
	raw, ok := LabeledValue(tokens, "location")
	if !ok {
		return model.LocationNotFound
	}
	return keepBytes(raw, func(c byte) bool { return c >= 'a' && c <= 'z' })
}

func keepBytes(s string, keep func(byte) bool) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if keep(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
