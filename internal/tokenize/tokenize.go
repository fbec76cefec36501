// Package tokenize provides the default token estimator used when no
// external token encoder is wired in. It is a cheap stand-in: identifier
// and number runs weigh roughly one token per four characters, punctuation
// weighs one each. The annotator itself is agnostic and accepts any
// counter.
package tokenize

import "unicode"

// Estimate counts approximate encoder tokens in text. It never fails.
func Estimate(text string) (int, error) {
	tokens := 0
	run := 0
	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			run++
		case unicode.IsSpace(r):
			tokens += runTokens(run)
			run = 0
		default:
			tokens += runTokens(run)
			run = 0
			tokens++
		}
	}
	tokens += runTokens(run)
	return tokens, nil
}

// runTokens weighs one identifier/number run: one token per started group
// of four characters.
func runTokens(n int) int {
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}
