package booking

import (
	"strings"

	"github.com/lithammer/shortuuid/v3"
)

const (
	ticketPrefix   = "ACB-"
	ticketAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	ticketRandLen  = 5

	// shortuuid writes the least significant base57 digit first; only the
	// leading digits of an encoded UUID are uniform.
	uniformDigits = 16

	// maxTicketRolls bounds re-rolls on reference collisions within one
	// confirmation attempt.
	maxTicketRolls = 16
)

// newTicketRef returns "ACB-" followed by five characters from A-Z0-9.
// Base57 digits whose index falls outside the ticket alphabet are skipped.
func newTicketRef() string {
	var b strings.Builder
	b.Grow(len(ticketPrefix) + ticketRandLen)
	b.WriteString(ticketPrefix)

	for n := 0; n < ticketRandLen; {
		s := shortuuid.New()
		for _, r := range s[:min(len(s), uniformDigits)] {
			i := strings.IndexRune(shortuuid.DefaultAlphabet, r)
			if i < 0 || i >= len(ticketAlphabet) {
				continue
			}
			b.WriteByte(ticketAlphabet[i])
			if n++; n == ticketRandLen {
				break
			}
		}
	}

	return b.String()
}
