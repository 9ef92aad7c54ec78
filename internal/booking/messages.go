package booking

import "fmt"

func capacityMessage(req Request, remaining int) string {
	return fmt.Sprintf("Sorry, only %d seat(s) left for %s → %s at %s. Please reduce seats or pick another time.",
		remaining, req.Source, req.Destination, req.DateTime)
}

func paymentDeclinedMessage(ref string) string {
	return fmt.Sprintf("Payment failed (ref: %s). No amount was charged. Please try again.", ref)
}

func confirmedMessage(req Request, ref string, seats, remaining int, ticketLocation string) string {
	qr := ticketLocation
	if qr == "" {
		qr = "QR image unavailable"
	}
	return fmt.Sprintf("Payment successful! Ref: %s. Booking confirmed: %s → %s at %s, %d seat(s). Remaining seats: %d.\nQR ticket: %s",
		ref, req.Source, req.Destination, req.DateTime, seats, remaining, qr)
}

func unrecordedMessage(ref string) string {
	return fmt.Sprintf("Payment received (ref: %s) but we could not record your booking yet. "+
		"Please keep this reference; it will be reconciled shortly.", ref)
}

func lookupMessage(rec Record) string {
	return fmt.Sprintf("Booking %s: %s → %s at %s, seats: %d.", rec.Ref, rec.Source, rec.Destination, rec.At, rec.Seats)
}

const (
	notFoundMessage      = "No booking found for that reference."
	missingRefMessage    = "Please provide your booking reference (e.g., BMRC-...)."
	storeDownMessage     = "Couldn't access booking store. Try again later."
	availabilityDownText = "Couldn't check seat availability right now. Please try again shortly."
)
