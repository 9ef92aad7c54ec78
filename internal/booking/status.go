package booking

type Outcome string

const (
	OutcomePending           Outcome = "PENDING"
	OutcomeDeclinedCapacity  Outcome = "DECLINED_CAPACITY"
	OutcomeDeclinedPayment   Outcome = "DECLINED_PAYMENT"
	OutcomeConfirmed         Outcome = "CONFIRMED"
	OutcomeFailedPersistence Outcome = "FAILED_PERSISTENCE"
)

// Every attempt starts pending and ends in exactly one terminal outcome.
var validNext = map[Outcome]map[Outcome]bool{
	OutcomePending: {
		OutcomeDeclinedCapacity:  true,
		OutcomeDeclinedPayment:   true,
		OutcomeConfirmed:         true,
		OutcomeFailedPersistence: true,
	},
	OutcomeDeclinedCapacity:  {},
	OutcomeDeclinedPayment:   {},
	OutcomeConfirmed:         {},
	OutcomeFailedPersistence: {},
}

func CanTransition(from, to Outcome) bool {
	return validNext[from][to]
}

func (o Outcome) Terminal() bool {
	next, ok := validNext[o]
	return ok && len(next) == 0
}
