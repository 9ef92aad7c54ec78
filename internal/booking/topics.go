package booking

const (
	TopicBookingConfirmed  = "booking.confirmed"
	TopicPaymentDeclined   = "booking.payment_declined"
	TopicBookingUnrecorded = "booking.unrecorded"
)

// Partition key = ref, so every event of one booking keeps its order.
func PartitionKey(ref string) []byte { return []byte(ref) }
