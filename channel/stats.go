package channel

// Stats is a snapshot of a channel, captured under its lock.
type Stats struct {
	Len      int    // Items queued and not yet received
	Senders  int    // Live sender handles
	Sent     uint64 // Items sent since the channel was created
	Received uint64 // Items received since the channel was created
	Closed   bool   // No senders are left
}
