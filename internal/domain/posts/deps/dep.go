package deps

// Deduplicator rejects physical messages that were already processed
// within the retention window
type Deduplicator interface {
	// MarkSeen records the fingerprint; true means first sighting
	MarkSeen(fingerprint string) bool
}
