package store

// sampleBudget is the number of keys with a real expiry that one active
// expiry sample considers before stopping.
const sampleBudget = 20

// expireSample takes one sampling pass: it walks the map (iteration order
// is whatever Go gives us — correctness only needs every key eventually
// eligible, not uniform randomness), stopping once sampleBudget keys
// carrying a real expiry have been seen, and deletes those found expired.
// Deletions are collected into a scratch slice and applied after
// iteration, never mutating the map mid-range.
func (s *Store) expireSample() float32 {
	budget := sampleBudget
	now := NowMillis()

	var toRemove []string
	for key, obj := range s.items {
		if obj.ExpiresAt == NoExpiry {
			continue
		}
		budget--

		if obj.ExpiresAt <= now {
			toRemove = append(toRemove, key)
		}

		if budget == 0 {
			break
		}
	}

	for _, k := range toRemove {
		delete(s.items, k)
	}

	return float32(len(toRemove)) / float32(sampleBudget)
}

// ActiveExpirySweep repeatedly samples until a sweep's expired fraction
// drops below 0.25, per the cron-triggered active expiry policy.
func (s *Store) ActiveExpirySweep() {
	for {
		frac := s.expireSample()
		if frac < 0.25 {
			break
		}
	}
}
