package redis

// DefaultKeyPrefix namespaces every key written by the store.
const DefaultKeyPrefix = "batchmon:"

// jobKey returns the Hash key for a job record: {prefix}job:{id}
func (s *Store) jobKey(id string) string { return s.prefix + "job:" + id }

// indexKey is the Sorted Set of job ids scored by start time in microseconds.
func (s *Store) indexKey() string { return s.prefix + "jobs" }
