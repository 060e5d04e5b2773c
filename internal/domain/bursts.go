package domain

import "time"

type Burst struct {
	Start      int64
	Utterances []Utterance
}

// GroupBursts partitions a log snapshot into runs of utterances. A new burst
// starts whenever the gap to the previous utterance exceeds threshold.
func GroupBursts(log []Utterance, threshold time.Duration) []Burst {
	if len(log) == 0 {
		return nil
	}

	gap := threshold.Milliseconds()
	bursts := []Burst{{Start: log[0].Timestamp, Utterances: []Utterance{log[0]}}}
	for i := 1; i < len(log); i++ {
		current := &bursts[len(bursts)-1]
		if log[i].Timestamp-log[i-1].Timestamp > gap {
			bursts = append(bursts, Burst{Start: log[i].Timestamp, Utterances: []Utterance{log[i]}})
			continue
		}
		current.Utterances = append(current.Utterances, log[i])
	}

	return bursts
}
