package store

import (
	"fmt"

	"eventsched/internal/models"
)

// MaxGenerate is the largest batch GenerateRandom accepts.
const MaxGenerate = 10000

var (
	generatedNames = []string{"Meeting", "Workshop", "Conference", "Training", "Seminar",
		"Webinar", "Party", "Lunch", "Dinner", "Interview"}
	generatedDates = []string{"01/12/2024", "05/12/2024", "10/12/2024", "15/12/2024", "20/12/2024"}
	generatedTimes = []string{"09:00", "10:30", "12:00", "14:00", "15:30"}
)

// GenerateRandom appends n synthetic events through the regular insert path
// and returns their ids in insertion order. Seats fall in [10, 110).
// n must be in [0, MaxGenerate].
func (s *EventStore) GenerateRandom(n int) ([]int, error) {
	if n < 0 || n > MaxGenerate {
		return nil, fmt.Errorf("%w: cannot generate %d events, the limit is %d", models.ErrInvalidArgument, n, MaxGenerate)
	}

	ids := make([]int, 0, n)
	for range n {
		name := fmt.Sprintf("%s %d", generatedNames[s.rng.IntN(len(generatedNames))], s.rng.IntN(100)+1)
		date := generatedDates[s.rng.IntN(len(generatedDates))]
		clock := generatedTimes[s.rng.IntN(len(generatedTimes))]
		seats := s.rng.IntN(100) + 10

		id, err := s.Insert(name, date, clock, seats)
		if err != nil {
			return ids, fmt.Errorf("generate event %d of %d: %w", len(ids)+1, n, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
