package store

import (
	"math/rand/v2"
	"slices"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventsched/internal/models"
)

func newTestStore(opts ...Option) *EventStore {
	opts = append([]Option{WithRand(rand.New(rand.NewPCG(1, 2)))}, opts...)
	return New(opts...)
}

func Test_New_IsEmpty(t *testing.T) {
	s := newTestStore()

	assert.Equal(t, 0, s.Count())
	assert.Equal(t, []string{NoEvents}, s.DisplayForward())
	assert.Equal(t, []string{NoEvents}, s.DisplayReverse())
}

func Test_Insert_ThenSearch_RoundTrip(t *testing.T) {
	s := newTestStore()

	id, err := s.Insert("Standup", "01/01/2025", "09:00", 5)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, id, minID)
	assert.LessOrEqual(t, id, maxID)
	assert.Equal(t, 1, s.Count())

	got, err := s.Search(id)
	require.NoError(t, err)
	assert.Equal(t, models.Event{ID: id, Name: "Standup", Date: "01/01/2025", Time: "09:00", Seats: 5}, got)
	assert.Equal(t, []string{got.String()}, s.DisplayForward())
}

func Test_Insert_RejectsInvalidFields(t *testing.T) {
	s := newTestStore()

	_, err := s.Insert("", "01/01/2025", "09:00", 5)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = s.Insert("Standup", "01/01/2025", "09:00", -1)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = s.Insert("Stand\r\nup", "01/01/2025", "09:00", 5)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	assert.Equal(t, 0, s.Count())
}

func Test_Modify_RejectsLineBreak(t *testing.T) {
	s := newTestStore()
	id, err := s.Insert("Standup", "01/01/2025", "09:00", 5)
	require.NoError(t, err)

	err = s.Modify(id, models.UpdateFromSentinels("Stand\nup", "", "", 0))
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	lines := s.DisplayForward()
	require.Len(t, lines, s.Count())
	assert.Equal(t, strconv.Itoa(id)+"|Standup|01/01/2025|09:00|5", lines[0])
}

func Test_Search_Missing(t *testing.T) {
	s := newTestStore()

	_, err := s.Search(12345)
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_Delete_ThenSearch_NotFound(t *testing.T) {
	s := newTestStore()
	id, err := s.Insert("Standup", "01/01/2025", "09:00", 5)
	require.NoError(t, err)

	require.NoError(t, s.Delete(id))
	_, err = s.Search(id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, s.Count())

	assert.ErrorIs(t, s.Delete(id), ErrNotFound)
}

func Test_Delete_KeepsNeighbourOrder(t *testing.T) {
	s := newTestStore()
	for _, e := range []models.Event{
		{ID: 10001, Name: "a", Date: "d", Time: "t"},
		{ID: 10002, Name: "b", Date: "d", Time: "t"},
		{ID: 10003, Name: "c", Date: "d", Time: "t"},
	} {
		s.Append(e)
	}

	tests := []struct {
		name    string
		id      int
		forward []int
	}{
		{name: "middle", id: 10002, forward: []int{10001, 10003}},
		{name: "head", id: 10001, forward: []int{10003}},
		{name: "tail", id: 10003, forward: []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, s.Delete(tt.id))
			assert.Equal(t, tt.forward, ids(s.Forward()))

			reversed := slices.Clone(tt.forward)
			slices.Reverse(reversed)
			assert.Equal(t, reversed, ids(s.Reverse()))
			assert.Equal(t, len(tt.forward), s.Count())
		})
	}
}

func Test_Modify_OnlyPresentFields(t *testing.T) {
	s := newTestStore()
	id, err := s.Insert("Standup", "01/01/2025", "09:00", 5)
	require.NoError(t, err)

	require.NoError(t, s.Modify(id, models.UpdateFromSentinels("", "02/01/2025", "", 0)))

	got, err := s.Search(id)
	require.NoError(t, err)
	assert.Equal(t, models.Event{ID: id, Name: "Standup", Date: "02/01/2025", Time: "09:00", Seats: 5}, got)

	require.NoError(t, s.Modify(id, models.UpdateFromSentinels("Retro", "", "10:00", 8)))
	got, err = s.Search(id)
	require.NoError(t, err)
	assert.Equal(t, models.Event{ID: id, Name: "Retro", Date: "02/01/2025", Time: "10:00", Seats: 8}, got)
}

func Test_Modify_Missing(t *testing.T) {
	s := newTestStore()

	err := s.Modify(99999, models.UpdateFromSentinels("x", "", "", 0))
	assert.ErrorIs(t, err, ErrNotFound)
}

func Test_Modify_InvalidLeavesEventUntouched(t *testing.T) {
	s := newTestStore()
	id, err := s.Insert("Standup", "01/01/2025", "09:00", 5)
	require.NoError(t, err)

	tooLong := "this name is definitely longer than forty-nine bytes"
	err = s.Modify(id, models.EventUpdate{Name: &tooLong})
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	got, err := s.Search(id)
	require.NoError(t, err)
	assert.Equal(t, "Standup", got.Name)
}

func Test_Search_ReturnsCopy(t *testing.T) {
	s := newTestStore()
	id, err := s.Insert("Standup", "01/01/2025", "09:00", 5)
	require.NoError(t, err)

	got, _ := s.Search(id)
	got.Name = "changed"
	events := s.Forward()
	events[0].Seats = 999

	again, _ := s.Search(id)
	assert.Equal(t, "Standup", again.Name)
	assert.Equal(t, 5, again.Seats)
}

func Test_Search_FirstMatchWins(t *testing.T) {
	s := newTestStore()
	s.Append(models.Event{ID: 20000, Name: "first", Date: "d", Time: "t"})
	s.Append(models.Event{ID: 20000, Name: "second", Date: "d", Time: "t"})

	got, err := s.Search(20000)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Name)
	assert.Equal(t, 2, s.Count())
}

func Test_DisplayReverse_IsForwardReversed(t *testing.T) {
	s := newTestStore()
	_, err := s.GenerateRandom(25)
	require.NoError(t, err)

	forward := s.DisplayForward()
	slices.Reverse(forward)
	assert.Equal(t, forward, s.DisplayReverse())
	assert.Len(t, s.DisplayForward(), s.Count())
}

func Test_UniqueIDs(t *testing.T) {
	s := newTestStore(WithUniqueIDs(true))

	_, err := s.GenerateRandom(2000)
	require.NoError(t, err)

	seen := make(map[int]bool, s.Count())
	for _, e := range s.Forward() {
		assert.False(t, seen[e.ID], "duplicate id %d", e.ID)
		seen[e.ID] = true
	}
}

func Test_UniqueIDs_Exhausted(t *testing.T) {
	s := newTestStore(WithUniqueIDs(true))
	for id := minID; id <= maxID; id++ {
		s.Append(models.Event{ID: id, Name: "x", Date: "d", Time: "t"})
	}

	_, err := s.Insert("Standup", "01/01/2025", "09:00", 5)
	assert.ErrorIs(t, err, ErrIDSpaceExhausted)
}

func ids(events []models.Event) []int {
	out := make([]int, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}
