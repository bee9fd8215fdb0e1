package costsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSeats(t *testing.T) {
	seats := []string{"alice", "bob", "carol"}
	split := SplitSeats(seats, []string{"bob"}, "Copilot Users", "Copilot Exceptions")

	require.Len(t, split.Assignments, 3)
	assert.Equal(t, "Copilot Users", split.Assignments["alice"].CostCenter)
	assert.Equal(t, "Copilot Exceptions", split.Assignments["bob"].CostCenter)
	assert.Equal(t, "Copilot Users", split.Assignments["carol"].CostCenter)
	assert.Equal(t, []string{"bob"}, split.ExceptionUsers)
	assert.Equal(t, []string{"alice", "carol"}, split.DefaultUsers)
}

func TestSplitSeatsCaseInsensitive(t *testing.T) {
	split := SplitSeats([]string{"Alice"}, []string{"alice"}, "Default", "Exception")

	assert.Equal(t, "Exception", split.Assignments["Alice"].CostCenter)
	assert.Equal(t, []string{"Alice"}, split.ExceptionUsers)
}

func TestSplitSeatsEmptyExceptionList(t *testing.T) {
	split := SplitSeats([]string{"alice", "bob"}, nil, "Default", "Exception")

	require.Len(t, split.Assignments, 2)
	assert.Empty(t, split.ExceptionUsers)
	for _, a := range split.Assignments {
		assert.Equal(t, "Default", a.CostCenter)
	}
}
