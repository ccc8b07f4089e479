package balance

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/table-balancer/internal/seating"
)

func table(t *testing.T, number, occupied int) *seating.Table {
	t.Helper()
	tbl, err := seating.NewTable(number, seating.TypeNineMax)
	require.NoError(t, err)
	for i := 0; i < occupied; i++ {
		tbl.Seats[i].Occupant = &seating.Participant{ID: fmt.Sprintf("t%d-p%d", number, i)}
	}
	return tbl
}

var rules = seating.Rules{MaxTables: 10, MinPlayersPerTable: 6, MaxPlayersPerTable: 9, BalanceThreshold: 2}

func TestAnalyze_ExampleScenario(t *testing.T) {
	r := Analyze([]*seating.Table{table(t, 1, 5), table(t, 2, 9)}, rules)

	assert.Equal(t, 4, r.Variance)
	assert.False(t, r.Balanced)
	assert.Equal(t, []int{1}, r.BreakCandidates)
	require.NotNil(t, r.Rebalance)
	assert.Equal(t, Pair{From: 2, To: 1}, *r.Rebalance)
}

func TestAnalyze_BreakCandidateEvenWhenBalanced(t *testing.T) {
	r := Analyze([]*seating.Table{table(t, 1, 5), table(t, 2, 6)}, rules)
	assert.True(t, r.Balanced)
	assert.Nil(t, r.Rebalance)
	assert.Equal(t, []int{1}, r.BreakCandidates)
}

func TestAnalyze_SingleTableIsVacuouslyBalanced(t *testing.T) {
	r := Analyze([]*seating.Table{table(t, 1, 3)}, rules)
	assert.Equal(t, 0, r.Variance)
	assert.True(t, r.Balanced)
	assert.Nil(t, r.Rebalance)
}

func TestAnalyze_IgnoresInactiveTables(t *testing.T) {
	breaking := table(t, 3, 0)
	breaking.Status = seating.StatusBreaking
	r := Analyze([]*seating.Table{table(t, 1, 8), table(t, 2, 8), breaking}, rules)
	assert.Len(t, r.Counts, 2)
	assert.True(t, r.Balanced)
	assert.Empty(t, r.BreakCandidates)
}

func TestAnalyze_Empty(t *testing.T) {
	r := Analyze(nil, rules)
	assert.True(t, r.Balanced)
	assert.Empty(t, r.Counts)
}
