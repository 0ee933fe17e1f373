package rating

import (
	"testing"

	"rating-ledger/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestExpected(t *testing.T) {
	tests := []struct {
		name     string
		winner   int
		loser    int
		expected float64
	}{{
		"even ratings",
		1200,
		1200,
		0.5,
	}, {
		"200 points stronger",
		1600,
		1400,
		0.7597,
	}, {
		"400 points weaker",
		1000,
		1400,
		0.0909,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.InDelta(t, test.expected, Expected(test.winner, test.loser), 0.0001)
		})
	}
}

func TestComputeDelta(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name     string
		winner   int
		loser    int
		played   int
		margin   *domain.MarginData
		expected int
	}{{
		"fresh players, provisional",
		1200,
		1200,
		0,
		nil,
		16,
	}, {
		"favourite wins, provisional",
		1600,
		1400,
		0,
		nil,
		8,
	}, {
		"established with decisive margin",
		1200,
		1200,
		40,
		&domain.MarginData{WinnerScore: 3, LoserScore: 0},
		10,
	}, {
		"established with two point margin",
		1200,
		1200,
		40,
		&domain.MarginData{WinnerScore: 3, LoserScore: 1},
		8,
	}, {
		"established with narrow margin",
		1200,
		1200,
		40,
		&domain.MarginData{WinnerScore: 2, LoserScore: 1},
		6,
	}, {
		"provisional with decisive margin",
		1200,
		1200,
		3,
		&domain.MarginData{WinnerScore: 5, LoserScore: 1},
		19,
	}, {
		"last provisional match",
		1200,
		1200,
		29,
		nil,
		16,
	}, {
		"first established match",
		1200,
		1200,
		30,
		nil,
		8,
	}, {
		"floor binds for a heavy favourite",
		2000,
		1000,
		40,
		nil,
		5,
	}, {
		"underdog win is not capped",
		1000,
		1800,
		0,
		nil,
		32,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, p.ComputeDelta(test.winner, test.loser, test.played, test.margin))
		})
	}
}

func TestComputeDeltaCustomFloor(t *testing.T) {
	p := DefaultPolicy()
	p.Floor = 12

	assert.Equal(t, 12, p.ComputeDelta(1600, 1400, 0, nil))
	assert.Equal(t, 16, p.ComputeDelta(1200, 1200, 0, nil))
}

func TestComputeDeltaDeterministic(t *testing.T) {
	p := DefaultPolicy()
	margin := &domain.MarginData{WinnerScore: 2, LoserScore: 1}

	first := p.ComputeDelta(1523, 1489, 12, margin)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, p.ComputeDelta(1523, 1489, 12, margin))
	}
}

func TestMarginMultiplier(t *testing.T) {
	assert.Equal(t, 1.0, MarginMultiplier(nil))
	assert.Equal(t, 1.2, MarginMultiplier(&domain.MarginData{WinnerScore: 10, LoserScore: 7}))
	assert.Equal(t, 1.0, MarginMultiplier(&domain.MarginData{WinnerScore: 2, LoserScore: 0}))
	assert.Equal(t, 0.8, MarginMultiplier(&domain.MarginData{WinnerScore: 1, LoserScore: 0}))
	assert.Equal(t, 0.8, MarginMultiplier(&domain.MarginData{}))
}
