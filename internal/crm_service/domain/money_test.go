package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundMoney(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{25.555, 25.56},
		{25.554, 25.55},
		{1.005, 1.01},
		{0, 0},
		{100, 100},
		{-2.345, -2.35},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RoundMoney(tc.in), "RoundMoney(%v)", tc.in)
	}
}

func TestAddMoney(t *testing.T) {
	assert.Equal(t, 0.3, AddMoney(0.1, 0.2))
	assert.Equal(t, 25.56, AddMoney(0, 25.555))
	assert.Equal(t, 125.56, AddMoney(100, 25.555))
}
