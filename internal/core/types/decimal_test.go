package types

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want Quantity
	}{
		{"50", NewQuantity(50)},
		{"12.5", Quantity(125_000)},
		{"0.0001", Quantity(1)},
		{"-20", NewQuantity(-20)},
		{"+3.25", Quantity(32_500)},
		{"1.23456", Quantity(12_345)},
		{".5", Quantity(5_000)},
		{"7.", NewQuantity(7)},
		{"922337203685477.5807", Quantity(math.MaxInt64)},
		{"-922337203685477.5807", Quantity(-math.MaxInt64)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NewQuantityFromString(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseQuantity_Invalid(t *testing.T) {
	for _, in := range []string{
		"", "abc", "1.x", ".", "-",
		"5.-5", "5.+5", "--5", "-+5", "1.2.3", " 1 2",
		"1e3", "1e300", "2E-2",
		"2000000000000000", "922337203685477.5808", "-922337203685477.5808",
	} {
		_, err := NewQuantityFromString(in)
		assert.Error(t, err, in)
	}
}

func TestQuantityString(t *testing.T) {
	assert.Equal(t, "50.0000", NewQuantity(50).String())
	assert.Equal(t, "-20.0000", NewQuantity(-20).String())
	assert.Equal(t, "0.0250", Quantity(250).String())
	assert.Equal(t, "-922337203685477.5808", Quantity(math.MinInt64).String())
}

func TestQuantityJSON(t *testing.T) {
	var v struct {
		Weight Quantity `json:"weight"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"weight": 30.5}`), &v))
	assert.Equal(t, Quantity(305_000), v.Weight)

	require.NoError(t, json.Unmarshal([]byte(`{"weight": "12"}`), &v))
	assert.Equal(t, NewQuantity(12), v.Weight)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"weight": 12.0000}`, string(out))
}

func TestQuantityMul(t *testing.T) {
	assert.True(t, MustMoney("45000").Equal(NewQuantity(50).Mul(MustMoney("900"))))
	assert.True(t, MustMoney("1.25").Equal(MustQuantity("0.5").Mul(MustMoney("2.5"))))
}
