package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSymbols(t *testing.T) {
	symbols, err := ParseSymbols("btc-usdt:2:4, ETH-USDT:2:6")
	require.NoError(t, err)
	require.Len(t, symbols, 2)
	require.Equal(t, "BTC-USDT", symbols[0].Symbol)
	require.EqualValues(t, 2, symbols[0].PriceScale)
	require.EqualValues(t, 4, symbols[0].QuantityScale)
	require.Equal(t, "ETH-USDT", symbols[1].Symbol)
	require.EqualValues(t, 6, symbols[1].QuantityScale)
}

func TestParseSymbols_Empty(t *testing.T) {
	_, err := ParseSymbols("")
	require.Error(t, err)
}

func TestParseSymbols_Malformed(t *testing.T) {
	_, err := ParseSymbols("BTC-USDT:2")
	require.Error(t, err)

	_, err = ParseSymbols("BTC-USDT:x:4")
	require.Error(t, err)
}
