package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecentTradesTail_DropsOldestOnOverflow(t *testing.T) {
	tail := newRecentTradesTail(2)

	tail.append([]*Trade{{TradeID: "1", Symbol: "BTC-USDT"}})
	tail.append([]*Trade{{TradeID: "2", Symbol: "BTC-USDT"}})
	tail.append([]*Trade{{TradeID: "3", Symbol: "BTC-USDT"}})

	got := tail.query("BTC-USDT", 10)
	require.Len(t, got, 2)
	require.Equal(t, "2", got[0].TradeID)
	require.Equal(t, "3", got[1].TradeID)
}

func TestRecentTradesTail_FiltersBySymbolAndLimit(t *testing.T) {
	tail := newRecentTradesTail(10)

	tail.append([]*Trade{
		{TradeID: "1", Symbol: "BTC-USDT"},
		{TradeID: "2", Symbol: "ETH-USDT"},
		{TradeID: "3", Symbol: "BTC-USDT"},
	})

	got := tail.query("BTC-USDT", 1)
	require.Len(t, got, 1)
	require.Equal(t, "3", got[0].TradeID)

	all := tail.query("", 10)
	require.Len(t, all, 3)
}
