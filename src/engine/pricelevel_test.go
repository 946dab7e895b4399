package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPriceLevel_AppendPeekRemoveFront(t *testing.T) {
	level := newPriceLevel(dec("100.00"))
	require.True(t, level.IsEmpty())

	o1 := NewOrder("a", "BTC-USDT", SideBuy, TypeLimit, dec("100.00"), dec("1.0000"), 1)
	o2 := NewOrder("b", "BTC-USDT", SideBuy, TypeLimit, dec("100.00"), dec("2.0000"), 2)
	level.Append(o1)
	level.Append(o2)

	require.Equal(t, 2, level.Len())
	require.True(t, level.TotalQuantity().Equal(dec("3.0000")))
	require.Equal(t, "a", level.PeekFront().ID)

	level.RemoveFront()
	level.DecrementTotal(dec("1.0000"))
	require.Equal(t, 1, level.Len())
	require.Equal(t, "b", level.PeekFront().ID)
	require.True(t, level.TotalQuantity().Equal(dec("2.0000")))
}

func TestPriceLevel_RemoveByHandle(t *testing.T) {
	level := newPriceLevel(dec("100.00"))

	o1 := NewOrder("a", "BTC-USDT", SideBuy, TypeLimit, dec("100.00"), dec("1.0000"), 1)
	o2 := NewOrder("b", "BTC-USDT", SideBuy, TypeLimit, dec("100.00"), dec("2.0000"), 2)
	o3 := NewOrder("c", "BTC-USDT", SideBuy, TypeLimit, dec("100.00"), dec("3.0000"), 3)
	level.Append(o1)
	elem2 := level.Append(o2)
	level.Append(o3)

	level.Remove(elem2)

	require.Equal(t, 2, level.Len())
	require.True(t, level.TotalQuantity().Equal(dec("4.0000")))
	require.Equal(t, "a", level.PeekFront().ID)

	level.RemoveFront()
	require.Equal(t, "c", level.PeekFront().ID)
}
