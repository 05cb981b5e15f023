package trade

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReturnType(t *testing.T) {
	typ, err := ParseReturnType(" Customer ")
	require.NoError(t, err)
	assert.Equal(t, ReturnCustomer, typ)

	_, err = ParseReturnType("exchange")
	assert.Error(t, err)
}

func TestNewReturnEntry(t *testing.T) {
	orig := uuid.New()
	entry := NewReturnEntry("RET-202601-0001", ReturnCustomer, " B-260131-0001 ", "walk-in", &orig, []ReversedLine{
		{Name: "A", Quantity: d("2"), Amount: d("18")},
		{Name: "B", Quantity: d("3"), Amount: d("4.505")},
	}, testNow)

	assert.Equal(t, "B-260131-0001", entry.Reference)
	assertDecimal(t, "5", entry.ItemCount)
	assertDecimal(t, "22.51", entry.TotalValue)
	require.Len(t, entry.Lines, 2)
	assert.Equal(t, 2, entry.Lines[1].LineNo)
	require.Len(t, entry.GetDomainEvents(), 1)
}

func TestManualReversal(t *testing.T) {
	lines, err := ManualReversal([]ReturnLineRequest{{Name: " Syrup ", Quantity: d("1"), Amount: d("12.345")}})
	require.NoError(t, err)
	assert.Equal(t, "Syrup", lines[0].Name)
	assertDecimal(t, "12.35", lines[0].Amount)

	_, err = ManualReversal(nil)
	assert.Error(t, err)
	_, err = ManualReversal([]ReturnLineRequest{{Name: "", Quantity: d("1")}})
	assert.Error(t, err)
	_, err = ManualReversal([]ReturnLineRequest{{Name: "x", Quantity: d("1"), Amount: d("-1")}})
	assert.Error(t, err)
}
