package events

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	body, err := json.Marshal(DiscountCreated{ProductName: "Lamp", Percentage: decimal.RequireFromString("12.5")})
	require.NoError(t, err)

	ev, err := Decode[DiscountCreated](body)
	require.NoError(t, err)
	assert.Equal(t, "Lamp", ev.ProductName)
	assert.True(t, ev.Percentage.Equal(decimal.RequireFromString("12.5")))

	_, err = Decode[OrderCreated]([]byte(`{"items": 3}`))
	assert.ErrorContains(t, err, "decode payload failed")
}
