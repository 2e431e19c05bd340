package authority

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"civicledger/pkg/domain"
)

func TestAllowList(t *testing.T) {
	admin := domain.MustParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	other := domain.MustParseAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	ctx := context.Background()

	list := NewAllowList(admin, domain.Address{})
	assert.Equal(t, 1, list.Len(), "zero address is never an authority")

	t.Run("member is authorized regardless of input casing", func(t *testing.T) {
		lower := domain.MustParseAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
		assert.True(t, list.Authorize(ctx, lower))
	})

	t.Run("non-member is refused", func(t *testing.T) {
		assert.False(t, list.Authorize(ctx, other))
	})

	t.Run("zero caller is refused", func(t *testing.T) {
		assert.False(t, list.Authorize(ctx, domain.Address{}))
	})

	t.Run("nil list refuses everyone", func(t *testing.T) {
		var empty *AllowList
		assert.False(t, empty.Authorize(ctx, admin))
	})
}
