package adapters

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicledger/internal/complaint/models"
	"civicledger/internal/complaint/store"
	complaintsync "civicledger/internal/complaint/sync"
	"civicledger/pkg/domain"
	"civicledger/pkg/platform/sentinel"
)

func TestLedgerSourceFeedsSynchronizer(t *testing.T) {
	ctx := context.Background()
	ledger := store.NewInMemory()
	reporter := domain.MustParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	created := time.Unix(1714000000, 0).UTC()

	for range 25 {
		_, err := ledger.Create(ctx, models.Draft{
			Reporter:    reporter,
			Description: "street light out",
			Location:    "19.07,72.87",
			Category:    models.CategoryElectricity,
			Urgency:     models.UrgencyCritical,
			Stake:       models.Stake{Token: domain.NativeToken, Amount: big.NewInt(100000000000000000)},
		}, created)
		require.NoError(t, err)
	}

	snap, err := complaintsync.NewSynchronizer(NewLedgerSource(ledger)).Sync(ctx, 20)
	require.NoError(t, err)
	require.Len(t, snap.Records, 20)
	assert.Equal(t, uint64(24), snap.Records[0].ID)
	assert.Equal(t, uint64(5), snap.Records[19].ID)

	v := snap.Records[0]
	assert.Equal(t, reporter.String(), v.Reporter)
	assert.Equal(t, "0.1", v.StakedAmount)
	assert.Equal(t, "Submitted", v.Status)
	assert.Equal(t, "Critical", v.Urgency)
	assert.Equal(t, created.UnixMilli(), v.Timestamp)
	assert.Equal(t, "0x0000000000000000000000000000000000000000", v.StakeToken)
}

func TestLedgerSourceMissingRecord(t *testing.T) {
	_, err := NewLedgerSource(store.NewInMemory()).Fetch(context.Background(), 3)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
