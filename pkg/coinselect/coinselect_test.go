package coinselect

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faro-wallet/faro-daemon/pkg/wallet"
)

const testTxID = "5df6e0e2761359d30a8275058e299fcc0381534545f55cf43e41983f5d4c9456"

func makeCoins(values ...uint64) []Coin {
	coins := make([]Coin, 0, len(values))
	for i, v := range values {
		coins = append(coins, Coin{TxID: testTxID, VOut: uint32(i), Value: v})
	}
	return coins
}

func TestBestFitPrefersSmallestSingleCoveringCoin(t *testing.T) {
	selection, err := Select(SelectOpts{
		Coins:       makeCoins(50000, 30000, 20000, 10000),
		Target:      40000,
		SatsPerByte: 1,
		Strategy:    BestFit,
		NumOutputs:  1,
	})
	require.NoError(t, err)

	require.Len(t, selection.Coins, 1)
	assert.Equal(t, uint64(50000), selection.Coins[0].Value)
	assert.Equal(t, uint64(50000), selection.Change+selection.Fee+40000)
}

func TestBestFitFallsBackToFewestInputs(t *testing.T) {
	selection, err := Select(SelectOpts{
		Coins:       makeCoins(50000, 30000, 20000, 10000),
		Target:      70000,
		SatsPerByte: 1,
		Strategy:    BestFit,
		NumOutputs:  1,
	})
	require.NoError(t, err)

	// no single coin covers 70000, the two largest do
	require.Len(t, selection.Coins, 2)
	assert.Equal(t, uint64(80000), selection.Coins[0].Value+selection.Coins[1].Value)
}

func TestLargestAndSmallestFirstOrdering(t *testing.T) {
	coins := makeCoins(10000, 2000, 3000)

	largest, err := Select(SelectOpts{
		Coins:       coins,
		Target:      4000,
		SatsPerByte: 1,
		Strategy:    LargestFirst,
		NumOutputs:  1,
	})
	require.NoError(t, err)
	require.Len(t, largest.Coins, 1)
	assert.Equal(t, uint64(10000), largest.Coins[0].Value)

	smallest, err := Select(SelectOpts{
		Coins:       coins,
		Target:      4000,
		SatsPerByte: 1,
		Strategy:    SmallestFirst,
		NumOutputs:  1,
	})
	require.NoError(t, err)
	require.Len(t, smallest.Coins, 2)
	assert.Equal(t, uint64(5000), smallest.Coins[0].Value+smallest.Coins[1].Value)
}

func TestRandomSelectionVaries(t *testing.T) {
	coins := make([]Coin, 0, 32)
	for i := 0; i < 32; i++ {
		coins = append(coins, Coin{TxID: testTxID, VOut: uint32(i), Value: 10000})
	}

	firsts := make(map[uint32]struct{})
	for i := 0; i < 50; i++ {
		selection, err := Select(SelectOpts{
			Coins:       coins,
			Target:      5000,
			SatsPerByte: 1,
			Strategy:    Random,
			NumOutputs:  1,
		})
		require.NoError(t, err)
		require.NotEmpty(t, selection.Coins)
		firsts[selection.Coins[0].VOut] = struct{}{}
	}
	assert.Greater(t, len(firsts), 1)
}

func TestRandomSelectionIsSufficient(t *testing.T) {
	for i := 0; i < 20; i++ {
		selection, err := Select(SelectOpts{
			Coins:       makeCoins(5000, 6000, 7000, 8000, 9000),
			Target:      12000,
			SatsPerByte: 1,
			Strategy:    Random,
			NumOutputs:  1,
		})
		require.NoError(t, err)

		total := uint64(0)
		for _, c := range selection.Coins {
			total += c.Value
		}
		assert.GreaterOrEqual(t, total, 12000+selection.Fee)
		assert.Equal(t, total, 12000+selection.Fee+selection.Change)
	}
}

func TestInsufficientFundsCarriesShortfall(t *testing.T) {
	_, err := Select(SelectOpts{
		Coins:       makeCoins(50000, 30000),
		Target:      100000,
		SatsPerByte: 1,
		Strategy:    LargestFirst,
		NumOutputs:  1,
	})
	require.Error(t, err)

	var insufficientErr *InsufficientFundsError
	require.True(t, errors.As(err, &insufficientErr))
	assert.Equal(t, uint64(80000), insufficientErr.Available)
	assert.Greater(t, insufficientErr.Target, uint64(100000))
	assert.Equal(
		t,
		insufficientErr.Target-insufficientErr.Available,
		insufficientErr.Shortfall,
	)
}

func TestDustCoinsAreExcluded(t *testing.T) {
	// every coin is below the marginal cost of spending it
	dustOnly := makeCoins(10, 20, 30)
	_, err := Select(SelectOpts{
		Coins:       dustOnly,
		Target:      50,
		SatsPerByte: 1,
		Strategy:    LargestFirst,
		NumOutputs:  1,
	})
	require.Error(t, err)

	var insufficientErr *InsufficientFundsError
	require.True(t, errors.As(err, &insufficientErr))
	assert.Equal(t, uint64(0), insufficientErr.Available)
}

func TestIterativeFeeReEvaluation(t *testing.T) {
	// the first coin covers target plus the 1-input fee minus one satoshi,
	// forcing a second input whose marginal fee must be re-covered
	oneInputFee := wallet.FeeAmount(wallet.EstimateTxVSize(1, 2), 1)
	coins := makeCoins(10000+oneInputFee-1, 10000)

	selection, err := Select(SelectOpts{
		Coins:       coins,
		Target:      10000,
		SatsPerByte: 1,
		Strategy:    LargestFirst,
		NumOutputs:  1,
	})
	require.NoError(t, err)

	require.Len(t, selection.Coins, 2)
	assert.Equal(t, wallet.FeeAmount(wallet.EstimateTxVSize(2, 2), 1), selection.Fee)
}

func TestSubtractFeeFromTarget(t *testing.T) {
	selection, err := Select(SelectOpts{
		Coins:                 makeCoins(5000),
		Target:                5000,
		SatsPerByte:           1,
		Strategy:              BestFit,
		NumOutputs:            1,
		SubtractFeeFromTarget: true,
	})
	require.NoError(t, err)

	require.Len(t, selection.Coins, 1)
	assert.Equal(t, uint64(0), selection.Change)
}

func TestDustSweep(t *testing.T) {
	selection, err := Select(SelectOpts{
		Coins:              makeCoins(600, 700, 50000),
		SatsPerByte:        1,
		Strategy:           DustSweep,
		DustSweepThreshold: 1000,
	})
	require.NoError(t, err)

	require.Len(t, selection.Coins, 2)
	assert.Equal(t, uint64(1300), selection.Change+selection.Fee)
	assert.Greater(t, selection.Change, uint64(0))
}

func TestFailingDustSweep(t *testing.T) {
	_, err := Select(SelectOpts{
		Coins:              makeCoins(50000, 60000),
		SatsPerByte:        1,
		Strategy:           DustSweep,
		DustSweepThreshold: 1000,
	})
	assert.Equal(t, ErrNoDust, err)
}

func TestFailingSelectOpts(t *testing.T) {
	tests := []struct {
		name string
		opts SelectOpts
		err  error
	}{
		{
			name: "no coins",
			opts: SelectOpts{Target: 1000, Strategy: BestFit},
			err:  ErrNoCoins,
		},
		{
			name: "zero target",
			opts: SelectOpts{Coins: makeCoins(1000), Strategy: BestFit},
			err:  ErrZeroTarget,
		},
		{
			name: "unknown strategy",
			opts: SelectOpts{
				Coins:    makeCoins(1000),
				Target:   500,
				Strategy: Strategy("magic"),
			},
			err: ErrInvalidStrategy,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Select(tt.opts)
			assert.Equal(t, tt.err, err)
		})
	}
}
