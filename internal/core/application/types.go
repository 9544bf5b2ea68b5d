package application

import (
	"context"

	"github.com/faro-wallet/faro-daemon/pkg/coinselect"
	"github.com/faro-wallet/faro-daemon/pkg/electrum"
	"github.com/faro-wallet/faro-daemon/internal/core/domain"
)

// BlockchainService is the view of the blockchain the engine depends on.
// The electrum client satisfies it; tests plug a fake.
type BlockchainService interface {
	GetBalance(ctx context.Context, scriptHash string) (*electrum.Balance, error)
	GetHistory(ctx context.Context, scriptHash string) ([]electrum.HistoryItem, error)
	ListUnspent(ctx context.Context, scriptHash string) ([]electrum.Unspent, error)
	GetRawTransaction(ctx context.Context, txid string) (string, error)
	Broadcast(ctx context.Context, txHex string) (string, error)
	Subscribe(ctx context.Context, scriptHash string) (<-chan electrum.StatusUpdate, error)
	RelayFee(ctx context.Context) (float64, error)
}

// Balance is the wallet balance split by confirmation state.
type Balance struct {
	Confirmed   uint64
	Unconfirmed uint64
}

// Total returns the overall wallet balance.
func (b Balance) Total() uint64 { return b.Confirmed + b.Unconfirmed }

// SendOpts is the struct given to the Send operation.
type SendOpts struct {
	Address     string
	Amount      uint64
	SatsPerByte float64
	Strategy    coinselect.Strategy
	// SubtractFeeFromAmount deducts the fee from the requested amount so
	// the sender's total outflow equals exactly Amount.
	SubtractFeeFromAmount bool
	// ChangeIndex pins the change output to an already derived internal
	// address instead of rotating to the next unused one.
	ChangeIndex *int
}

// SendResult reports the outcome of a successful Send.
type SendResult struct {
	TxID   string
	Amount uint64
	Fee    uint64
	Change uint64
}

// DiscoveryProgress is invoked while scanning the chains of a restored
// wallet, once per probed address.
type DiscoveryProgress func(chain domain.Chain, index int, active bool)

// SyncProgress is invoked while refreshing the wallet, once per synced
// address. Addresses are synced concurrently, so calls may overlap.
type SyncProgress func(address string, synced, total int)
