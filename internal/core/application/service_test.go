package application

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faro-wallet/faro-daemon/internal/core/domain"
	"github.com/faro-wallet/faro-daemon/internal/infrastructure/storage/db/inmemory"
	"github.com/faro-wallet/faro-daemon/pkg/coinselect"
	"github.com/faro-wallet/faro-daemon/pkg/electrum"
	"github.com/faro-wallet/faro-daemon/pkg/wallet"
)

var (
	ctx         = context.Background()
	testNetwork = &chaincfg.RegressionNetParams

	testMnemonic = strings.Split(
		"abandon abandon abandon abandon abandon abandon "+
			"abandon abandon abandon abandon abandon about",
		" ",
	)
	foreignMnemonic = strings.Split(
		"legal winner thank year wave sausage worth useful "+
			"legal winner thank yellow",
		" ",
	)
)

type fakeChain struct {
	mtx             sync.Mutex
	history         map[string][]electrum.HistoryItem
	unspents        map[string][]electrum.Unspent
	rawTxs          map[string]string
	rejectBroadcast bool
	broadcasted     []string
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		history:  make(map[string][]electrum.HistoryItem),
		unspents: make(map[string][]electrum.Unspent),
		rawTxs:   make(map[string]string),
	}
}

func (c *fakeChain) GetBalance(
	_ context.Context, scriptHash string,
) (*electrum.Balance, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	balance := &electrum.Balance{}
	for _, u := range c.unspents[scriptHash] {
		balance.Confirmed += int64(u.Value)
	}
	return balance, nil
}

func (c *fakeChain) GetHistory(
	_ context.Context, scriptHash string,
) ([]electrum.HistoryItem, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.history[scriptHash], nil
}

func (c *fakeChain) ListUnspent(
	_ context.Context, scriptHash string,
) ([]electrum.Unspent, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.unspents[scriptHash], nil
}

func (c *fakeChain) GetRawTransaction(
	_ context.Context, txid string,
) (string, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	raw, ok := c.rawTxs[txid]
	if !ok {
		return "", errors.New("unknown transaction")
	}
	return raw, nil
}

func (c *fakeChain) Broadcast(_ context.Context, txHex string) (string, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.rejectBroadcast {
		return "", &electrum.ServerError{Code: 1, Message: "txn-mempool-conflict"}
	}
	c.broadcasted = append(c.broadcasted, txHex)

	raw, err := hex.DecodeString(txHex)
	if err != nil {
		return "", err
	}
	tx := &wire.MsgTx{}
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return "", err
	}
	return tx.TxHash().String(), nil
}

func (c *fakeChain) Subscribe(
	_ context.Context, _ string,
) (<-chan electrum.StatusUpdate, error) {
	return make(chan electrum.StatusUpdate, 1), nil
}

func (c *fakeChain) RelayFee(_ context.Context) (float64, error) {
	return 0.00001, nil
}

type testEnv struct {
	svc   *Service
	chain *fakeChain
	repo  domain.UtxoRepository
}

func newTestEnv(t *testing.T) *testEnv {
	chain := newFakeChain()
	utxoRepo := inmemory.NewUtxoRepositoryImpl()

	svc, err := NewService(ServiceOpts{
		WalletRepository:      inmemory.NewWalletRepositoryImpl(),
		UtxoRepository:        utxoRepo,
		TransactionRepository: inmemory.NewTransactionRepositoryImpl(),
		Blockchain:            chain,
		Network:               testNetwork,
		GapLimit:              5,
		DustThreshold:         546,
	})
	require.NoError(t, err)

	return &testEnv{svc: svc, chain: chain, repo: utxoRepo}
}

func (e *testEnv) initWallet(t *testing.T) {
	require.NoError(t, e.svc.InitWallet(ctx, InitWalletOpts{
		Mnemonic:   testMnemonic,
		Passphrase: "secret",
		CoinType:   wallet.CoinTypeStandard,
	}))
}

// seedUtxo registers a fresh receiving address and funds it in the repo.
func (e *testEnv) seedUtxo(t *testing.T, value uint64, vout uint32) domain.Utxo {
	addr, err := e.svc.NewAddress(ctx)
	require.NoError(t, err)

	stored, err := e.svc.walletRepo.GetWallet(ctx)
	require.NoError(t, err)
	var info domain.AddressInfo
	for _, i := range stored.AllAddresses() {
		if i.Address == addr {
			info = i
		}
	}
	require.NotEmpty(t, info.ScriptHash)

	utxo := domain.Utxo{
		UtxoKey: domain.UtxoKey{
			TxID: "5df6e0e2761359d30a8275058e299fcc0381534545f55cf43e41983f5d4c9456",
			VOut: vout,
		},
		Value:          value,
		Address:        info.Address,
		Script:         info.Script,
		ScriptHash:     info.ScriptHash,
		DerivationPath: info.DerivationPath,
		Confirmed:      true,
	}
	count, err := e.repo.AddUtxos(ctx, []domain.Utxo{utxo})
	require.NoError(t, err)
	require.Equal(t, 1, count)
	return utxo
}

func foreignAddress(t *testing.T) string {
	addr, _ := foreignDestination(t)
	return addr
}

func foreignScript(t *testing.T) []byte {
	_, script := foreignDestination(t)
	return script
}

func foreignDestination(t *testing.T) (string, []byte) {
	w, err := wallet.NewWalletFromMnemonic(wallet.NewWalletFromMnemonicOpts{
		Mnemonic: foreignMnemonic,
		CoinType: wallet.CoinTypeStandard,
	})
	require.NoError(t, err)
	addr, script, err := w.DeriveAddress(wallet.DeriveAddressOpts{
		DerivationPath: wallet.AddressDerivationPath(wallet.ExternalChain, 0),
		Network:        testNetwork,
	})
	require.NoError(t, err)
	return addr, script
}

func TestInitUnlockLock(t *testing.T) {
	env := newTestEnv(t)
	env.initWallet(t)
	assert.False(t, env.svc.IsLocked())

	env.svc.Lock(ctx)
	assert.True(t, env.svc.IsLocked())

	_, err := env.svc.NewAddress(ctx)
	assert.Equal(t, domain.ErrWalletLocked, err)

	err = env.svc.Unlock(ctx, "wrong")
	assert.Equal(t, domain.ErrInvalidPassphrase, err)
	assert.True(t, env.svc.IsLocked())

	require.NoError(t, env.svc.Unlock(ctx, "secret"))
	assert.False(t, env.svc.IsLocked())
}

func TestWalletLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.initWallet(t)
	env.seedUtxo(t, 10000, 0)

	require.NoError(t, env.svc.RenameWallet(ctx, "savings"))
	stored, err := env.svc.walletRepo.GetWallet(ctx)
	require.NoError(t, err)
	assert.Equal(t, "savings", stored.Name)

	assert.Equal(t, ErrNullWalletName, env.svc.RenameWallet(ctx, ""))

	err = env.svc.ChangePassphrase(ctx, "wrong", "newsecret")
	assert.Equal(t, domain.ErrInvalidPassphrase, err)
	require.NoError(t, env.svc.ChangePassphrase(ctx, "secret", "newsecret"))

	env.svc.Lock(ctx)
	assert.Equal(t, domain.ErrInvalidPassphrase, env.svc.Unlock(ctx, "secret"))
	require.NoError(t, env.svc.Unlock(ctx, "newsecret"))

	err = env.svc.DeleteWallet(ctx, "secret")
	assert.Equal(t, domain.ErrInvalidPassphrase, err)
	require.NoError(t, env.svc.DeleteWallet(ctx, "newsecret"))

	assert.True(t, env.svc.IsLocked())
	_, err = env.svc.walletRepo.GetWallet(ctx)
	assert.Equal(t, domain.ErrWalletNotFound, err)
	assert.Equal(t, ErrWalletNotInitialized, env.svc.Unlock(ctx, "newsecret"))

	// the utxo set and the history are gone with the wallet
	all, err := env.repo.GetAllUtxos(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 0)
	history, err := env.svc.History(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 0)
}

func TestFailingUnlockBeforeInit(t *testing.T) {
	env := newTestEnv(t)
	err := env.svc.Unlock(ctx, "secret")
	assert.Equal(t, ErrWalletNotInitialized, err)
}

func TestNewAddressAdvancesFrontier(t *testing.T) {
	env := newTestEnv(t)
	env.initWallet(t)

	first, err := env.svc.NewAddress(ctx)
	require.NoError(t, err)
	second, err := env.svc.NewAddress(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	stored, err := env.svc.walletRepo.GetWallet(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.NextIndex(domain.ExternalChain))
	assert.Equal(t, 0, stored.NextIndex(domain.InternalChain))
}

func TestDiscoverHonorsGapLimit(t *testing.T) {
	env := newTestEnv(t)
	env.initWallet(t)

	// mark external indexes 0 and 3 as used on chain
	w, err := wallet.NewWalletFromMnemonic(wallet.NewWalletFromMnemonicOpts{
		Mnemonic: testMnemonic,
		CoinType: wallet.CoinTypeStandard,
	})
	require.NoError(t, err)
	for _, index := range []int{0, 3} {
		_, script, err := w.DeriveAddress(wallet.DeriveAddressOpts{
			DerivationPath: wallet.AddressDerivationPath(wallet.ExternalChain, index),
			Network:        testNetwork,
		})
		require.NoError(t, err)
		scriptHash, err := wallet.ScriptHash(script)
		require.NoError(t, err)
		env.chain.history[scriptHash] = []electrum.HistoryItem{
			{TxHash: "ff", Height: 0},
		}
		env.chain.rawTxs["ff"] = unrelatedTxHex(t)
	}

	lastProbed := map[domain.Chain]int{}
	require.NoError(t, env.svc.Discover(
		ctx,
		func(chain domain.Chain, index int, _ bool) {
			lastProbed[chain] = index
		},
	))

	stored, err := env.svc.walletRepo.GetWallet(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.NextIndex(domain.ExternalChain))
	assert.Equal(t, 0, stored.NextIndex(domain.InternalChain))

	// the scan stops 5 empties past the last active index of each chain
	assert.Equal(t, 8, lastProbed[domain.ExternalChain])
	assert.Equal(t, 4, lastProbed[domain.InternalChain])
}

func TestSendSpendsAndRecords(t *testing.T) {
	env := newTestEnv(t)
	env.initWallet(t)
	env.seedUtxo(t, 50000, 0)

	result, err := env.svc.Send(ctx, SendOpts{
		Address:     foreignAddress(t),
		Amount:      20000,
		SatsPerByte: 1,
	})
	require.NoError(t, err)
	assert.Len(t, result.TxID, 64)
	assert.Greater(t, result.Fee, uint64(0))
	assert.Equal(t, uint64(50000), result.Amount+result.Fee+result.Change)

	available, err := env.repo.GetAvailableUtxos(ctx)
	require.NoError(t, err)
	assert.Len(t, available, 0)

	history, err := env.svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.TxTypeSend, history[0].Type)
	assert.Equal(t, uint64(20000), history[0].Amount)
	assert.True(t, history[0].Pending)
}

func TestFailedSendReleasesCoins(t *testing.T) {
	env := newTestEnv(t)
	env.initWallet(t)
	env.seedUtxo(t, 50000, 0)
	env.chain.rejectBroadcast = true

	_, err := env.svc.Send(ctx, SendOpts{
		Address:     foreignAddress(t),
		Amount:      20000,
		SatsPerByte: 1,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTxRejected))

	available, err := env.repo.GetAvailableUtxos(ctx)
	require.NoError(t, err)
	assert.Len(t, available, 1)

	history, err := env.svc.History(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 0)
}

func TestSendSubtractFeeKeepsOutflowExact(t *testing.T) {
	env := newTestEnv(t)
	env.initWallet(t)
	env.seedUtxo(t, 50000, 0)

	result, err := env.svc.Send(ctx, SendOpts{
		Address:               foreignAddress(t),
		Amount:                50000,
		SatsPerByte:           1,
		SubtractFeeFromAmount: true,
	})
	require.NoError(t, err)

	// the total outflow equals exactly the requested amount
	assert.Equal(t, uint64(50000), result.Amount+result.Fee)
	assert.Equal(t, uint64(0), result.Change)
}

func TestFailingSendInsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	env.initWallet(t)
	env.seedUtxo(t, 10000, 0)

	_, err := env.svc.Send(ctx, SendOpts{
		Address:     foreignAddress(t),
		Amount:      20000,
		SatsPerByte: 1,
	})
	require.Error(t, err)

	var insufficientErr *coinselect.InsufficientFundsError
	assert.True(t, errors.As(err, &insufficientErr))

	// nothing got reserved
	available, err := env.repo.GetAvailableUtxos(ctx)
	require.NoError(t, err)
	assert.Len(t, available, 1)
}

func TestSweepDustPinsChangeAddress(t *testing.T) {
	env := newTestEnv(t)
	env.initWallet(t)
	env.seedUtxo(t, 600, 0)
	env.seedUtxo(t, 700, 1)
	env.seedUtxo(t, 50000, 2)

	// nothing derived on the internal chain yet
	_, err := env.svc.ChangeAddressAt(ctx, 0)
	assert.Equal(t, ErrNotDiscovered, err)

	pinned, err := env.svc.NewChangeAddress(ctx)
	require.NoError(t, err)
	index := 0

	result, err := env.svc.SweepDust(ctx, SweepDustOpts{
		SatsPerByte: 1,
		Threshold:   1000,
		ChangeIndex: &index,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1300), result.Amount+result.Fee)

	// the consolidation pays the pinned address, no fresh one is derived
	resolved, err := env.svc.ChangeAddressAt(ctx, index)
	require.NoError(t, err)
	assert.Equal(t, pinned, resolved)
	stored, err := env.svc.walletRepo.GetWallet(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.NextIndex(domain.InternalChain))

	// the non-dust coin stays untouched
	available, err := env.repo.GetAvailableUtxos(ctx)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, uint64(50000), available[0].Value)

	// a consolidation pays the wallet itself: one send and one receive
	history, err := env.svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	types := make(map[domain.TxType]bool)
	for _, entry := range history {
		assert.True(t, entry.SelfTransfer)
		types[entry.Type] = true
	}
	assert.True(t, types[domain.TxTypeSend])
	assert.True(t, types[domain.TxTypeReceive])
}

func TestSelfTransferRecordsSendAndReceivePair(t *testing.T) {
	env := newTestEnv(t)
	env.initWallet(t)
	funded := env.seedUtxo(t, 10000, 0)

	// a second address of ours receives the whole amount minus fee
	destination, err := env.svc.NewAddress(ctx)
	require.NoError(t, err)
	stored, err := env.svc.walletRepo.GetWallet(ctx)
	require.NoError(t, err)
	var destInfo domain.AddressInfo
	for _, i := range stored.AllAddresses() {
		if i.Address == destination {
			destInfo = i
		}
	}
	require.NotEmpty(t, destInfo.ScriptHash)

	tx := wire.NewMsgTx(wire.TxVersion)
	prevHash, _ := chainhash.NewHashFromStr(funded.TxID)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(prevHash, funded.VOut), nil, nil))
	tx.AddTxOut(wire.NewTxOut(9800, destInfo.Script))

	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))
	txid := tx.TxHash().String()
	env.chain.rawTxs[txid] = hex.EncodeToString(buf.Bytes())
	env.chain.history[funded.ScriptHash] = []electrum.HistoryItem{
		{TxHash: txid, Height: 100},
	}
	env.chain.history[destInfo.ScriptHash] = []electrum.HistoryItem{
		{TxHash: txid, Height: 100},
	}

	var progressMtx sync.Mutex
	progressCalls, lastTotal := 0, 0
	progress := func(_ string, _, total int) {
		progressMtx.Lock()
		defer progressMtx.Unlock()
		progressCalls++
		lastTotal = total
	}

	require.NoError(t, env.svc.Sync(ctx, progress))
	assert.Equal(t, 2, progressCalls)
	assert.Equal(t, 2, lastTotal)

	history, err := env.svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	byType := make(map[domain.TxType]domain.Transaction)
	for _, entry := range history {
		byType[entry.Type] = entry
	}

	sent, ok := byType[domain.TxTypeSend]
	require.True(t, ok)
	assert.True(t, sent.SelfTransfer)
	assert.Equal(t, uint64(9800), sent.Amount)
	assert.Equal(t, uint64(200), sent.Fee)
	assert.False(t, sent.Pending)

	received, ok := byType[domain.TxTypeReceive]
	require.True(t, ok)
	assert.True(t, received.SelfTransfer)
	assert.Equal(t, uint64(9800), received.Amount)
	assert.False(t, received.Pending)
}

// unrelatedTxHex is a well-formed transaction spending and paying nothing of
// the wallet's.
func unrelatedTxHex(t *testing.T) string {
	prevHash, err := chainhash.NewHashFromStr(
		"aa8275058e299fcc0381534545f55cf43e41983f5d4c94565df6e0e276135aa9",
	)
	require.NoError(t, err)
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(prevHash, 0), nil, nil))
	tx.AddTxOut(wire.NewTxOut(1000, []byte{0x6a}))
	return txHex(t, tx)
}

func txHex(t *testing.T, tx *wire.MsgTx) string {
	var buf bytes.Buffer
	require.NoError(t, tx.Serialize(&buf))
	return hex.EncodeToString(buf.Bytes())
}

func TestRestoredSendRecordsSend(t *testing.T) {
	env := newTestEnv(t)
	env.initWallet(t)

	// the addresses a restore would have rediscovered; the coins they held
	// were spent long ago so the utxo set knows nothing about them
	_, err := env.svc.NewAddress(ctx)
	require.NoError(t, err)
	_, err = env.svc.NewChangeAddress(ctx)
	require.NoError(t, err)
	stored, err := env.svc.walletRepo.GetWallet(ctx)
	require.NoError(t, err)
	addresses := stored.AllAddresses()
	require.Len(t, addresses, 2)
	funding, change := addresses[0], addresses[1]

	// the old funding tx paid the wallet 10000
	outpointHash, err := chainhash.NewHashFromStr(
		"5df6e0e2761359d30a8275058e299fcc0381534545f55cf43e41983f5d4c9456",
	)
	require.NoError(t, err)
	fundingTx := wire.NewMsgTx(wire.TxVersion)
	fundingTx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(outpointHash, 0), nil, nil))
	fundingTx.AddTxOut(wire.NewTxOut(10000, funding.Script))

	// the old send paid a foreign address 8000 with 1800 change back
	fundingHash := fundingTx.TxHash()
	sendTx := wire.NewMsgTx(wire.TxVersion)
	sendTx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&fundingHash, 0), nil, nil))
	sendTx.AddTxOut(wire.NewTxOut(8000, foreignScript(t)))
	sendTx.AddTxOut(wire.NewTxOut(1800, change.Script))

	sendTxid := sendTx.TxHash().String()
	env.chain.rawTxs[fundingHash.String()] = txHex(t, fundingTx)
	env.chain.rawTxs[sendTxid] = txHex(t, sendTx)
	env.chain.history[change.ScriptHash] = []electrum.HistoryItem{
		{TxHash: sendTxid, Height: 90},
	}

	require.NoError(t, env.svc.Sync(ctx, nil))

	// the spent inputs were ours, so this is a send of the foreign amount,
	// not a receive of the change
	history, err := env.svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.TxTypeSend, history[0].Type)
	assert.Equal(t, uint64(8000), history[0].Amount)
	assert.Equal(t, uint64(200), history[0].Fee)
	assert.False(t, history[0].SelfTransfer)
}

func TestSyncSkipsUnparseableTransaction(t *testing.T) {
	env := newTestEnv(t)
	env.initWallet(t)
	utxo := env.seedUtxo(t, 10000, 0)

	env.chain.history[utxo.ScriptHash] = []electrum.HistoryItem{
		{TxHash: "bad", Height: 10},
	}
	env.chain.rawTxs["bad"] = "not-a-transaction"

	// a transaction that cannot be classified is skipped, not fatal
	require.NoError(t, env.svc.Sync(ctx, nil))

	history, err := env.svc.History(ctx)
	require.NoError(t, err)
	assert.Len(t, history, 0)
}

func TestFailingSendDustAmount(t *testing.T) {
	env := newTestEnv(t)
	env.initWallet(t)
	env.seedUtxo(t, 50000, 0)

	_, err := env.svc.Send(ctx, SendOpts{
		Address:     foreignAddress(t),
		Amount:      400,
		SatsPerByte: 1,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, wallet.ErrDustOutput))

	// nothing got reserved
	available, err := env.repo.GetAvailableUtxos(ctx)
	require.NoError(t, err)
	assert.Len(t, available, 1)
}

func TestSeedPassphraseSaltsDerivation(t *testing.T) {
	plain := newTestEnv(t)
	require.NoError(t, plain.svc.InitWallet(ctx, InitWalletOpts{
		Mnemonic:   testMnemonic,
		Passphrase: "secret",
		CoinType:   wallet.CoinTypeStandard,
	}))
	plainAddr, err := plain.svc.NewAddress(ctx)
	require.NoError(t, err)

	salted := newTestEnv(t)
	require.NoError(t, salted.svc.InitWallet(ctx, InitWalletOpts{
		Mnemonic:       testMnemonic,
		Passphrase:     "secret",
		SeedPassphrase: "trezor",
		CoinType:       wallet.CoinTypeStandard,
	}))
	saltedAddr, err := salted.svc.NewAddress(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, plainAddr, saltedAddr)

	// unlocking restores the salted derivation
	salted.svc.Lock(ctx)
	require.NoError(t, salted.svc.Unlock(ctx, "secret"))
	unlocked, err := salted.svc.NewAddress(ctx)
	require.NoError(t, err)

	w, err := wallet.NewWalletFromMnemonic(wallet.NewWalletFromMnemonicOpts{
		Mnemonic:   testMnemonic,
		Passphrase: "trezor",
		CoinType:   wallet.CoinTypeStandard,
	})
	require.NoError(t, err)
	expected, _, err := w.DeriveAddress(wallet.DeriveAddressOpts{
		DerivationPath: wallet.AddressDerivationPath(wallet.ExternalChain, 1),
		Network:        testNetwork,
	})
	require.NoError(t, err)
	assert.Equal(t, expected, unlocked)

	// the seed passphrase survives a storage passphrase rotation
	require.NoError(t, salted.svc.ChangePassphrase(ctx, "secret", "next"))
	salted.svc.Lock(ctx)
	require.NoError(t, salted.svc.Unlock(ctx, "next"))
	again, err := salted.svc.NewAddress(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, unlocked, again)
}

func TestImportWIFWallet(t *testing.T) {
	env := newTestEnv(t)

	w, err := wallet.NewWalletFromMnemonic(wallet.NewWalletFromMnemonicOpts{
		Mnemonic: testMnemonic,
		CoinType: wallet.CoinTypeStandard,
	})
	require.NoError(t, err)
	wif, err := w.ExportWIF(wallet.ExportWIFOpts{
		DerivationPath: wallet.AddressDerivationPath(wallet.ExternalChain, 0),
		Network:        testNetwork,
	})
	require.NoError(t, err)
	expectedAddr, _, err := w.DeriveAddress(wallet.DeriveAddressOpts{
		DerivationPath: wallet.AddressDerivationPath(wallet.ExternalChain, 0),
		Network:        testNetwork,
	})
	require.NoError(t, err)

	require.NoError(t, env.svc.InitWalletFromWIF(ctx, InitWalletFromWIFOpts{
		WIF:        wif,
		Passphrase: "secret",
		Name:       "imported",
	}))

	addresses, err := env.svc.ListAddresses(ctx)
	require.NoError(t, err)
	require.Len(t, addresses, 1)
	assert.Equal(t, expectedAddr, addresses[0].Address)
	assert.Equal(t, wallet.SingleKeyPath, addresses[0].DerivationPath)

	// the single key cannot derive further addresses
	_, err = env.svc.NewAddress(ctx)
	assert.ErrorIs(t, err, wallet.ErrSingleKeyWallet)

	env.svc.Lock(ctx)
	require.NoError(t, env.svc.Unlock(ctx, "secret"))

	// spending signs with the imported key, change goes back to the
	// wallet's only address
	info := addresses[0]
	count, err := env.repo.AddUtxos(ctx, []domain.Utxo{{
		UtxoKey: domain.UtxoKey{
			TxID: "5df6e0e2761359d30a8275058e299fcc0381534545f55cf43e41983f5d4c9456",
			VOut: 0,
		},
		Value:          50000,
		Address:        info.Address,
		Script:         info.Script,
		ScriptHash:     info.ScriptHash,
		DerivationPath: info.DerivationPath,
		Confirmed:      true,
	}})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	result, err := env.svc.Send(ctx, SendOpts{
		Address:     foreignAddress(t),
		Amount:      20000,
		SatsPerByte: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(50000), result.Amount+result.Fee+result.Change)
}

func TestDefaultGapLimitApplies(t *testing.T) {
	opts := ServiceOpts{
		WalletRepository:      inmemory.NewWalletRepositoryImpl(),
		UtxoRepository:        inmemory.NewUtxoRepositoryImpl(),
		TransactionRepository: inmemory.NewTransactionRepositoryImpl(),
		Blockchain:            newFakeChain(),
		Network:               testNetwork,
		DustThreshold:         546,
	}

	svc, err := NewService(opts)
	require.NoError(t, err)
	assert.Equal(t, defaultGapLimit, svc.gapLimit)

	opts.GapLimit = 21
	_, err = NewService(opts)
	require.Error(t, err)
}
