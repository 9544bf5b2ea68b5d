package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/faro-wallet/faro-daemon/internal/core/domain"
	"github.com/faro-wallet/faro-daemon/pkg/coinselect"
	"github.com/faro-wallet/faro-daemon/pkg/electrum"
	"github.com/faro-wallet/faro-daemon/pkg/wallet"
)

func (o SendOpts) validate() error {
	if len(o.Address) <= 0 {
		return ErrNullAddress
	}
	if o.Amount == 0 {
		return ErrZeroAmount
	}
	if o.SatsPerByte <= 0 {
		return ErrZeroFeeRate
	}
	return nil
}

// Send funds, signs and broadcasts a payment to the given address. The
// selected coins are atomically reserved before the transaction is built and
// either spent on a successful broadcast or released on any failure, so a
// failed send never leaves coins stuck.
func (s *Service) Send(ctx context.Context, opts SendOpts) (*SendResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	signingWallet, err := s.signingWalletOrErr()
	if err != nil {
		return nil, err
	}
	// reject unrelayable payments before reserving any coin
	if opts.Amount < s.dustThreshold {
		return nil, fmt.Errorf(
			"%w (%d sats)", wallet.ErrDustOutput, s.dustThreshold,
		)
	}

	strategy := opts.Strategy
	if len(strategy) <= 0 {
		strategy = coinselect.BestFit
	}

	available, err := s.utxoRepo.GetAvailableUtxos(ctx)
	if err != nil {
		return nil, err
	}
	coins := make([]coinselect.Coin, 0, len(available))
	utxoByKey := make(map[domain.UtxoKey]domain.Utxo, len(available))
	for _, u := range available {
		coins = append(coins, coinselect.Coin{
			TxID:  u.TxID,
			VOut:  u.VOut,
			Value: u.Value,
		})
		utxoByKey[u.Key()] = u
	}

	selection, err := coinselect.Select(coinselect.SelectOpts{
		Coins:                 coins,
		Target:                opts.Amount,
		SatsPerByte:           opts.SatsPerByte,
		Strategy:              strategy,
		NumOutputs:            1,
		SubtractFeeFromTarget: opts.SubtractFeeFromAmount,
	})
	if err != nil {
		return nil, err
	}

	opID := uuid.New()
	keys := make([]domain.UtxoKey, 0, len(selection.Coins))
	for _, c := range selection.Coins {
		keys = append(keys, domain.UtxoKey{TxID: c.TxID, VOut: c.VOut})
	}
	if err := s.utxoRepo.LockUtxos(ctx, keys, opID); err != nil {
		return nil, err
	}

	result, err := s.buildSignBroadcast(
		ctx, signingWallet, opts, selection, keys, utxoByKey,
	)
	if err != nil {
		// release the reservation, the coins are spendable again
		if unlockErr := s.utxoRepo.UnlockUtxos(ctx, opID); unlockErr != nil {
			log.WithError(unlockErr).Error("failed to release locked utxos")
		}
		return nil, err
	}

	if err := s.utxoRepo.SpendUtxos(ctx, keys); err != nil {
		return nil, err
	}
	if err := s.txRepo.AddOrUpdateTransaction(ctx, &domain.Transaction{
		TxID:      result.TxID,
		Type:      domain.TxTypeSend,
		Amount:    result.Amount,
		Fee:       result.Fee,
		Timestamp: time.Now().Unix(),
		Pending:   true,
	}); err != nil {
		return nil, err
	}

	log.Infof("sent transaction %s", result.TxID)
	return result, nil
}

func (s *Service) buildSignBroadcast(
	ctx context.Context, signingWallet *wallet.Wallet, opts SendOpts,
	selection *coinselect.Selection, keys []domain.UtxoKey,
	utxoByKey map[domain.UtxoKey]domain.Utxo,
) (*SendResult, error) {
	inputs := make([]wallet.TxInput, 0, len(keys))
	for _, key := range keys {
		u := utxoByKey[key]
		inputs = append(inputs, wallet.TxInput{
			TxID:           u.TxID,
			VOut:           u.VOut,
			Value:          u.Value,
			Script:         u.Script,
			DerivationPath: u.DerivationPath,
		})
	}

	changeAddress := ""
	if selection.Change > 0 {
		addr, err := s.changeAddress(ctx, opts.ChangeIndex)
		if err != nil {
			return nil, err
		}
		changeAddress = addr
	}

	unsigned, err := wallet.NewUnsignedTransaction(wallet.NewUnsignedTransactionOpts{
		Inputs: inputs,
		Outputs: []wallet.TxOutput{
			{Address: opts.Address, Value: opts.Amount},
		},
		ChangeAddress:         changeAddress,
		ChangeAmount:          selection.Change,
		FeeAmount:             selection.Fee,
		SubtractFeeFromOutput: opts.SubtractFeeFromAmount,
		DustThreshold:         s.dustThreshold,
		Network:               s.network,
	})
	if err != nil {
		return nil, err
	}

	signed, err := signingWallet.SignTransaction(wallet.SignTransactionOpts{
		Unsigned: unsigned,
		Network:  s.network,
	})
	if err != nil {
		return nil, err
	}

	txid, err := s.chain.Broadcast(ctx, signed.Hex())
	if err != nil {
		var serverErr *electrum.ServerError
		if errors.As(err, &serverErr) {
			return nil, fmt.Errorf("%w: %s", ErrTxRejected, serverErr.Message)
		}
		return nil, err
	}

	amount := opts.Amount
	if opts.SubtractFeeFromAmount {
		amount -= unsigned.Fee()
	}
	change := selection.Change
	if !unsigned.HasChange() {
		change = 0
	}

	return &SendResult{
		TxID:   txid,
		Amount: amount,
		Fee:    unsigned.Fee(),
		Change: change,
	}, nil
}

// changeAddress resolves the change destination, either the pinned internal
// index or the next unused one. A single-key wallet cannot derive internal
// addresses, its change goes back to its only address.
func (s *Service) changeAddress(ctx context.Context, pinned *int) (string, error) {
	if signingWallet, err := s.signingWalletOrErr(); err == nil &&
		signingWallet.IsSingleKey() {
		stored, err := s.walletRepo.GetWallet(ctx)
		if err != nil {
			return "", err
		}
		if addresses := stored.AllAddresses(); len(addresses) > 0 {
			return addresses[0].Address, nil
		}
	}
	if pinned != nil {
		return s.ChangeAddressAt(ctx, *pinned)
	}
	return s.NewChangeAddress(ctx)
}

// SweepDustOpts is the struct given to SweepDust.
type SweepDustOpts struct {
	SatsPerByte float64
	// Threshold collects the available coins worth at most this many
	// satoshis.
	Threshold uint64
	// ChangeIndex pins the consolidation output to an already derived
	// internal address, so repeated sweeps do not fragment the wallet over
	// fresh addresses.
	ChangeIndex *int
}

// SweepDust consolidates every available coin worth at most the given
// threshold into a single output paying an internal address.
func (s *Service) SweepDust(
	ctx context.Context, opts SweepDustOpts,
) (*SendResult, error) {
	signingWallet, err := s.signingWalletOrErr()
	if err != nil {
		return nil, err
	}
	if opts.SatsPerByte <= 0 {
		return nil, ErrZeroFeeRate
	}

	available, err := s.utxoRepo.GetAvailableUtxos(ctx)
	if err != nil {
		return nil, err
	}
	coins := make([]coinselect.Coin, 0, len(available))
	utxoByKey := make(map[domain.UtxoKey]domain.Utxo, len(available))
	for _, u := range available {
		coins = append(coins, coinselect.Coin{
			TxID:  u.TxID,
			VOut:  u.VOut,
			Value: u.Value,
		})
		utxoByKey[u.Key()] = u
	}

	selection, err := coinselect.Select(coinselect.SelectOpts{
		Coins:              coins,
		SatsPerByte:        opts.SatsPerByte,
		Strategy:           coinselect.DustSweep,
		DustSweepThreshold: opts.Threshold,
	})
	if err != nil {
		return nil, err
	}

	opID := uuid.New()
	keys := make([]domain.UtxoKey, 0, len(selection.Coins))
	for _, c := range selection.Coins {
		keys = append(keys, domain.UtxoKey{TxID: c.TxID, VOut: c.VOut})
	}
	if err := s.utxoRepo.LockUtxos(ctx, keys, opID); err != nil {
		return nil, err
	}

	destination, err := s.changeAddress(ctx, opts.ChangeIndex)
	if err != nil {
		s.utxoRepo.UnlockUtxos(ctx, opID)
		return nil, err
	}

	result, err := s.buildSignBroadcast(
		ctx, signingWallet,
		SendOpts{
			Address:     destination,
			Amount:      selection.Change,
			SatsPerByte: opts.SatsPerByte,
		},
		&coinselect.Selection{Coins: selection.Coins, Fee: selection.Fee},
		keys, utxoByKey,
	)
	if err != nil {
		if unlockErr := s.utxoRepo.UnlockUtxos(ctx, opID); unlockErr != nil {
			log.WithError(unlockErr).Error("failed to release locked utxos")
		}
		return nil, err
	}

	if err := s.utxoRepo.SpendUtxos(ctx, keys); err != nil {
		return nil, err
	}
	// a sweep pays the wallet itself: record the send/receive pair
	now := time.Now().Unix()
	for _, entry := range []domain.Transaction{
		{
			TxID:         result.TxID,
			Type:         domain.TxTypeSend,
			Amount:       result.Amount,
			Fee:          result.Fee,
			Timestamp:    now,
			Pending:      true,
			SelfTransfer: true,
		},
		{
			TxID:         result.TxID,
			Type:         domain.TxTypeReceive,
			Amount:       result.Amount,
			Timestamp:    now,
			Pending:      true,
			SelfTransfer: true,
		},
	} {
		entry := entry
		if err := s.txRepo.AddOrUpdateTransaction(ctx, &entry); err != nil {
			return nil, err
		}
	}

	log.Infof("swept %d dust coins with transaction %s", len(keys), result.TxID)
	return result, nil
}
