package application

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/wire"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/faro-wallet/faro-daemon/internal/core/domain"
	"github.com/faro-wallet/faro-daemon/pkg/wallet"
)

const maxConcurrentSyncs = 4

// History returns the wallet history, most recent first.
func (s *Service) History(ctx context.Context) ([]domain.Transaction, error) {
	return s.txRepo.GetAllTransactions(ctx)
}

// Sync refreshes the utxo set and the history of every derived address.
// Addresses are synced concurrently, bounded to not flood the server. The
// optional progress callback is invoked once per synced address, possibly
// from concurrent goroutines.
func (s *Service) Sync(ctx context.Context, progress SyncProgress) error {
	stored, err := s.walletRepo.GetWallet(ctx)
	if err != nil {
		return err
	}

	addresses := stored.AllAddresses()
	total := len(addresses)
	synced := int32(0)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSyncs)
	for _, info := range addresses {
		address, scriptHash := info.Address, info.ScriptHash
		g.Go(func() error {
			if err := s.syncScriptHash(gctx, scriptHash); err != nil {
				return err
			}
			if progress != nil {
				progress(address, int(atomic.AddInt32(&synced, 1)), total)
			}
			return nil
		})
	}
	return g.Wait()
}

// syncScriptHash reconciles the stored utxos and history entries of one
// watched script hash with what the server reports.
func (s *Service) syncScriptHash(ctx context.Context, scriptHash string) error {
	stored, err := s.walletRepo.GetWallet(ctx)
	if err != nil {
		return err
	}
	info, ok := stored.AddressByScriptHash(scriptHash)
	if !ok {
		log.Warnf("skipped sync of unknown script hash %s", scriptHash)
		return nil
	}

	unspents, err := s.chain.ListUnspent(ctx, scriptHash)
	if err != nil {
		return err
	}
	utxos := make([]domain.Utxo, 0, len(unspents))
	for _, u := range unspents {
		utxos = append(utxos, domain.Utxo{
			UtxoKey:        domain.UtxoKey{TxID: u.TxHash, VOut: u.TxPos},
			Value:          u.Value,
			Address:        info.Address,
			Script:         info.Script,
			ScriptHash:     scriptHash,
			DerivationPath: info.DerivationPath,
			Confirmed:      u.Height > 0,
		})
	}
	if err := s.utxoRepo.ReplaceUtxosForScriptHash(
		ctx, scriptHash, utxos,
	); err != nil {
		return err
	}

	history, err := s.chain.GetHistory(ctx, scriptHash)
	if err != nil {
		return err
	}
	for _, item := range history {
		if err := s.reconcileHistoryItem(
			ctx, stored, item.TxHash, item.Height, item.Fee,
		); err != nil {
			// one unclassifiable transaction must not abort the whole scan
			log.WithError(err).Warnf(
				"failed to reconcile transaction %s", item.TxHash,
			)
		}
	}
	return nil
}

func (s *Service) reconcileHistoryItem(
	ctx context.Context, stored *domain.Wallet,
	txid string, height int32, serverFee uint64,
) error {
	existing, err := s.txRepo.GetTransactionsForTxID(ctx, txid)
	if err != nil && !errors.Is(err, domain.ErrTransactionNotFound) {
		return err
	}

	if len(existing) > 0 {
		// already classified, only the confirmation can change
		if height > 0 && existing[0].Height != height {
			if err := s.txRepo.ConfirmTransaction(ctx, txid, height); err != nil {
				return err
			}
		}
		return nil
	}

	entries, err := s.classifyTransaction(ctx, stored, txid, serverFee)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		entry.Height = height
		entry.Pending = height <= 0
		if err := s.txRepo.AddOrUpdateTransaction(ctx, &entry); err != nil {
			return err
		}
	}
	return nil
}

// classifyTransaction parses a raw transaction and derives its history
// entries from the wallet's point of view. A transaction whose outputs all
// pay the wallet while spending the wallet's own coins is a self transfer
// and yields a flagged send/receive pair.
func (s *Service) classifyTransaction(
	ctx context.Context, stored *domain.Wallet, txid string, serverFee uint64,
) ([]domain.Transaction, error) {
	rawHex, err := s.chain.GetRawTransaction(ctx, txid)
	if err != nil {
		return nil, err
	}
	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		return nil, err
	}
	tx := &wire.MsgTx{}
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, err
	}

	allUtxos, err := s.utxoRepo.GetAllUtxos(ctx)
	if err != nil {
		return nil, err
	}
	utxoByKey := make(map[domain.UtxoKey]domain.Utxo, len(allUtxos))
	for _, u := range allUtxos {
		utxoByKey[u.Key()] = u
	}

	oursIn, allInputsOurs := uint64(0), true
	for _, in := range tx.TxIn {
		key := domain.UtxoKey{
			TxID: in.PreviousOutPoint.Hash.String(),
			VOut: in.PreviousOutPoint.Index,
		}
		if u, ok := utxoByKey[key]; ok {
			oursIn += u.Value
			continue
		}
		// inputs spent before a restore never entered the utxo set, their
		// ownership is resolved from the funding transaction's scripts
		value, ours, err := s.resolvePrevout(ctx, stored, in.PreviousOutPoint)
		if err != nil {
			log.WithError(err).Debugf(
				"could not resolve prevout %s:%d", key.TxID, key.VOut,
			)
			allInputsOurs = false
			continue
		}
		if !ours {
			allInputsOurs = false
			continue
		}
		oursIn += value
	}

	oursOut, othersOut, totalOut := uint64(0), uint64(0), uint64(0)
	for _, out := range tx.TxOut {
		totalOut += uint64(out.Value)
		scriptHash, err := wallet.ScriptHash(out.PkScript)
		if err != nil {
			return nil, err
		}
		if _, ok := stored.DerivationPathOfScript(scriptHash); ok {
			oursOut += uint64(out.Value)
		} else {
			othersOut += uint64(out.Value)
		}
	}

	fee := serverFee
	if allInputsOurs && oursIn >= totalOut {
		fee = oursIn - totalOut
	}
	now := time.Now().Unix()

	if oursIn > 0 && othersOut == 0 {
		return []domain.Transaction{
			{
				TxID:         txid,
				Type:         domain.TxTypeSend,
				Amount:       oursOut,
				Fee:          fee,
				Timestamp:    now,
				SelfTransfer: true,
			},
			{
				TxID:         txid,
				Type:         domain.TxTypeReceive,
				Amount:       oursOut,
				Timestamp:    now,
				SelfTransfer: true,
			},
		}, nil
	}

	entries := make([]domain.Transaction, 0, 2)
	if oursIn > 0 {
		entries = append(entries, domain.Transaction{
			TxID:      txid,
			Type:      domain.TxTypeSend,
			Amount:    othersOut,
			Fee:       fee,
			Timestamp: now,
		})
	}
	if oursIn == 0 && oursOut > 0 {
		entries = append(entries, domain.Transaction{
			TxID:      txid,
			Type:      domain.TxTypeReceive,
			Amount:    oursOut,
			Timestamp: now,
		})
	}
	return entries, nil
}

// resolvePrevout fetches the transaction funding the given outpoint and
// returns the value of the spent output along with whether one of the
// wallet's scripts owns it.
func (s *Service) resolvePrevout(
	ctx context.Context, stored *domain.Wallet, outpoint wire.OutPoint,
) (uint64, bool, error) {
	rawHex, err := s.chain.GetRawTransaction(ctx, outpoint.Hash.String())
	if err != nil {
		return 0, false, err
	}
	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		return 0, false, err
	}
	prev := &wire.MsgTx{}
	if err := prev.Deserialize(bytes.NewReader(raw)); err != nil {
		return 0, false, err
	}
	if int(outpoint.Index) >= len(prev.TxOut) {
		return 0, false, fmt.Errorf(
			"prevout index %d out of range", outpoint.Index,
		)
	}

	out := prev.TxOut[outpoint.Index]
	scriptHash, err := wallet.ScriptHash(out.PkScript)
	if err != nil {
		return 0, false, err
	}
	_, ours := stored.DerivationPathOfScript(scriptHash)
	return uint64(out.Value), ours, nil
}
