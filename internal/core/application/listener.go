package application

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/faro-wallet/faro-daemon/internal/core/domain"
)

const syncTimeout = 2 * time.Minute

// StartWatching subscribes to the script hash of every derived address and
// keeps the utxo set and the history in sync with the notifications pushed
// by the server. Addresses derived later are put under watch as they appear.
func (s *Service) StartWatching(ctx context.Context) error {
	watchCtx, cancel := context.WithCancel(ctx)
	s.mtx.Lock()
	if s.watchCancel != nil {
		s.mtx.Unlock()
		cancel()
		return errors.New("already watching")
	}
	s.watchCtx = watchCtx
	s.watchCancel = cancel
	s.mtx.Unlock()

	stored, err := s.walletRepo.GetWallet(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			return nil
		}
		return err
	}

	for _, info := range stored.AllAddresses() {
		s.watch(watchCtx, info)
	}
	log.Infof("watching %d addresses", len(stored.AllAddresses()))
	return nil
}

// StopWatching cancels every subscription and waits for the watchers to
// drain.
func (s *Service) StopWatching() {
	s.mtx.Lock()
	cancel := s.watchCancel
	s.watchCancel = nil
	s.watchCtx = nil
	s.watched = make(map[string]struct{})
	s.mtx.Unlock()

	if cancel != nil {
		cancel()
	}
	s.watchWg.Wait()
}

// watchAddress puts a freshly derived address under watch, if watching is
// active.
func (s *Service) watchAddress(info domain.AddressInfo) {
	s.mtx.RLock()
	ctx := s.watchCtx
	s.mtx.RUnlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	s.watch(ctx, info)
}

func (s *Service) watch(ctx context.Context, info domain.AddressInfo) {
	s.mtx.Lock()
	if _, ok := s.watched[info.ScriptHash]; ok {
		s.mtx.Unlock()
		return
	}
	s.watched[info.ScriptHash] = struct{}{}
	s.mtx.Unlock()

	updates, err := s.chain.Subscribe(ctx, info.ScriptHash)
	if err != nil {
		log.WithError(err).Warnf("failed to watch address %s", info.Address)
		s.mtx.Lock()
		delete(s.watched, info.ScriptHash)
		s.mtx.Unlock()
		return
	}

	s.watchWg.Add(1)
	go func() {
		defer s.watchWg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-updates:
				syncCtx, cancel := context.WithTimeout(
					context.Background(), syncTimeout,
				)
				if err := s.syncScriptHash(syncCtx, info.ScriptHash); err != nil {
					log.WithError(err).Warnf(
						"failed to sync address %s", info.Address,
					)
				}
				cancel()
			}
		}
	}()
}
