package application

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/faro-wallet/faro-daemon/internal/core/domain"
	"github.com/faro-wallet/faro-daemon/pkg/wallet"
)

// NewAddress derives the next unused external address, persists it and puts
// it under watch.
func (s *Service) NewAddress(ctx context.Context) (string, error) {
	info, err := s.deriveNext(ctx, domain.ExternalChain)
	if err != nil {
		return "", err
	}
	s.watchAddress(info)
	return info.Address, nil
}

// NewChangeAddress derives the next unused internal address, persists it and
// puts it under watch. Send uses it for change when no pinned change address
// is configured.
func (s *Service) NewChangeAddress(ctx context.Context) (string, error) {
	info, err := s.deriveNext(ctx, domain.InternalChain)
	if err != nil {
		return "", err
	}
	s.watchAddress(info)
	return info.Address, nil
}

// ChangeAddressAt returns the internal address already derived at the given
// index. Indexes beyond the frontier must be derived with NewChangeAddress
// first.
func (s *Service) ChangeAddressAt(ctx context.Context, index int) (string, error) {
	if _, err := s.signingWalletOrErr(); err != nil {
		return "", err
	}
	stored, err := s.walletRepo.GetWallet(ctx)
	if err != nil {
		return "", err
	}
	for _, info := range stored.ChainAddresses(domain.InternalChain) {
		if info.Index == index {
			return info.Address, nil
		}
	}
	return "", ErrNotDiscovered
}

// ListAddresses returns the external addresses derived so far.
func (s *Service) ListAddresses(ctx context.Context) ([]domain.AddressInfo, error) {
	stored, err := s.walletRepo.GetWallet(ctx)
	if err != nil {
		return nil, err
	}
	return stored.ChainAddresses(domain.ExternalChain), nil
}

// Discover scans both chains of the wallet for used addresses. An address is
// active when the server reports any history for its script hash; scanning a
// chain stops after gap limit consecutive inactive addresses past the last
// active one. Every active address is persisted, synced and put under watch.
func (s *Service) Discover(ctx context.Context, progress DiscoveryProgress) error {
	signingWallet, err := s.signingWalletOrErr()
	if err != nil {
		return err
	}

	// a single-key wallet has no chains to scan, only its one address
	if signingWallet.IsSingleKey() {
		stored, err := s.walletRepo.GetWallet(ctx)
		if err != nil {
			return err
		}
		for _, info := range stored.AllAddresses() {
			if progress != nil {
				progress(info.Chain, info.Index, true)
			}
			if err := s.syncScriptHash(ctx, info.ScriptHash); err != nil {
				return err
			}
			s.watchAddress(info)
		}
		return nil
	}

	for _, chain := range []domain.Chain{
		domain.ExternalChain, domain.InternalChain,
	} {
		if err := s.discoverChain(ctx, signingWallet, chain, progress); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) discoverChain(
	ctx context.Context, signingWallet *wallet.Wallet,
	chain domain.Chain, progress DiscoveryProgress,
) error {
	consecutiveEmpty := 0
	for index := 0; consecutiveEmpty < s.gapLimit; index++ {
		info, err := s.deriveAt(signingWallet, chain, index)
		if err != nil {
			return err
		}

		history, err := s.chain.GetHistory(ctx, info.ScriptHash)
		if err != nil {
			return err
		}
		active := len(history) > 0
		if progress != nil {
			progress(chain, index, active)
		}
		if !active {
			consecutiveEmpty++
			continue
		}
		consecutiveEmpty = 0

		if err := s.walletRepo.UpdateWallet(
			ctx,
			func(w *domain.Wallet) (*domain.Wallet, error) {
				w.AddAddress(info)
				return w, nil
			},
		); err != nil {
			return err
		}
		if err := s.syncScriptHash(ctx, info.ScriptHash); err != nil {
			return err
		}
		s.watchAddress(info)
		log.Debugf(
			"discovered active address %s at chain %d index %d",
			info.Address, chain, index,
		)
	}
	return nil
}

// deriveNext derives the address at the frontier of the given chain and
// advances the frontier.
func (s *Service) deriveNext(
	ctx context.Context, chain domain.Chain,
) (domain.AddressInfo, error) {
	signingWallet, err := s.signingWalletOrErr()
	if err != nil {
		return domain.AddressInfo{}, err
	}

	var info domain.AddressInfo
	if err := s.walletRepo.UpdateWallet(
		ctx,
		func(w *domain.Wallet) (*domain.Wallet, error) {
			derived, err := s.deriveAt(signingWallet, chain, w.NextIndex(chain))
			if err != nil {
				return nil, err
			}
			w.AddAddress(derived)
			info = derived
			return w, nil
		},
	); err != nil {
		return domain.AddressInfo{}, err
	}
	return info, nil
}

func (s *Service) deriveAt(
	signingWallet *wallet.Wallet, chain domain.Chain, index int,
) (domain.AddressInfo, error) {
	path := wallet.AddressDerivationPath(int(chain), index)
	address, script, err := signingWallet.DeriveAddress(wallet.DeriveAddressOpts{
		DerivationPath: path,
		Network:        s.network,
	})
	if err != nil {
		return domain.AddressInfo{}, err
	}
	scriptHash, err := wallet.ScriptHash(script)
	if err != nil {
		return domain.AddressInfo{}, err
	}

	return domain.AddressInfo{
		Address:        address,
		Script:         script,
		ScriptHash:     scriptHash,
		DerivationPath: path,
		Chain:          chain,
		Index:          index,
	}, nil
}
