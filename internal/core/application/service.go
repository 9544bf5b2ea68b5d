package application

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/chaincfg"
	log "github.com/sirupsen/logrus"

	"github.com/faro-wallet/faro-daemon/internal/core/domain"
	"github.com/faro-wallet/faro-daemon/pkg/wallet"
)

const defaultGapLimit = 20

// ServiceOpts is the struct given to NewService.
type ServiceOpts struct {
	WalletRepository      domain.WalletRepository
	UtxoRepository        domain.UtxoRepository
	TransactionRepository domain.TransactionRepository
	Blockchain            BlockchainService
	Network               *chaincfg.Params
	GapLimit              int
	DustThreshold         uint64
}

func (o ServiceOpts) validate() error {
	if o.WalletRepository == nil {
		return errors.New("wallet repository must not be null")
	}
	if o.UtxoRepository == nil {
		return errors.New("utxo repository must not be null")
	}
	if o.TransactionRepository == nil {
		return errors.New("transaction repository must not be null")
	}
	if o.Blockchain == nil {
		return errors.New("blockchain service must not be null")
	}
	if o.Network == nil {
		return wallet.ErrNullNetwork
	}
	if o.GapLimit < 1 || o.GapLimit > 20 {
		return errors.New("gap limit must be between 1 and 20")
	}
	return nil
}

// Service is the wallet engine. It orchestrates key derivation, utxo
// tracking, coin selection, transaction construction and the blockchain
// backend behind a single lockable facade. The decrypted signing wallet
// lives only in memory and only while unlocked.
type Service struct {
	walletRepo domain.WalletRepository
	utxoRepo   domain.UtxoRepository
	txRepo     domain.TransactionRepository
	chain      BlockchainService

	network       *chaincfg.Params
	gapLimit      int
	dustThreshold uint64

	mtx           sync.RWMutex
	signingWallet *wallet.Wallet

	watchCtx    context.Context
	watchCancel context.CancelFunc
	watched     map[string]struct{}
	watchWg     sync.WaitGroup
}

// NewService returns a new wallet engine.
func NewService(opts ServiceOpts) (*Service, error) {
	if opts.GapLimit == 0 {
		opts.GapLimit = defaultGapLimit
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	return &Service{
		walletRepo:    opts.WalletRepository,
		utxoRepo:      opts.UtxoRepository,
		txRepo:        opts.TransactionRepository,
		chain:         opts.Blockchain,
		network:       opts.Network,
		gapLimit:      opts.GapLimit,
		dustThreshold: opts.DustThreshold,
		watched:       make(map[string]struct{}),
	}, nil
}

// GenSeed returns a new random mnemonic, never touching the storage.
func (s *Service) GenSeed(_ context.Context) ([]string, error) {
	return wallet.NewMnemonic(wallet.NewMnemonicOpts{EntropySize: 128})
}

// InitWalletOpts is the struct given to InitWallet.
type InitWalletOpts struct {
	Mnemonic   []string
	Passphrase string
	// SeedPassphrase is the optional BIP39 passphrase salting the seed. It
	// is independent from Passphrase, which only protects the storage.
	SeedPassphrase string
	Name           string
	CoinType       wallet.CoinType
	// Restore triggers the chain discovery of the wallet's used addresses
	// right after initialization.
	Restore  bool
	Progress DiscoveryProgress
}

// InitWallet creates the persisted wallet from a mnemonic: the mnemonic and
// the optional seed passphrase are encrypted with the passphrase before
// hitting the storage and the wallet is left in the unlocked state. With
// Restore set, the used addresses of both chains are discovered from the
// blockchain.
func (s *Service) InitWallet(ctx context.Context, opts InitWalletOpts) error {
	signingWallet, err := wallet.NewWalletFromMnemonic(wallet.NewWalletFromMnemonicOpts{
		Mnemonic:   opts.Mnemonic,
		Passphrase: opts.SeedPassphrase,
		CoinType:   opts.CoinType,
	})
	if err != nil {
		return err
	}

	mnemonic := strings.Join(opts.Mnemonic, " ")
	encrypted, err := wallet.Encrypt(wallet.EncryptOpts{
		PlainText:  mnemonic,
		Passphrase: opts.Passphrase,
	})
	if err != nil {
		return err
	}
	encryptedSeedPassphrase := ""
	if len(opts.SeedPassphrase) > 0 {
		encryptedSeedPassphrase, err = wallet.Encrypt(wallet.EncryptOpts{
			PlainText:  opts.SeedPassphrase,
			Passphrase: opts.Passphrase,
		})
		if err != nil {
			return err
		}
	}

	hash := passphraseHash(opts.Passphrase)
	if _, err := s.walletRepo.GetOrCreateWallet(ctx, &domain.Wallet{
		WalletID:                hex.EncodeToString(hash[:8]),
		Name:                    opts.Name,
		EncryptedMnemonic:       encrypted,
		EncryptedSeedPassphrase: encryptedSeedPassphrase,
		PassphraseHash:          hash,
		CoinType:                int(opts.CoinType),
	}); err != nil {
		return err
	}

	s.mtx.Lock()
	s.signingWallet = signingWallet
	s.mtx.Unlock()

	if opts.Restore {
		if err := s.Discover(ctx, opts.Progress); err != nil {
			return err
		}
	}
	log.Info("wallet initialized")
	return nil
}

// InitWalletFromWIFOpts is the struct given to InitWalletFromWIF.
type InitWalletFromWIFOpts struct {
	WIF        string
	Passphrase string
	Name       string
}

// InitWalletFromWIF creates the persisted wallet from a single WIF encoded
// private key. The wallet owns exactly one address, registered right away,
// and cannot derive further ones.
func (s *Service) InitWalletFromWIF(
	ctx context.Context, opts InitWalletFromWIFOpts,
) error {
	signingWallet, err := wallet.NewWalletFromWIF(wallet.NewWalletFromWIFOpts{
		WIF: opts.WIF,
	})
	if err != nil {
		return err
	}

	address, script, err := signingWallet.DeriveAddress(wallet.DeriveAddressOpts{
		DerivationPath: wallet.SingleKeyPath,
		Network:        s.network,
	})
	if err != nil {
		return err
	}
	scriptHash, err := wallet.ScriptHash(script)
	if err != nil {
		return err
	}

	encrypted, err := wallet.Encrypt(wallet.EncryptOpts{
		PlainText:  opts.WIF,
		Passphrase: opts.Passphrase,
	})
	if err != nil {
		return err
	}

	hash := passphraseHash(opts.Passphrase)
	newWallet := &domain.Wallet{
		WalletID:          hex.EncodeToString(hash[:8]),
		Name:              opts.Name,
		EncryptedMnemonic: encrypted,
		PassphraseHash:    hash,
		SingleKey:         true,
	}
	newWallet.AddAddress(domain.AddressInfo{
		Address:        address,
		Script:         script,
		ScriptHash:     scriptHash,
		DerivationPath: wallet.SingleKeyPath,
		Chain:          domain.ExternalChain,
		Index:          0,
	})
	if _, err := s.walletRepo.GetOrCreateWallet(ctx, newWallet); err != nil {
		return err
	}

	s.mtx.Lock()
	s.signingWallet = signingWallet
	s.mtx.Unlock()
	log.Info("wallet imported from private key")
	return nil
}

// Unlock decrypts the stored mnemonic with the given passphrase and loads
// the signing wallet in memory.
func (s *Service) Unlock(ctx context.Context, passphrase string) error {
	stored, err := s.walletRepo.GetWallet(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			return ErrWalletNotInitialized
		}
		return err
	}

	hash := passphraseHash(passphrase)
	if subtle.ConstantTimeCompare(hash, stored.PassphraseHash) != 1 {
		return domain.ErrInvalidPassphrase
	}

	secret, err := wallet.Decrypt(wallet.DecryptOpts{
		CypherText: stored.EncryptedMnemonic,
		Passphrase: passphrase,
	})
	if err != nil {
		return domain.ErrInvalidPassphrase
	}

	var signingWallet *wallet.Wallet
	if stored.SingleKey {
		signingWallet, err = wallet.NewWalletFromWIF(wallet.NewWalletFromWIFOpts{
			WIF: secret,
		})
	} else {
		seedPassphrase := ""
		if len(stored.EncryptedSeedPassphrase) > 0 {
			seedPassphrase, err = wallet.Decrypt(wallet.DecryptOpts{
				CypherText: stored.EncryptedSeedPassphrase,
				Passphrase: passphrase,
			})
			if err != nil {
				return domain.ErrInvalidPassphrase
			}
		}
		signingWallet, err = wallet.NewWalletFromMnemonic(wallet.NewWalletFromMnemonicOpts{
			Mnemonic:   strings.Split(secret, " "),
			Passphrase: seedPassphrase,
			CoinType:   wallet.CoinType(stored.CoinType),
		})
	}
	if err != nil {
		return err
	}

	s.mtx.Lock()
	s.signingWallet = signingWallet
	s.mtx.Unlock()
	log.Info("wallet unlocked")
	return nil
}

// Lock drops the in-memory signing wallet. Watching and balance tracking
// keep working, spending and address derivation do not.
func (s *Service) Lock(_ context.Context) {
	s.mtx.Lock()
	s.signingWallet = nil
	s.mtx.Unlock()
	log.Info("wallet locked")
}

// IsLocked returns whether the signing wallet is loaded in memory.
func (s *Service) IsLocked() bool {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.signingWallet == nil
}

// RenameWallet updates the display name of the stored wallet.
func (s *Service) RenameWallet(ctx context.Context, name string) error {
	if len(name) <= 0 {
		return ErrNullWalletName
	}
	return s.walletRepo.UpdateWallet(
		ctx,
		func(w *domain.Wallet) (*domain.Wallet, error) {
			w.Name = name
			return w, nil
		},
	)
}

// ChangePassphrase re-encrypts the stored secrets under a new passphrase.
func (s *Service) ChangePassphrase(ctx context.Context, current, next string) error {
	return s.walletRepo.UpdateWallet(
		ctx,
		func(w *domain.Wallet) (*domain.Wallet, error) {
			hash := passphraseHash(current)
			if subtle.ConstantTimeCompare(hash, w.PassphraseHash) != 1 {
				return nil, domain.ErrInvalidPassphrase
			}
			reencrypt := func(cypherText string) (string, error) {
				plainText, err := wallet.Decrypt(wallet.DecryptOpts{
					CypherText: cypherText,
					Passphrase: current,
				})
				if err != nil {
					return "", domain.ErrInvalidPassphrase
				}
				return wallet.Encrypt(wallet.EncryptOpts{
					PlainText:  plainText,
					Passphrase: next,
				})
			}

			encrypted, err := reencrypt(w.EncryptedMnemonic)
			if err != nil {
				return nil, err
			}
			w.EncryptedMnemonic = encrypted
			if len(w.EncryptedSeedPassphrase) > 0 {
				encrypted, err := reencrypt(w.EncryptedSeedPassphrase)
				if err != nil {
					return nil, err
				}
				w.EncryptedSeedPassphrase = encrypted
			}
			w.PassphraseHash = passphraseHash(next)
			return w, nil
		},
	)
}

// DeleteWallet verifies the passphrase, stops watching and wipes the stored
// wallet together with its utxo set and history. The in-memory signing
// material is dropped as well.
func (s *Service) DeleteWallet(ctx context.Context, passphrase string) error {
	stored, err := s.walletRepo.GetWallet(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			return ErrWalletNotInitialized
		}
		return err
	}
	hash := passphraseHash(passphrase)
	if subtle.ConstantTimeCompare(hash, stored.PassphraseHash) != 1 {
		return domain.ErrInvalidPassphrase
	}

	s.StopWatching()

	if err := s.utxoRepo.DeleteAllUtxos(ctx); err != nil {
		return err
	}
	if err := s.txRepo.DeleteAllTransactions(ctx); err != nil {
		return err
	}
	if err := s.walletRepo.DeleteWallet(ctx); err != nil {
		return err
	}

	s.mtx.Lock()
	s.signingWallet = nil
	s.mtx.Unlock()
	log.Info("wallet deleted")
	return nil
}

// Balance returns the wallet balance computed from the tracked utxo set.
func (s *Service) Balance(ctx context.Context) (*Balance, error) {
	confirmed, unconfirmed, err := s.utxoRepo.GetBalance(ctx)
	if err != nil {
		return nil, err
	}
	return &Balance{Confirmed: confirmed, Unconfirmed: unconfirmed}, nil
}

func (s *Service) signingWalletOrErr() (*wallet.Wallet, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	if s.signingWallet == nil {
		return nil, domain.ErrWalletLocked
	}
	return s.signingWallet, nil
}

func passphraseHash(passphrase string) []byte {
	hash := sha256.Sum256([]byte(passphrase))
	return hash[:]
}
