// Package coinselect implements coin selection strategies over a set of
// unspent outputs. Selection is a pure function: it takes coins and a
// target, it returns a subset, a change amount and a fee estimate, and it
// never mutates or reserves anything.
package coinselect

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/faro-wallet/faro-daemon/pkg/wallet"
)

func init() {
	// the Random strategy must not replay the same shuffle on every run
	rand.Seed(time.Now().UnixNano())
}

// Strategy selects the ordering and acceptance rule applied to the coin set.
type Strategy string

const (
	// BestFit minimizes transaction size by covering the target with the
	// fewest inputs; ties between equal input counts are broken by the
	// smaller leftover change.
	BestFit Strategy = "bestfit"
	// LargestFirst scans coins in descending amount order.
	LargestFirst Strategy = "largestfirst"
	// SmallestFirst scans coins in ascending amount order, consolidating
	// many small inputs at the price of a larger fee.
	SmallestFirst Strategy = "smallestfirst"
	// Random shuffles the coin set uniformly before the scan to improve
	// unlinkability.
	Random Strategy = "random"
	// DustSweep ignores the dust floor, selects every coin below the
	// configured threshold and forces a single pinned change output.
	DustSweep Strategy = "dustsweep"
)

var (
	// ErrNoCoins ...
	ErrNoCoins = errors.New("coin list must not be empty")
	// ErrZeroTarget ...
	ErrZeroTarget = errors.New("target amount must not be zero")
	// ErrInvalidStrategy ...
	ErrInvalidStrategy = errors.New("unknown coin selection strategy")
	// ErrNoDust is returned by a dust sweep when no coin sits below the
	// threshold.
	ErrNoDust = errors.New("no coins below the dust sweep threshold")
)

// InsufficientFundsError is returned when no subset of the available coins
// covers target plus fee. It carries the shortfall so the caller can react
// without recomputing it.
type InsufficientFundsError struct {
	Target    uint64
	Available uint64
	Shortfall uint64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf(
		"insufficient funds: target %d, available %d, short of %d",
		e.Target, e.Available, e.Shortfall,
	)
}

// Coin is an unspent output as seen by the selector.
type Coin struct {
	TxID  string
	VOut  uint32
	Value uint64
}

// Selection is the outcome of a successful coin selection.
type Selection struct {
	Coins  []Coin
	Change uint64
	Fee    uint64
}

// SelectOpts is the struct given to Select.
type SelectOpts struct {
	Coins       []Coin
	Target      uint64
	SatsPerByte float64
	Strategy    Strategy
	// NumOutputs is the number of requested outputs, change excluded.
	NumOutputs int
	// SubtractFeeFromTarget makes the selection accept once the inputs
	// cover the bare target: the fee will be deducted from the requested
	// amount by the builder instead of being added on top.
	SubtractFeeFromTarget bool
	// DustSweepThreshold bounds the coin value collected by the DustSweep
	// strategy.
	DustSweepThreshold uint64
}

func (o SelectOpts) validate() error {
	if len(o.Coins) <= 0 {
		return ErrNoCoins
	}
	switch o.Strategy {
	case BestFit, LargestFirst, SmallestFirst, Random:
		if o.Target == 0 {
			return ErrZeroTarget
		}
	case DustSweep:
	default:
		return ErrInvalidStrategy
	}
	return nil
}

// Select picks a subset of the given coins covering the target amount plus
// the network fee at the given rate. Fee estimation is iterative: every
// tentatively added input grows the estimated transaction size, which grows
// the fee, which may require one more input, so sufficiency is re-evaluated
// after each addition rather than computed once up front.
func Select(opts SelectOpts) (*Selection, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	if opts.Strategy == DustSweep {
		return sweepDust(opts)
	}

	coins := spendableCoins(opts.Coins, opts.SatsPerByte)
	if len(coins) <= 0 {
		return nil, insufficiency(opts.Target, 0)
	}

	switch opts.Strategy {
	case BestFit:
		return selectBestFit(coins, opts)
	case LargestFirst:
		sort.Slice(coins, func(i, j int) bool {
			return coins[i].Value > coins[j].Value
		})
	case SmallestFirst:
		sort.Slice(coins, func(i, j int) bool {
			return coins[i].Value < coins[j].Value
		})
	case Random:
		rand.Shuffle(len(coins), func(i, j int) {
			coins[i], coins[j] = coins[j], coins[i]
		})
	}

	return accumulate(coins, opts)
}

// spendableCoins drops coins below the dust floor: outputs worth less than
// the marginal fee of spending them would shrink the funds they contribute.
func spendableCoins(coins []Coin, satsPerByte float64) []Coin {
	floor := wallet.InputFee(satsPerByte)
	out := make([]Coin, 0, len(coins))
	for _, c := range coins {
		if c.Value > floor {
			out = append(out, c)
		}
	}
	return out
}

// accumulate adds coins in the pre-established order until the running total
// covers target plus the fee for the current input count.
func accumulate(coins []Coin, opts SelectOpts) (*Selection, error) {
	chosen := make([]Coin, 0, len(coins))
	total := uint64(0)

	for _, c := range coins {
		chosen = append(chosen, c)
		total += c.Value

		fee := feeFor(len(chosen), opts)
		if covers(total, fee, opts) {
			return newSelection(chosen, total, fee, opts), nil
		}
	}

	needed := opts.Target
	if !opts.SubtractFeeFromTarget {
		needed += feeFor(len(chosen), opts)
	}
	return nil, insufficiency(needed, total)
}

// selectBestFit first looks for the single smallest coin able to cover the
// target on its own, which is always the minimal-size solution. Only when no
// single coin suffices it falls back to accumulating in descending order,
// which keeps the input count minimal. The tie-break is therefore: fewest
// inputs first, smallest leftover change second.
func selectBestFit(coins []Coin, opts SelectOpts) (*Selection, error) {
	singleFee := feeFor(1, opts)

	var best *Coin
	for i := range coins {
		c := coins[i]
		if !covers(c.Value, singleFee, opts) {
			continue
		}
		if best == nil || c.Value < best.Value {
			best = &coins[i]
		}
	}
	if best != nil {
		total := best.Value
		return newSelection([]Coin{*best}, total, singleFee, opts), nil
	}

	sort.Slice(coins, func(i, j int) bool {
		return coins[i].Value > coins[j].Value
	})
	return accumulate(coins, opts)
}

// sweepDust collects every coin at or below the threshold regardless of the
// dust floor. The caller pins all the resulting value to a single change
// address, so the selection carries no target and a single output.
func sweepDust(opts SelectOpts) (*Selection, error) {
	chosen := make([]Coin, 0, len(opts.Coins))
	total := uint64(0)
	for _, c := range opts.Coins {
		if c.Value <= opts.DustSweepThreshold {
			chosen = append(chosen, c)
			total += c.Value
		}
	}
	if len(chosen) <= 0 {
		return nil, ErrNoDust
	}

	fee := wallet.FeeAmount(
		wallet.EstimateTxVSize(len(chosen), 1), opts.SatsPerByte,
	)
	if total <= fee {
		return nil, insufficiency(fee, total)
	}

	return &Selection{
		Coins:  chosen,
		Change: total - fee,
		Fee:    fee,
	}, nil
}

func feeFor(numInputs int, opts SelectOpts) uint64 {
	// account for the eventual change output
	vsize := wallet.EstimateTxVSize(numInputs, opts.NumOutputs+1)
	return wallet.FeeAmount(vsize, opts.SatsPerByte)
}

func covers(total, fee uint64, opts SelectOpts) bool {
	if opts.SubtractFeeFromTarget {
		return total >= opts.Target
	}
	return total >= opts.Target+fee
}

func newSelection(chosen []Coin, total, fee uint64, opts SelectOpts) *Selection {
	change := uint64(0)
	if opts.SubtractFeeFromTarget {
		change = total - opts.Target
	} else {
		change = total - opts.Target - fee
	}
	return &Selection{Coins: chosen, Change: change, Fee: fee}
}

func insufficiency(target, available uint64) error {
	return &InsufficientFundsError{
		Target:    target,
		Available: available,
		Shortfall: target - available,
	}
}
