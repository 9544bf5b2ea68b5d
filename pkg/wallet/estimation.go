package wallet

const (
	// outpoint (36) + scriptsig len (1) + sequence (4)
	inputBaseSize = 41
	// witness items count + sig + pubkey
	inputWitnessSize = 108
	// value (8) + script len (1) + p2wpkh script (22)
	outputSize = 31
	// version (4) + locktime (4)
	txOverheadSize = 8
	// segwit marker + flag, shared by all witness inputs
	witnessOverheadSize = 2
)

// EstimateTxVSize makes an estimation of the virtual size of a transaction
// with the given number of P2WPKH inputs and outputs. Selecting one more
// input grows the estimate, which in turn grows the required fee, so callers
// performing coin selection must re-evaluate after every tentative addition.
func EstimateTxVSize(numInputs, numOutputs int) int {
	baseSize := txOverheadSize +
		varIntSerializeSize(uint64(numInputs)) +
		varIntSerializeSize(uint64(numOutputs)) +
		numInputs*inputBaseSize +
		numOutputs*outputSize

	totalSize := baseSize
	if numInputs > 0 {
		totalSize += witnessOverheadSize + numInputs*inputWitnessSize
	}

	weight := baseSize*3 + totalSize
	vsize := (weight + 3) / 4

	return vsize
}

// FeeAmount returns the fee in satoshis for a transaction of the given
// virtual size at the given fee rate.
func FeeAmount(vsize int, satsPerByte float64) uint64 {
	return uint64(float64(vsize) * satsPerByte)
}

// InputFee returns the marginal fee cost of spending one more P2WPKH input.
// An output whose value is below this cost is dust: spending it costs more
// than it is worth.
func InputFee(satsPerByte float64) uint64 {
	vsize := (inputBaseSize*4 + inputWitnessSize + 3) / 4
	return FeeAmount(vsize, satsPerByte)
}
