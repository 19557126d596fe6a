package bch

import "github.com/alphafox02/iridium-sniffer/internal/bitutil"

// ChaseFlipBits is the number of least-reliable positions Chase-5
// considers when standard BCH decoding fails.
const ChaseFlipBits = 5

// DecodeResult carries a resolved codeword plus how many errors it took
// to get there. Errs is -1 when decoding failed outright.
type DecodeResult struct {
	Corrected uint32
	Errs      int
	Fixed     bool
}

// Decode runs a single standard syndrome lookup against table over an
// nbits-wide codeword packed MSB-first into val. It does not attempt
// Chase augmentation; callers needing soft-decision retry use
// ChaseDecode.
func Decode(table *Table, val uint32) DecodeResult {
	syndrome := bitutil.GF2Remainder(table.Poly, val)
	if syndrome == 0 {
		return DecodeResult{Corrected: val, Errs: 0}
	}
	if e, ok := table.Lookup(syndrome); ok {
		return DecodeResult{Corrected: val ^ e.Locator, Errs: e.Errs, Fixed: true}
	}
	return DecodeResult{Errs: -1}
}

// ChaseDecode decodes a 31-bit BCH(31,20) block, falling back to
// Chase-5 soft-decision retry when the standard syndrome lookup fails
// and per-bit reliabilities (llr) are available.
//
// Grounded on _examples/original_source/ida_decode.c:chase_bch_da —
// the 5 least-reliable of the 31 bit positions are found by partial
// selection sort (on equal LLRs the earlier entry of the partly sorted,
// swapped index array wins, so ties do not always go to the lowest bit
// position), then all 31 nonzero subset masks of those
// 5 positions are tried against the *original* 31-bit value in
// ascending mask order; the first mask that resolves (syndrome zero or
// table hit) wins.
func ChaseDecode(table *Table, block31 []byte, llr31 []float32) (dataBits []byte, fixed bool, errs int, ok bool) {
	val := bitutil.BitsToUint(block31, 31)
	res := Decode(table, val)
	if res.Errs >= 0 {
		out := make([]byte, table.NBits-11)
		bitutil.UintToBits(res.Corrected>>11, out, len(out))
		return out, res.Fixed, res.Errs, true
	}

	if llr31 == nil {
		return nil, false, -1, false
	}

	pos := make([]int, 31)
	for i := range pos {
		pos[i] = i
	}
	for i := 0; i < ChaseFlipBits; i++ {
		minIdx := i
		for j := i + 1; j < 31; j++ {
			if llr31[pos[j]] < llr31[pos[minIdx]] {
				minIdx = j
			}
		}
		pos[i], pos[minIdx] = pos[minIdx], pos[i]
	}

	var flipMask [ChaseFlipBits]uint32
	for i := 0; i < ChaseFlipBits; i++ {
		flipMask[i] = 1 << uint(30-pos[i])
	}

	for mask := 1; mask < (1 << ChaseFlipBits); mask++ {
		flipped := val
		for b := 0; b < ChaseFlipBits; b++ {
			if mask&(1<<uint(b)) != 0 {
				flipped ^= flipMask[b]
			}
		}

		res = Decode(table, flipped)
		if res.Errs >= 0 {
			// Any Chase hit counts as a correction, even one that
			// resolves to a zero syndrome after the flip.
			out := make([]byte, table.NBits-11)
			bitutil.UintToBits(res.Corrected>>11, out, len(out))
			return out, true, res.Errs, true
		}
	}

	return nil, false, -1, false
}
