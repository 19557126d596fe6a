// Package lcw decodes the 46-bit Link Control Word that immediately
// follows a burst's preamble and classifies it via three interleaved
// BCH codewords.
//
// Grounded on _examples/original_source/ida_decode.c (decode_lcw,
// build_syn) for the exact permutation table, pair-swap order, and
// field-extraction shifts; spec.md §4.2 for the high-level contract.
package lcw

import (
	"github.com/alphafox02/iridium-sniffer/internal/bch"
	"github.com/alphafox02/iridium-sniffer/internal/bitutil"
)

const (
	Poly1 = 29  // 7-bit codeword, 1-error correcting
	Poly2 = 465 // 14-bit codeword (13 received bits + 1 zero pad), 1-error correcting
	Poly3 = 41  // 26-bit codeword, 2-error correcting
)

// Tables holds the three LCW syndrome tables, built once at startup.
type Tables struct {
	T1, T2, T3 *bch.Table
}

// BuildTables constructs the LCW1/LCW2/LCW3 syndrome tables.
func BuildTables() *Tables {
	return &Tables{
		T1: bch.Build(Poly1, 7, 1),
		T2: bch.Build(Poly2, 14, 1),
		T3: bch.Build(Poly3, 26, 2),
	}
}

// Word is a decoded Link Control Word.
type Word struct {
	FT      int    // frame type, 0-7; only FT==2 advances to IDA
	OK      bool   // all three components resolved
	LcwFT   int    // 2-bit sub-type from lcw2
	LcwCode int    // 4-bit code from lcw2
	Lcw3Val uint32 // 21 data bits from lcw3, MSB first
	ECLcw   int    // number of components with a nonzero syndrome
}

// lcwPerm is the 46-element, 1-indexed LCW de-interleave permutation,
// reproduced verbatim from iridium-toolkit via ida_decode.c.
var lcwPerm = [46]int{
	40, 39, 36, 35, 32, 31, 28, 27, 24, 23,
	20, 19, 16, 15, 12, 11, 8, 7, 4, 3,
	41, 38, 37, 34, 33, 30, 29, 26, 25, 22,
	21, 18, 17, 14, 13, 10, 9, 6, 5, 2,
	1, 46, 45, 44, 43, 42,
}

// Decode extracts and BCH-corrects a Link Control Word from the 46
// bits immediately following a burst's preamble. It returns ok==false
// if data is too short or any of the three component syndromes cannot
// be resolved.
func Decode(tables *Tables, data []byte) (Word, bool) {
	if len(data) < 46 {
		return Word{}, false
	}

	// Pair-swap compensates for the demodulator's symbol-reversal
	// convention, then the fixed permutation de-interleaves the LCW.
	swapped := make([]byte, 46)
	for i := 0; i < 46; i += 2 {
		swapped[i] = data[i+1]
		swapped[i+1] = data[i]
	}

	lcwBits := make([]byte, 46)
	for i := 0; i < 46; i++ {
		lcwBits[i] = swapped[lcwPerm[i]-1]
	}

	v1 := bitutil.BitsToUint(lcwBits[0:7], 7)
	r1 := bch.Decode(tables.T1, v1)
	if r1.Errs < 0 {
		return Word{}, false
	}

	v2 := bitutil.BitsToUint(lcwBits[7:20], 13) << 1
	r2 := bch.Decode(tables.T2, v2)
	if r2.Errs < 0 {
		return Word{}, false
	}

	v3 := bitutil.BitsToUint(lcwBits[20:46], 26)
	r3 := bch.Decode(tables.T3, v3)
	if r3.Errs < 0 {
		return Word{}, false
	}

	ft := int(r1.Corrected>>4) & 0x7
	lcw2Data := int(r2.Corrected>>8) & 0x3F
	lcw3Data := r3.Corrected >> 5

	ec := 0
	if r1.Errs > 0 {
		ec++
	}
	if r2.Errs > 0 {
		ec++
	}
	if r3.Errs > 0 {
		ec++
	}

	return Word{
		FT:      ft,
		OK:      true,
		LcwFT:   (lcw2Data >> 4) & 0x3,
		LcwCode: lcw2Data & 0xF,
		Lcw3Val: lcw3Data,
		ECLcw:   ec,
	}, true
}
