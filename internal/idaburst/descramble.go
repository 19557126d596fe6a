// Package idaburst implements the IDA payload descrambler, BCH(31,20)
// decode stage, CRC-CCITT-FALSE verification, and multi-burst
// reassembly: spec.md §4.3-§4.6.
//
// Grounded on _examples/original_source/ida_decode.c
// (descramble_payload, de_interleave_n, ida_decode, ida_reassemble).
package idaburst

import (
	"github.com/alphafox02/iridium-sniffer/internal/bch"
)

// PayloadPoly is the BCH(31,20) generator for IDA payload blocks.
const PayloadPoly = 3545

// chunkOrder is the fixed reorder applied to the four 31-bit chunks of
// a de-interleaved 124-bit block: wire-format detail from
// descramble_payload's "order[4] = {3,1,2,0}".
var chunkOrder = [4]int{3, 1, 2, 0}

// deinterleave splits nSym symbols (2*nSym bits) of in into two nSym-bit
// halves, walking symbol indices from the top down in steps of 2 into
// out1, then from the next symbol down into out2. This is the "2-way
// rule" of spec.md §4.3, ground-truthed on de_interleave_n.
func deinterleaveBits(in []byte, nSym int, out1, out2 []byte) {
	p := 0
	for s := nSym - 1; s >= 1; s -= 2 {
		out1[p] = in[2*s]
		out1[p+1] = in[2*s+1]
		p += 2
	}
	p = 0
	for s := nSym - 2; s >= 0; s -= 2 {
		out2[p] = in[2*s]
		out2[p+1] = in[2*s+1]
		p += 2
	}
}

func deinterleaveLLR(in []float32, nSym int, out1, out2 []float32) {
	p := 0
	for s := nSym - 1; s >= 1; s -= 2 {
		out1[p] = in[2*s]
		out1[p+1] = in[2*s+1]
		p += 2
	}
	p = 0
	for s := nSym - 2; s >= 0; s -= 2 {
		out2[p] = in[2*s]
		out2[p+1] = in[2*s+1]
		p += 2
	}
}

// Descramble turns the payload bits following the 46-bit LCW into a
// BCH-decoded bit stream. maxBCH bounds the returned stream's length.
// It returns the stream and the number of 31-bit chunks whose decode
// required a correction. A chunk or trailing-window BCH failure simply
// truncates the stream at that point, matching descramble_payload's
// "goto done"; callers judge success by the stream's length.
func Descramble(table *bch.Table, data []byte, llr []float32, maxBCH int) (stream []byte, fixedErrs int) {
	stream = make([]byte, 0, maxBCH)

	nFull := len(data) / 124
	remain := len(data) % 124

	for blk := 0; blk < nFull; blk++ {
		block := data[blk*124 : blk*124+124]
		var blockLLR []float32
		if llr != nil {
			blockLLR = llr[blk*124 : blk*124+124]
		}

		half1 := make([]byte, 62)
		half2 := make([]byte, 62)
		deinterleaveBits(block, 62, half1, half2)

		var lhalf1, lhalf2 []float32
		if blockLLR != nil {
			lhalf1 = make([]float32, 62)
			lhalf2 = make([]float32, 62)
			deinterleaveLLR(blockLLR, 62, lhalf1, lhalf2)
		}

		combined := make([]byte, 124)
		copy(combined[:62], half1)
		copy(combined[62:], half2)

		var lcombined []float32
		if blockLLR != nil {
			lcombined = make([]float32, 124)
			copy(lcombined[:62], lhalf1)
			copy(lcombined[62:], lhalf2)
		}

		for _, c := range chunkOrder {
			if len(stream)+20 > maxBCH {
				return stream, fixedErrs
			}
			off := c * 31
			var chunkLLR []float32
			if lcombined != nil {
				chunkLLR = lcombined[off : off+31]
			}
			out, fixed, _, ok := bch.ChaseDecode(table, combined[off:off+31], chunkLLR)
			if !ok {
				return stream, fixedErrs
			}
			if fixed {
				fixedErrs++
			}
			stream = append(stream, out...)
		}
	}

	// Trailing partial block: drop the first bit of each half, then
	// concatenate h2[1:] || h1[1:] — a wire-format oddity preserved
	// verbatim from descramble_payload.
	if remain >= 4 {
		nSymLast := remain / 2
		tail := data[nFull*124:]
		h1 := make([]byte, nSymLast)
		h2 := make([]byte, nSymLast)
		deinterleaveBits(tail, nSymLast, h1, h2)

		var lh1, lh2 []float32
		var tailLLR []float32
		if llr != nil {
			tailLLR = llr[nFull*124:]
			lh1 = make([]float32, nSymLast)
			lh2 = make([]float32, nSymLast)
			deinterleaveLLR(tailLLR, nSymLast, lh1, lh2)
		}

		if nSymLast > 1 {
			clen := 0
			combined := make([]byte, 0, 2*(nSymLast-1))
			var lcombined []float32
			if tailLLR != nil {
				lcombined = make([]float32, 0, 2*(nSymLast-1))
			}
			combined = append(combined, h2[1:]...)
			combined = append(combined, h1[1:]...)
			if tailLLR != nil {
				lcombined = append(lcombined, lh2[1:]...)
				lcombined = append(lcombined, lh1[1:]...)
			}
			clen = len(combined)

			pos := 0
			for pos+31 <= clen && len(stream)+20 <= maxBCH {
				var chunkLLR []float32
				if lcombined != nil {
					chunkLLR = lcombined[pos : pos+31]
				}
				out, fixed, _, ok := bch.ChaseDecode(table, combined[pos:pos+31], chunkLLR)
				if !ok {
					break
				}
				if fixed {
					fixedErrs++
				}
				stream = append(stream, out...)
				pos += 31
			}
		}
	}

	return stream, fixedErrs
}
