// Package bch builds GF(2) BCH syndrome-correction tables and decodes
// codewords against them, with an optional Chase-5 soft-decision
// augmentation for the IDA payload code.
//
// Grounded on _examples/original_source/ida_decode.c (build_syn,
// chase_bch_da): tables are syndrome-indexed, single-bit errors take
// priority over two-bit errors when both land on the same syndrome, and
// index 0 always means "no error".
package bch

import "github.com/alphafox02/iridium-sniffer/internal/bitutil"

// Entry is one syndrome table slot. Errs is -1 for "unresolved".
type Entry struct {
	Errs    int
	Locator uint32
}

// Table is a syndrome-to-error-locator lookup for a single BCH
// polynomial, built once at startup and read-only thereafter.
type Table struct {
	Poly      uint32
	NBits     int
	MaxErrors int
	entries   []Entry
}

// Build constructs the syndrome table for poly over codewords of nbits
// bits, correcting up to maxErrors bit errors (1 or 2).
func Build(poly uint32, nbits int, maxErrors int) *Table {
	size := 1 << uint(syndromeBits(poly))
	t := &Table{
		Poly:      poly,
		NBits:     nbits,
		MaxErrors: maxErrors,
		entries:   make([]Entry, size),
	}
	for i := range t.entries {
		t.entries[i] = Entry{Errs: -1}
	}

	for b := 0; b < nbits; b++ {
		r := bitutil.GF2Remainder(poly, 1<<uint(b))
		if int(r) < size {
			t.entries[r] = Entry{Errs: 1, Locator: 1 << uint(b)}
		}
	}

	if maxErrors >= 2 {
		for b1 := 0; b1 < nbits; b1++ {
			for b2 := b1 + 1; b2 < nbits; b2++ {
				val := uint32(1<<uint(b1)) | uint32(1<<uint(b2))
				r := bitutil.GF2Remainder(poly, val)
				if int(r) < size && t.entries[r].Errs < 0 {
					t.entries[r] = Entry{Errs: 2, Locator: val}
				}
			}
		}
	}

	return t
}

// Lookup returns the entry for syndrome s, and whether it is resolved.
func (t *Table) Lookup(s uint32) (Entry, bool) {
	if int(s) >= len(t.entries) {
		return Entry{}, false
	}
	e := t.entries[s]
	return e, e.Errs >= 0
}

// syndromeBits returns deg(poly), i.e. bit_length(poly)-1.
func syndromeBits(poly uint32) int {
	n := 0
	for poly != 0 {
		poly >>= 1
		n++
	}
	if n == 0 {
		return 0
	}
	return n - 1
}
