package lcw

import (
	"fmt"
)

// lcw3Bits renders the 21-bit Lcw3Val as a string of '0'/'1' characters,
// MSB first, matching lcw3_to_bits in ida_decode.c.
func lcw3Bits(val uint32, nbits int) string {
	b := make([]byte, nbits)
	for i := 0; i < nbits; i++ {
		b[i] = '0' + byte((val>>uint(nbits-1-i))&1)
	}
	return string(b)
}

func bitsToInt(s string, from, to int) int {
	v := 0
	for i := from; i < to; i++ {
		v = (v << 1) | int(s[i]-'0')
	}
	return v
}

// FormatHeader renders a decoded Word as the canonical
// "LCW(ft,T:type,C:code,rest)" header string, space-padded to exactly
// 110 characters plus one trailing space.
//
// Field layouts are part of the wire protocol and are reproduced
// verbatim from format_lcw_header in ida_decode.c.
func FormatHeader(w Word) string {
	bits := lcw3Bits(w.Lcw3Val, 21)

	var ty, code, remain string

	switch w.LcwFT {
	case 0:
		ty = "maint"
		switch w.LcwCode {
		case 0:
			status := bitsToInt(bits, 1, 2)
			dtoa := bitsToInt(bits, 3, 13)
			dfoa := bitsToInt(bits, 13, 21)
			code = fmt.Sprintf("sync[status:%d,dtoa:%d,dfoa:%d]", status, dtoa, dfoa)
			remain = fmt.Sprintf("%c|%c", bits[0], bits[2])
		case 1:
			dtoa := bitsToInt(bits, 3, 13)
			dfoa := bitsToInt(bits, 13, 21)
			code = fmt.Sprintf("switch[dtoa:%d,dfoa:%d]", dtoa, dfoa)
			remain = bits[:3]
		case 3:
			lqi := bitsToInt(bits, 1, 3)
			power := bitsToInt(bits, 3, 6)
			fDtoa := bitsToInt(bits, 6, 13)
			fDfoa := bitsToInt(bits, 13, 20)
			code = fmt.Sprintf("maint[2][lqi:%d,power:%d,f_dtoa:%d,f_dfoa:%d]", lqi, power, fDtoa, fDfoa)
			remain = fmt.Sprintf("%c|%c", bits[0], bits[20])
		case 6:
			code = "geoloc"
			remain = bits
		case 12:
			lqi := bitsToInt(bits, 19, 21)
			power := bitsToInt(bits, 16, 19)
			code = fmt.Sprintf("maint[1][lqi:%d,power:%d]", lqi, power)
			remain = bits[:16]
		case 15:
			code = "<silent>"
			remain = bits
		default:
			code = fmt.Sprintf("rsrvd(%d)", w.LcwCode)
			remain = bits
		}
	case 1:
		ty = "acchl"
		if w.LcwCode == 1 {
			msgType := bitsToInt(bits, 1, 4)
			blocNum := bitsToInt(bits, 4, 5)
			sapiCode := bitsToInt(bits, 5, 8)
			segmList := bits[8:16]
			code = fmt.Sprintf("acchl[msg_type:%01x,bloc_num:%01x,sapi_code:%01x,segm_list:%s]",
				msgType, blocNum, sapiCode, segmList)
			tail := bitsToInt(bits, 16, 21)
			remain = fmt.Sprintf("%c,%02x", bits[0], tail)
		} else {
			code = fmt.Sprintf("rsrvd(%d)", w.LcwCode)
			remain = bits
		}
	case 2:
		ty = "hndof"
		switch w.LcwCode {
		case 3:
			cand := byte('P')
			if bits[2] != '0' {
				cand = 'S'
			}
			denied := bitsToInt(bits, 3, 4)
			ref := bitsToInt(bits, 4, 5)
			slot := 1 + bitsToInt(bits, 6, 8)
			sbandUp := bitsToInt(bits, 8, 13)
			sbandDn := bitsToInt(bits, 13, 18)
			access := bitsToInt(bits, 18, 21) + 1
			code = fmt.Sprintf("handoff_resp[cand:%c,denied:%d,ref:%d,slot:%d,sband_up:%d,sband_dn:%d,access:%d]",
				cand, denied, ref, slot, sbandUp, sbandDn, access)
			remain = fmt.Sprintf("%.2s,%c", bits, bits[5])
		case 12:
			code = "handoff_cand"
			remain = fmt.Sprintf("%s,%s", bits[0:11], bits[11:21])
		case 15:
			code = "<silent>"
			remain = bits
		default:
			code = fmt.Sprintf("rsrvd(%d)", w.LcwCode)
			remain = bits
		}
	case 3:
		fallthrough
	default:
		ty = "rsrvd"
		code = fmt.Sprintf("<%d>", w.LcwCode)
		remain = bits
	}

	raw := fmt.Sprintf("LCW(%d,T:%s,C:%s,%s)", w.FT, ty, code, remain)
	return fmt.Sprintf("%-110s ", raw)
}
