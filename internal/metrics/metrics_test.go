package metrics

import "testing"

func TestCountersDoNotPanic(t *testing.T) {
	m := New()
	m.FrameSeen("UL")
	m.BurstDecoded("DL")
	m.BurstRejected("UL")
	m.BCHErrorsFixed(3)
	m.CRCFailure()
	m.ReassemblyEviction()
	m.SBDPacket("DL")
	m.ACARSRecord("UL")
	m.ACARSCRCError()
	m.StageLatency(0.002)

	if m.Handler() == nil {
		t.Fatal("expected a non-nil metrics handler")
	}
}
