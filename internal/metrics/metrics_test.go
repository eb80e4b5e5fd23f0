package metrics

import "testing"

func TestSnapshotSavingsRatioZeroBeforeAnyDirtyBytes(t *testing.T) {
	m := New()
	m.RecordSkip()
	snap := m.Snapshot()

	if snap.SavingsRatio != 0 {
		t.Fatalf("SavingsRatio = %v, want 0 with no raw bytes recorded yet", snap.SavingsRatio)
	}
	if snap.SkipsSent != 1 {
		t.Fatalf("SkipsSent = %d, want 1", snap.SkipsSent)
	}
}

func TestSnapshotSavingsRatioReflectsCompression(t *testing.T) {
	m := New()
	m.RecordDirty(0, 1000, 250)

	snap := m.Snapshot()
	if snap.SavingsRatio != 0.75 {
		t.Fatalf("SavingsRatio = %v, want 0.75 for 250/1000 wire/raw", snap.SavingsRatio)
	}
	if snap.DirtySent != 1 {
		t.Fatalf("DirtySent = %d, want 1", snap.DirtySent)
	}
	if snap.RawDirtyBytes != 1000 || snap.WireBytes != 250 {
		t.Fatalf("RawDirtyBytes/WireBytes = %d/%d, want 1000/250", snap.RawDirtyBytes, snap.WireBytes)
	}
}

func TestRecordFrameAndRecordDirtyAccumulate(t *testing.T) {
	m := New()
	m.RecordFrame(0, 500, 100)
	m.RecordDirty(0, 500, 100)

	snap := m.Snapshot()
	if snap.FramesSent != 1 || snap.DirtySent != 1 {
		t.Fatalf("FramesSent/DirtySent = %d/%d, want 1/1", snap.FramesSent, snap.DirtySent)
	}
	if snap.RawDirtyBytes != 1000 || snap.WireBytes != 200 {
		t.Fatalf("RawDirtyBytes/WireBytes = %d/%d, want 1000/200", snap.RawDirtyBytes, snap.WireBytes)
	}
}

func TestRecordCaptureUpdatesLastCaptureTime(t *testing.T) {
	m := New()
	m.RecordCapture(0)
	snap := m.Snapshot()
	if snap.FramesCaptured != 1 {
		t.Fatalf("FramesCaptured = %d, want 1", snap.FramesCaptured)
	}
}
