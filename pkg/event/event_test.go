package event

import "testing"

func TestRingOverflowDropsOldest(t *testing.T) {
	r := NewRing(4)
	for i := 0; i < 6; i++ {
		r.Push(Record{Text: string(rune('A' + i))})
	}
	snap := r.Snapshot()
	if len(snap) != 4 {
		t.Fatalf("expected ring capped at 4, got %d", len(snap))
	}
	// Oldest two (A, B) should have been dropped; C,D,E,F remain.
	if snap[0].Text != "C" || snap[3].Text != "F" {
		t.Fatalf("expected oldest-drop order C..F, got %+v", snap)
	}
}

func TestRingBelowCapacityPreservesOrder(t *testing.T) {
	r := NewRing(4)
	r.Push(Record{Text: "A"})
	r.Push(Record{Text: "B"})
	snap := r.Snapshot()
	if len(snap) != 2 || snap[0].Text != "A" || snap[1].Text != "B" {
		t.Fatalf("expected [A B], got %+v", snap)
	}
}

func TestPublisherAssignsCallIDAndTimestamp(t *testing.T) {
	p := NewPublisher(4)
	p.Publish(0, Record{Source: 1, Target: 2})
	snap := p.Snapshot(0)
	if len(snap) != 1 {
		t.Fatalf("expected one record, got %d", len(snap))
	}
	if snap[0].CallID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Fatal("expected a non-nil call ID to be assigned")
	}
	if snap[0].Timestamp.IsZero() {
		t.Fatal("expected a timestamp to be assigned")
	}
}

func TestWatchdogFiresOnDataCallCompletion(t *testing.T) {
	p := NewPublisher(4)
	var got string
	p.SetWatchdog(func(summary string) { got = summary })

	p.CompleteDataCall(1, Record{Source: 10, Target: 20, Text: "hello"}, 42)
	if got == "" {
		t.Fatal("expected watchdog to fire")
	}
}

func TestInvalidSlotIsNoOp(t *testing.T) {
	p := NewPublisher(4)
	p.Publish(5, Record{})
	if snap := p.Snapshot(5); snap != nil {
		t.Fatalf("expected nil snapshot for invalid slot, got %+v", snap)
	}
}
