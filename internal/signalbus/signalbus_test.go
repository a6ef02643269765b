package signalbus

import "testing"

func TestAccumulatorFirstAcceptWins(t *testing.T) {
	b := New()
	var calls []string

	b.OnRegisterRequest(func(path, prevID string) (bool, string) {
		calls = append(calls, "none")
		return false, ""
	})
	b.OnRegisterRequest(func(path, prevID string) (bool, string) {
		calls = append(calls, "id-A")
		return true, "id-A"
	})
	b.OnRegisterRequest(func(path, prevID string) (bool, string) {
		calls = append(calls, "id-B")
		return true, "id-B"
	})

	accept, id := b.EmitRegisterRequest("/path/1", "")
	if !accept || id != "id-A" {
		t.Fatalf("EmitRegisterRequest() = (%v, %q), want (true, id-A)", accept, id)
	}
	if len(calls) != 2 {
		t.Fatalf("expected chain to stop after first accept, called %v", calls)
	}
}

func TestAccumulatorNoAccept(t *testing.T) {
	b := New()
	b.OnRegisterRequest(func(path, prevID string) (bool, string) { return false, "" })

	accept, id := b.EmitRegisterRequest("/path/1", "")
	if accept || id != "" {
		t.Fatalf("EmitRegisterRequest() = (%v, %q), want (false, \"\")", accept, id)
	}
}

func TestEmitDisconnectedNotifiesAllInOrder(t *testing.T) {
	b := New()
	var order []int
	b.OnDisconnected(func(path string) { order = append(order, 1) })
	b.OnDisconnected(func(path string) { order = append(order, 2) })

	b.EmitDisconnected("/path/1")

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("order = %v, want [1 2]", order)
	}
}

func TestSafeCallRecoversPanic(t *testing.T) {
	err := SafeCall(func() { panic("boom") })
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
}
