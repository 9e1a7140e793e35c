package fanout

import "testing"

func TestBroadcastAllOrdersAndCancels(t *testing.T) {
	h := NewHub[int]()
	var order []string
	regA := h.ListenAll(func([]int) { order = append(order, "a") })
	h.ListenAll(func([]int) { order = append(order, "b") })

	h.BroadcastAll([]int{1})
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("broadcast order = %v", order)
	}

	regA.Cancel()
	regA.Cancel() // idempotent
	order = nil
	h.BroadcastAll([]int{2})
	if len(order) != 1 || order[0] != "b" {
		t.Fatalf("after cancel order = %v", order)
	}
}

func TestBroadcastPerID(t *testing.T) {
	h := NewHub[string]()
	var got []string
	reg := h.Listen("x", func(v string) { got = append(got, v) })
	h.Listen("y", func(v string) { t.Errorf("listener for y fired with %q", v) })

	h.Broadcast("x", "one")
	h.Broadcast("x", "two")
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Fatalf("got %v", got)
	}

	reg.Cancel()
	h.Broadcast("x", "three")
	if len(got) != 2 {
		t.Fatalf("cancelled listener fired, got %v", got)
	}
}

func TestActive(t *testing.T) {
	h := NewHub[int]()
	if h.Active() {
		t.Fatal("empty hub reports active")
	}
	reg := h.Listen("x", func(int) {})
	if !h.Active() {
		t.Fatal("hub with id listener reports inactive")
	}
	reg.Cancel()
	if h.Active() {
		t.Fatal("hub active after last cancel")
	}
}
