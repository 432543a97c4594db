package channel

import (
	"sync"
	"testing"
)

func TestDispatcher_DeliversToSubscribers(t *testing.T) {
	d := newDispatcher(nil)

	var mu sync.Mutex
	var got []Envelope
	d.subscribe(func(env Envelope) {
		mu.Lock()
		got = append(got, env)
		mu.Unlock()
	})

	raw := []byte(`{"type":"alert","id":7}`)
	d.dispatch(raw)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("delivered %d envelopes, want 1", len(got))
	}
	if got[0].Type != "alert" {
		t.Errorf("Type = %q, want %q", got[0].Type, "alert")
	}
	if string(got[0].Raw) != string(raw) {
		t.Errorf("Raw = %q, want %q", got[0].Raw, raw)
	}
}

func TestDispatcher_Unsubscribe(t *testing.T) {
	d := newDispatcher(nil)

	calls := 0
	unsubscribe := d.subscribe(func(Envelope) { calls++ })

	d.dispatch([]byte(`{"type":"node_update"}`))
	unsubscribe()
	d.dispatch([]byte(`{"type":"node_update"}`))

	if calls != 1 {
		t.Errorf("handler called %d times, want 1", calls)
	}
	if d.count() != 0 {
		t.Errorf("count = %d, want 0", d.count())
	}

	// Second unsubscribe is a no-op.
	unsubscribe()
}

func TestDispatcher_MalformedFrameDropped(t *testing.T) {
	d := newDispatcher(nil)

	calls := 0
	d.subscribe(func(Envelope) { calls++ })

	d.dispatch([]byte(`{not json`))
	d.dispatch([]byte(``))
	d.dispatch([]byte(`{"data":{"x":1}}`)) // no type discriminator

	if calls != 0 {
		t.Errorf("handler called %d times for malformed frames, want 0", calls)
	}
}

func TestDispatcher_PanickingSubscriberIsolated(t *testing.T) {
	d := newDispatcher(nil)

	wellBehaved := 0
	d.subscribe(func(Envelope) { panic("subscriber bug") })
	d.subscribe(func(Envelope) { wellBehaved++ })

	// Must not propagate the panic, and the well-behaved subscriber still
	// receives the frame.
	d.dispatch([]byte(`{"type":"alert","id":7}`))

	if wellBehaved != 1 {
		t.Errorf("well-behaved handler called %d times, want 1", wellBehaved)
	}

	// The panicking subscriber stays registered and keeps failing in
	// isolation.
	d.dispatch([]byte(`{"type":"alert","id":8}`))
	if wellBehaved != 2 {
		t.Errorf("well-behaved handler called %d times, want 2", wellBehaved)
	}
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := decodeEnvelope([]byte(`{"type":"service_update","data":{"id":3},"timestamp":"2024-01-15 12:00:00"}`))
	if err != nil {
		t.Fatalf("decodeEnvelope failed: %v", err)
	}
	if env.Type != "service_update" {
		t.Errorf("Type = %q, want service_update", env.Type)
	}
	if string(env.Data) != `{"id":3}` {
		t.Errorf("Data = %s, want {\"id\":3}", env.Data)
	}
	if env.Timestamp != "2024-01-15 12:00:00" {
		t.Errorf("Timestamp = %q", env.Timestamp)
	}

	if _, err := decodeEnvelope([]byte(`{"data":{}}`)); err != ErrNoType {
		t.Errorf("err = %v, want ErrNoType", err)
	}
}
