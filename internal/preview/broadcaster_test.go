package preview

import (
	"bytes"
	"sync"
	"testing"
)

func TestSubscribeAndWrite(t *testing.T) {
	b := NewBroadcaster()

	var wg sync.WaitGroup
	var subscribed sync.WaitGroup

	// Hundred subscribers
	for i := 0; i < 100; i++ {
		wg.Add(1)
		subscribed.Add(1)
		go func() {
			defer wg.Done()
			s := b.Subscribe(1)
			subscribed.Done()

			p, ok := <-s
			if !ok || !bytes.Equal(p, []byte{0xc0, 0xff, 0xee}) {
				t.Error("subscriber did not receive packet")
			}
		}()
	}

	subscribed.Wait()
	b.Write([]byte{0xc0, 0xff, 0xee})
	wg.Wait()
}

func TestUnsubscribe(t *testing.T) {
	b := NewBroadcaster()

	ch := b.Subscribe(10)
	if err := b.Unsubscribe(ch); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-ch; ok {
		t.Fatal("channel still open after unsubscribe")
	}
	if err := b.Unsubscribe(ch); err != errNotFound {
		t.Fatalf("second unsubscribe: got %v", err)
	}
}

func TestSlowSubscriberKeepsNewest(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe(2)

	for i := byte(0); i < 5; i++ {
		b.Write([]byte{i})
	}

	if p := <-ch; p[0] != 3 {
		t.Fatalf("got %d, want 3", p[0])
	}
	if p := <-ch; p[0] != 4 {
		t.Fatalf("got %d, want 4", p[0])
	}
}

func TestClose(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe(1)
	b.Close()

	if _, ok := <-ch; ok {
		t.Fatal("channel still open after close")
	}
	if _, err := b.Write([]byte{1}); err != errClosed {
		t.Fatalf("write after close: got %v", err)
	}
	if _, ok := <-b.Subscribe(1); ok {
		t.Fatal("subscription after close should be closed")
	}
}
