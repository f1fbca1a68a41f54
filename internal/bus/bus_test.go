package bus

import (
	"testing"
	"time"

	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/measurement"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	b := New()
	sub1 := b.Subscribe()
	sub2 := b.Subscribe()

	batch := []measurement.Measurement{measurement.New("jarvis-tesla-exporter", "Home", time.Now())}
	b.Publish(batch)

	for i, sub := range []<-chan []measurement.Measurement{sub1, sub2} {
		select {
		case got := <-sub:
			if len(got) != 1 || got[0].ID != batch[0].ID {
				t.Errorf("subscriber %d received wrong batch", i)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never received the batch", i)
		}
	}
}

func TestPublishDoesNotBlockOnBusySubscriber(t *testing.T) {
	b := New()
	_ = b.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		// Two publishes: the first fills the buffer, the second must be
		// dropped instead of blocking.
		b.Publish(nil)
		b.Publish(nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a busy subscriber")
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	b := New()
	b.Publish([]measurement.Measurement{measurement.New("src", "Other", time.Now())})
}
