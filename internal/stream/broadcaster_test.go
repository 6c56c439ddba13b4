package stream

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/mr1hm/go-quake-feed/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBroadcaster_SubscribeUnsubscribe(t *testing.T) {
	b := NewBroadcaster()

	id, ch := b.Subscribe()
	if b.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber, got %d", b.SubscriberCount())
	}

	b.Unsubscribe(id)
	if b.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", b.SubscriberCount())
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to be closed")
		}
	default:
		t.Error("channel should be closed and readable")
	}
}

func TestBroadcaster_Broadcast(t *testing.T) {
	b := NewBroadcaster()

	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)

	b.Broadcast(models.SyncState{Status: models.StatusLoading, Feed: "all_day", RequestID: "req-1"})

	select {
	case got := <-ch:
		if got.RequestID != "req-1" || got.Status != models.StatusLoading {
			t.Errorf("unexpected state %+v", got)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for broadcast")
	}
}

func TestBroadcaster_PreservesOrder(t *testing.T) {
	b := NewBroadcaster()
	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)

	statuses := []models.FetchStatus{models.StatusLoading, models.StatusError, models.StatusLoading, models.StatusSuccess}
	for _, s := range statuses {
		b.Broadcast(models.SyncState{Status: s})
	}

	for i, want := range statuses {
		if got := <-ch; got.Status != want {
			t.Errorf("update %d: expected %s, got %s", i, want, got.Status)
		}
	}
}

func TestBroadcaster_ConcurrentSubscribeBroadcast(t *testing.T) {
	b := NewBroadcaster()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, ch := b.Subscribe()
			drained := make(chan struct{})
			go func() {
				defer close(drained)
				for range ch {
				}
			}()
			time.Sleep(5 * time.Millisecond)
			b.Unsubscribe(id)
			<-drained
		}()
	}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			b.Broadcast(models.SyncState{RequestID: fmt.Sprintf("req-%d", n)})
		}(i)
	}

	wg.Wait()

	if b.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", b.SubscriberCount())
	}
}

func TestBroadcaster_Close(t *testing.T) {
	b := NewBroadcaster()

	var channels []<-chan models.SyncState
	for i := 0; i < 5; i++ {
		_, ch := b.Subscribe()
		channels = append(channels, ch)
	}

	b.Close()

	if b.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers after close, got %d", b.SubscriberCount())
	}

	for i, ch := range channels {
		select {
		case _, ok := <-ch:
			if ok {
				t.Errorf("channel %d should be closed", i)
			}
		default:
			t.Errorf("channel %d should be closed and readable", i)
		}
	}

	// Subscribing after Close yields a closed channel.
	_, late := b.Subscribe()
	if _, ok := <-late; ok {
		t.Error("expected closed channel after Close")
	}
}

func TestBroadcaster_SlowSubscriber(t *testing.T) {
	b := NewBroadcaster()

	id, ch := b.Subscribe()
	defer b.Unsubscribe(id)

	for i := 0; i < subscriberBuffer+1; i++ {
		b.Broadcast(models.SyncState{RequestID: fmt.Sprintf("req-%d", i)})
	}

	count := 0
	for {
		select {
		case <-ch:
			count++
		default:
			goto done
		}
	}
done:

	if count != subscriberBuffer {
		t.Errorf("expected %d buffered updates, got %d", subscriberBuffer, count)
	}
}
