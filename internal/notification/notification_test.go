package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shifa-care/shifa_wallet/internal/logging"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []Message
	err      error
}

func (r *recordingNotifier) Send(_ context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
	return r.err
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func TestMultiDeliversToAllAndJoinsErrors(t *testing.T) {
	ok := &recordingNotifier{}
	failing := &recordingNotifier{err: errors.New("boom")}

	err := Multi{failing, nil, ok}.Send(context.Background(), Message{Event: EventWalletCredited, AccountID: "a"})
	require.Error(t, err)
	assert.Equal(t, 1, ok.count())
	assert.Equal(t, 1, failing.count())
}

func TestRedisNotifierPublishesOnAccountChannel(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, Channel("acct-1"))
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	n := NewRedisNotifier(client)
	require.NoError(t, n.Send(ctx, Message{
		Event:     EventRechargeApproved,
		AccountID: "acct-1",
		Payload:   map[string]any{"amount": 10_000},
	}))

	select {
	case msg := <-sub.Channel():
		var got Message
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, EventRechargeApproved, got.Event)
		assert.Equal(t, "acct-1", got.AccountID)
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaNotifierKeysByAccount(t *testing.T) {
	w := &fakeWriter{}
	n := &KafkaNotifier{writer: w}

	require.NoError(t, n.Send(context.Background(), Message{Event: EventWalletDebited, AccountID: "acct-9"}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "acct-9", string(w.msgs[0].Key))
	assert.Equal(t, EventWalletDebited, string(w.msgs[0].Headers[0].Value))
}

func TestAsyncDeliversAfterCallerContextEnds(t *testing.T) {
	rec := &recordingNotifier{err: errors.New("downstream unavailable")}
	async := NewAsync(rec, logging.Discard(), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, async.Send(ctx, Message{Event: EventProviderRated, AccountID: "p"}))
	cancel()

	waitCtx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()
	require.NoError(t, async.Wait(waitCtx))
	assert.Equal(t, 1, rec.count())
}
