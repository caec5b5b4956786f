package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	got []Event
	err error
}

func (r *recorder) Publish(_ context.Context, ev Event) error {
	r.got = append(r.got, ev)
	return r.err
}

func TestMultiJoinsErrors(t *testing.T) {
	a := &recorder{}
	b := &recorder{err: errors.New("broker down")}
	m := Multi{a, b}

	err := m.Publish(context.Background(), Event{Type: TypeFeeStatus})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1)
}

func TestEmitStampsTime(t *testing.T) {
	r := &recorder{err: errors.New("ignored")}
	Emit(context.Background(), r, Event{Type: TypeFeeStatus})
	require.Len(t, r.got, 1)
	assert.False(t, r.got[0].OccurredAt.IsZero())

	Emit(context.Background(), nil, Event{})
}

func TestKafkaPublisher(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev Event
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.Type != TypeFeeStatus || ev.ResourceID != "fee-1" || ev.Status != "processing" {
			return errors.New("unexpected event payload")
		}
		return nil
	})
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	k := NewKafkaPublisherWithProducer(producer, "club.payments")
	require.NoError(t, k.Publish(context.Background(), Event{Type: TypeFeeStatus, ClubID: 1, ResourceID: "fee-1", Status: "processing"}))
	assert.Error(t, k.Publish(context.Background(), Event{Type: TypeFeeStatus, ClubID: 1}))
	require.NoError(t, k.Close())
}

func TestHubFiltersByClub(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clubID := int64(1)
		if r.URL.Query().Get("club") == "2" {
			clubID = 2
		}
		_ = hub.Serve(w, r, clubID)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	club1, _, err := websocket.DefaultDialer.Dial(wsURL+"?club=1", nil)
	require.NoError(t, err)
	defer club1.Close()
	club2, _, err := websocket.DefaultDialer.Dial(wsURL+"?club=2", nil)
	require.NoError(t, err)
	defer club2.Close()

	require.Eventually(t, func() bool { return hub.Sessions() == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), Event{Type: TypePaymentStatus, ClubID: 1, ResourceID: "pay-1", Status: "processing"}))

	_ = club1.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := club1.ReadMessage()
	require.NoError(t, err)
	var ev Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, "pay-1", ev.ResourceID)

	_ = club2.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = club2.ReadMessage()
	assert.Error(t, err, "club 2 must not receive club 1 events")
}
