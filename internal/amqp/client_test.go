package amqp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/j-veylop/cost-dashboard-tui/internal/models"
)

type fakeChannel struct {
	failOn    string
	published []amqp091.Publishing
	keys      []string
	bound     [3]string
	closed    bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, _, _, _ bool, _ amqp091.Table) error {
	if f.failOn == "exchange" {
		return errors.New("exchange refused")
	}
	if kind != "direct" || !durable {
		return errors.New("unexpected exchange options")
	}
	return nil
}

func (f *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp091.Table) (amqp091.Queue, error) {
	if f.failOn == "queue" {
		return amqp091.Queue{}, errors.New("queue refused")
	}
	return amqp091.Queue{Name: name}, nil
}

func (f *fakeChannel) QueueBind(name, key, exchange string, _ bool, _ amqp091.Table) error {
	f.bound = [3]string{name, key, exchange}
	return nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	if f.failOn == "publish" {
		return errors.New("channel closed")
	}
	f.keys = append(f.keys, exchange+"/"+key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestSetup(t *testing.T) {
	ch := &fakeChannel{}
	c := &Client{channel: ch, exchangeName: "costs", queueName: "costs.refresh"}
	if err := c.setup(); err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	if ch.bound != [3]string{"costs.refresh", "costs.refresh", "costs"} {
		t.Errorf("bound = %v", ch.bound)
	}

	for _, stage := range []string{"exchange", "queue"} {
		t.Run(stage, func(t *testing.T) {
			c := &Client{channel: &fakeChannel{failOn: stage}, exchangeName: "x", queueName: "q"}
			if err := c.setup(); err == nil {
				t.Errorf("setup() should fail when %s declaration fails", stage)
			}
		})
	}
}

func TestPublishRefresh(t *testing.T) {
	ch := &fakeChannel{}
	c := &Client{channel: ch, exchangeName: "costs", queueName: "costs.refresh"}

	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	msg := NewRefreshMessage(models.RefreshRun{
		StartedAt:     start,
		FinishedAt:    start.Add(1500 * time.Millisecond),
		FilterKey:     "[]",
		Subscriptions: 3,
		Fetched:       1,
		FromCache:     1,
		Failed:        1,
	})
	msg.ProjectedCost = 1200

	if err := c.PublishRefresh(context.Background(), msg); err != nil {
		t.Fatalf("PublishRefresh() failed: %v", err)
	}
	if len(ch.published) != 1 || ch.keys[0] != "costs/costs.refresh" {
		t.Fatalf("published %d messages to %v", len(ch.published), ch.keys)
	}
	pub := ch.published[0]
	if pub.ContentType != "application/json" || pub.DeliveryMode != amqp091.Persistent {
		t.Errorf("publishing = %+v", pub)
	}

	got, err := RefreshMessageFromJSON(pub.Body)
	if err != nil {
		t.Fatalf("RefreshMessageFromJSON() failed: %v", err)
	}
	if got.Loaded != 2 || got.Failed != 1 || got.DurationMs != 1500 || got.ProjectedCost != 1200 {
		t.Errorf("message = %+v", got)
	}
}

func TestPublishRefresh_Error(t *testing.T) {
	c := &Client{channel: &fakeChannel{failOn: "publish"}, exchangeName: "x", queueName: "q"}
	if err := c.PublishRefresh(context.Background(), &RefreshMessage{}); err == nil {
		t.Error("PublishRefresh() should fail")
	}
}

func TestClose(t *testing.T) {
	ch := &fakeChannel{}
	c := &Client{channel: ch}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if !ch.closed {
		t.Error("channel not closed")
	}
}

func TestRefreshMessageFromJSON_Invalid(t *testing.T) {
	if _, err := RefreshMessageFromJSON([]byte("nope")); err == nil {
		t.Error("expected error")
	}
}
