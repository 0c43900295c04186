package storage

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"

	"taskboard-api/domain"
)

// EventQueue forwards change events to an Azure Storage queue.
type EventQueue struct {
	queue *azqueue.QueueClient
}

// NewEventQueue creates a queue sink from the given connection string.
func NewEventQueue(connStr, queueName string) (*EventQueue, error) {
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, queueName, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &EventQueue{queue: q}, nil
}

func (q *EventQueue) Name() string { return "azqueue" }

// Deliver sends one event as a JSON message.
func (q *EventQueue) Deliver(ctx context.Context, ev domain.Event) error {
	msg, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	_, err = q.queue.EnqueueMessage(ctx, msg, nil)
	return err
}

func encodeEvent(ev domain.Event) (string, error) {
	return sonic.MarshalString(ev)
}
