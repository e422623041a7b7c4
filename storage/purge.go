package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"

	"workflow-api/domain"
)

// purgeCommand is the queue message scheduling blob removal.
type purgeCommand struct {
	Keys []string `json:"keys"`
}

// PurgeQueue schedules blob deletion through an Azure Storage queue so task
// deletes do not block on object storage.
type PurgeQueue struct {
	queue *azqueue.QueueClient
}

func NewPurgeQueue(connStr, queueName string) (*PurgeQueue, error) {
	opts := azqueue.ClientOptions{
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
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, queueName, &opts)
	if err != nil {
		return nil, err
	}
	return &PurgeQueue{queue: q}, nil
}

// EnqueuePurge schedules the keys for removal.
func (p *PurgeQueue) EnqueuePurge(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	data, err := json.Marshal(purgeCommand{Keys: keys})
	if err != nil {
		return err
	}
	_, err = p.queue.EnqueueMessage(ctx, string(data), nil)
	return err
}

// RunPurgeWorker drains the purge queue until the context is cancelled.
// Failed deletes leave the message on the queue for redelivery.
func (p *PurgeQueue) RunPurgeWorker(ctx context.Context, blobs domain.BlobStore) {
	for {
		if ctx.Err() != nil {
			return
		}
		resp, err := p.queue.DequeueMessage(ctx, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Errorf("purge dequeue: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if len(resp.Messages) == 0 {
			time.Sleep(time.Second)
			continue
		}
		msg := resp.Messages[0]
		var cmd purgeCommand
		if err := json.Unmarshal([]byte(*msg.MessageText), &cmd); err != nil {
			log.Errorf("purge message decode: %v", err)
			// Poison message, drop it.
			p.deleteMessage(ctx, msg)
			continue
		}
		failed := false
		for _, key := range cmd.Keys {
			if err := blobs.Delete(ctx, key); err != nil {
				log.WithField("blob", key).Errorf("purge: %v", err)
				failed = true
			}
		}
		if !failed {
			p.deleteMessage(ctx, msg)
		}
	}
}

func (p *PurgeQueue) deleteMessage(ctx context.Context, msg *azqueue.DequeuedMessage) {
	if _, err := p.queue.DeleteMessage(ctx, *msg.MessageID, *msg.PopReceipt, nil); err != nil {
		log.Errorf("purge message delete: %v", err)
	}
}

// InlinePurger deletes blobs synchronously. It backs the non-hosted variant,
// where there is no queue service to lean on.
type InlinePurger struct {
	blobs domain.BlobStore
}

func NewInlinePurger(blobs domain.BlobStore) *InlinePurger {
	return &InlinePurger{blobs: blobs}
}

func (p *InlinePurger) EnqueuePurge(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if err := p.blobs.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
