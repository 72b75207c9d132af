// Package ingest implements a small item service used by the Lambda backed
// patterns. Items are written to a DynamoDB table and announced on an SQS queue,
// each only when the function was wired to one.
package ingest

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/advdv/bhttp"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/basewarphq/bwsc/bwlwa"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Store is the part of the DynamoDB API the handlers use.
type Store interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Queue is the part of the SQS API the handlers use.
type Queue interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Config names the resources the function was wired to. Empty values disable the
// corresponding side effect.
type Config struct {
	TableName string
	QueueURL  string
}

// Item is the unit of work.
type Item struct {
	ID      string `json:"id"`
	Payload string `json:"payload,omitempty"`
}

// Handlers serves the item routes.
type Handlers struct {
	cfg   Config
	store Store
	queue Queue
}

// New creates the handlers.
func New(cfg Config, store Store, queue Queue) *Handlers {
	return &Handlers{cfg: cfg, store: store, queue: queue}
}

// Register adds the routes to mux.
func (h *Handlers) Register(mux *bwlwa.Mux) {
	mux.HandleFunc("POST /items", h.CreateItem, "create-item")
	mux.HandleFunc("POST /l/consume", h.Consume, "consume")
}

// CreateItem stores the posted item and announces it on the queue.
func (h *Handlers) CreateItem(ctx context.Context, w bhttp.ResponseWriter, r *http.Request) error {
	var item Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil || item.ID == "" {
		return writeJSON(w, http.StatusBadRequest, map[string]string{"error": "item with an id is required"})
	}

	if err := h.put(ctx, item, "created"); err != nil {
		return err
	}

	if h.cfg.QueueURL != "" {
		body, err := json.Marshal(item)
		if err != nil {
			return errors.Wrap(err, "failed to encode item")
		}
		if _, err := h.queue.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(h.cfg.QueueURL),
			MessageBody: aws.String(string(body)),
		}); err != nil {
			return errors.Wrap(err, "failed to send message")
		}
	}

	bwlwa.Log(ctx).Info("item created", zap.String("id", item.ID))
	return writeJSON(w, http.StatusCreated, item)
}

// Consume processes an SQS batch delivered through the pass-through path. Records
// that fail are reported individually so that only they are retried. When the
// invocation runs out of time the records not yet processed are reported too.
func (h *Handlers) Consume(ctx context.Context, w bhttp.ResponseWriter, r *http.Request) error {
	var event events.SQSEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		return writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid sqs event"})
	}

	resp := events.SQSEventResponse{BatchItemFailures: []events.SQSBatchItemFailure{}}
	for i, rec := range event.Records {
		if ctx.Err() != nil {
			bwlwa.Log(ctx).Warn("deadline reached, returning unprocessed records",
				zap.Int("unprocessed", len(event.Records)-i))
			for _, rest := range event.Records[i:] {
				resp.BatchItemFailures = append(resp.BatchItemFailures,
					events.SQSBatchItemFailure{ItemIdentifier: rest.MessageId})
			}
			break
		}
		if err := h.consumeRecord(ctx, rec); err != nil {
			bwlwa.Log(ctx).Warn("record failed", zap.String("message_id", rec.MessageId), zap.Error(err))
			resp.BatchItemFailures = append(resp.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}

	return writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) consumeRecord(ctx context.Context, rec events.SQSMessage) error {
	var item Item
	if err := json.Unmarshal([]byte(rec.Body), &item); err != nil {
		return errors.Wrap(err, "invalid message body")
	}
	if item.ID == "" {
		return errors.New("message has no item id")
	}
	return h.put(ctx, item, "processed")
}

func (h *Handlers) put(ctx context.Context, item Item, status string) error {
	if h.cfg.TableName == "" {
		return nil
	}
	_, err := h.store.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(h.cfg.TableName),
		Item: map[string]ddbtypes.AttributeValue{
			"id":      &ddbtypes.AttributeValueMemberS{Value: item.ID},
			"payload": &ddbtypes.AttributeValueMemberS{Value: item.Payload},
			"status":  &ddbtypes.AttributeValueMemberS{Value: status},
		},
	})
	return errors.Wrapf(err, "failed to put item %s", item.ID)
}

func writeJSON(w bhttp.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
