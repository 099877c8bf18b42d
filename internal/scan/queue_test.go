package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

func TestMemoryQueue_SendReceive(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx := context.Background()

	for _, body := range []string{"a", "b", "c"} {
		if err := q.Send(ctx, body); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	msgs, err := q.Receive(ctx, 2, 1)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Body != "a" || msgs[1].Body != "b" {
		t.Fatalf("unexpected messages: %#v", msgs)
	}
	if q.Len() != 1 {
		t.Fatalf("expected 1 queued message, got %d", q.Len())
	}
}

func TestMemoryQueue_ReceiveTimesOut(t *testing.T) {
	q := NewMemoryQueue(1)
	start := time.Now()
	msgs, err := q.Receive(context.Background(), 1, 1)
	if err != nil || msgs != nil {
		t.Fatalf("expected empty timeout result, got %v %v", msgs, err)
	}
	if time.Since(start) < 900*time.Millisecond {
		t.Fatal("receive returned before the wait elapsed")
	}
}

func TestMemoryQueue_ReceiveCanceled(t *testing.T) {
	q := NewMemoryQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := q.Receive(ctx, 1, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSQSQueue_RoundTrip(t *testing.T) {
	client := &fakeSQS{}
	q := NewSQSQueue(client, "https://sqs.local/scan")
	ctx := context.Background()

	if err := q.Send(ctx, `{"id":"job-1"}`); err != nil {
		t.Fatalf("send: %v", err)
	}
	if aws.ToString(client.sent[0].QueueUrl) != "https://sqs.local/scan" {
		t.Fatalf("unexpected queue url %q", aws.ToString(client.sent[0].QueueUrl))
	}

	client.receive = []sqstypes.Message{{
		MessageId:     aws.String("m-1"),
		Body:          aws.String(`{"id":"job-1"}`),
		ReceiptHandle: aws.String("rh-1"),
	}}
	msgs, err := q.Receive(ctx, 5, 10)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(msgs) != 1 || msgs[0].ReceiptHandle != "rh-1" {
		t.Fatalf("unexpected messages: %#v", msgs)
	}
	if client.maxMessages != 5 || client.waitSeconds != 10 {
		t.Fatalf("receive parameters not forwarded: %d %d", client.maxMessages, client.waitSeconds)
	}

	if err := q.Delete(ctx, ""); err != nil {
		t.Fatalf("empty receipt delete: %v", err)
	}
	if err := q.Delete(ctx, "rh-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(client.deleted) != 1 || client.deleted[0] != "rh-1" {
		t.Fatalf("unexpected deletes: %v", client.deleted)
	}
}

func TestSQSQueue_SendError(t *testing.T) {
	q := NewSQSQueue(&fakeSQS{err: errors.New("throttled")}, "https://sqs.local/scan")
	if err := q.Send(context.Background(), "x"); err == nil {
		t.Fatal("expected send error")
	}
}

func TestNewSQSQueuePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for empty queue url")
		}
	}()
	NewSQSQueue(&fakeSQS{}, "")
}

type fakeSQS struct {
	err         error
	sent        []*sqs.SendMessageInput
	receive     []sqstypes.Message
	maxMessages int32
	waitSeconds int32
	deleted     []string
}

func (f *fakeSQS) SendMessage(ctx context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, in)
	return &sqs.SendMessageOutput{}, nil
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.maxMessages = in.MaxNumberOfMessages
	f.waitSeconds = in.WaitTimeSeconds
	return &sqs.ReceiveMessageOutput{Messages: f.receive}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func TestDecodeJob_RejectsInvalidPayloads(t *testing.T) {
	for _, body := range []string{"not json", `{"org_id":"org-1"}`, `{"id":"job-1"}`} {
		if _, err := decodeJob(body); !errors.Is(err, ErrInvalidJob) {
			t.Fatalf("expected ErrInvalidJob for %q, got %v", body, err)
		}
	}
}
