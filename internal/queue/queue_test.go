package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryQueue_SendReceiveDelete(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	require.NoError(t, q.Send(ctx, []byte(`{"job_id":"a"}`)))
	require.NoError(t, q.Send(ctx, []byte(`{"job_id":"b"}`)))
	assert.Equal(t, 2, q.Len())

	msg, err := q.Receive(ctx)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, `{"job_id":"a"}`, string(msg.Body))
	assert.NotEmpty(t, msg.ReceiptHandle)

	require.NoError(t, q.Delete(ctx, msg.ReceiptHandle))
	assert.Equal(t, 1, q.Len())
}

func TestMemoryQueue_ReceiveEmpty(t *testing.T) {
	q := NewMemoryQueue()

	msg, err := q.Receive(context.Background())
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestMemoryQueue_DeleteUnknownHandle(t *testing.T) {
	q := NewMemoryQueue()
	assert.NoError(t, q.Delete(context.Background(), "stale-handle"))
}

func TestMemoryQueue_ReceiveCancelled(t *testing.T) {
	q := NewMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Receive(ctx)
	assert.Error(t, err)
}

func TestNewSQSQueue_RequiresQueueURL(t *testing.T) {
	_, err := NewSQSQueue(context.Background(), SQSConfig{Region: "eu-west-1"})
	assert.ErrorIs(t, err, ErrQueueURLRequired)
}
