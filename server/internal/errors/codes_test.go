package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGatewayError(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, ErrCodeTransport, "embed call failed")

	assert.Equal(t, "[TRANSPORT] embed call failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)

	plain := New(ErrCodeQueueTimeout, "ingestion queue is full")
	assert.Equal(t, "[QUEUE_TIMEOUT] ingestion queue is full", plain.Error())
	assert.Nil(t, plain.Unwrap())
}

func TestIsCode(t *testing.T) {
	err := New(ErrCodeQueueClosed, "queue closed")
	assert.True(t, IsCode(err, ErrCodeQueueClosed))
	assert.False(t, IsCode(err, ErrCodeQueueTimeout))
	assert.False(t, IsCode(stderrors.New("plain"), ErrCodeQueueClosed))
	assert.False(t, IsCode(nil, ErrCodeQueueClosed))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeStore, CodeOf(New(ErrCodeStore, "boom"), ErrCodeTransport))
	assert.Equal(t, ErrCodeTransport, CodeOf(stderrors.New("plain"), ErrCodeTransport))
}
