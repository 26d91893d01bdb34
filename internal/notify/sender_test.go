package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewPicksSender(t *testing.T) {
	log := zap.NewNop()
	_, ok := New("", "gym@example.com", log).(NoopSender)
	assert.True(t, ok)

	_, ok = New("re_test_key", "gym@example.com", log).(*ResendSender)
	assert.True(t, ok)
}

func TestNoopSenderSucceeds(t *testing.T) {
	assert.NoError(t, NoopSender{}.Send(context.Background(), Message{To: "a@b.c", Subject: "hi"}))
}
