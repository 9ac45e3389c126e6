package log

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobIDRoundTrip(t *testing.T) {
	ctx := ContextWithJobID(context.Background(), "job-42")
	assert.Equal(t, "job-42", JobIDFromContext(ctx))
}

func TestJobIDMissing(t *testing.T) {
	assert.Equal(t, "", JobIDFromContext(context.Background()))
	assert.Equal(t, "", JobIDFromContext(nil)) //nolint:staticcheck
}

func TestUserIDRoundTrip(t *testing.T) {
	ctx := ContextWithUserID(context.Background(), 1234)
	assert.Equal(t, int64(1234), UserIDFromContext(ctx))
	assert.Equal(t, int64(0), UserIDFromContext(context.Background()))
}

func TestWithContextNoFields(t *testing.T) {
	logger := WithComponent("test")
	enriched := WithContext(context.Background(), logger)
	assert.Equal(t, logger, enriched)
}
