package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenRecorder struct{}

func (brokenRecorder) RecordUsage(context.Context, Record) error {
	return errors.New("disk full")
}

func TestService_FillsDefaults(t *testing.T) {
	mem := NewMemoryRecorder()
	svc := NewService(mem)
	fixed := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	require.NoError(t, svc.Record(context.Background(), Record{IdentityKey: "user:u1", Endpoint: "invoke-llm", TokensUsed: 12}))

	recs := mem.Records()
	require.Len(t, recs, 1)
	assert.NotEmpty(t, recs[0].ID)
	assert.Equal(t, fixed, recs[0].Timestamp)
	assert.Equal(t, 12, recs[0].TokensUsed)
	assert.Equal(t, 1, mem.CountFor("user:u1"))
	assert.Equal(t, 0, mem.CountFor("user:u2"))
}

func TestService_ReturnsWriteError(t *testing.T) {
	svc := NewService(brokenRecorder{})
	err := svc.Record(context.Background(), Record{IdentityKey: "session:s"})
	assert.Error(t, err)
}
