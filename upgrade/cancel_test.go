package upgrade

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelled(t *testing.T) {
	assert.False(t, cancelled(nil))

	cancel := NewCancelChannel()
	assert.False(t, cancelled(cancel))

	// the send never blocks
	cancel <- CancelFormatChange{}
	assert.True(t, cancelled(cancel))

	close(cancel)
	assert.True(t, cancelled(cancel))
	assert.True(t, cancelled(cancel))
}

func TestCancelOnDone(t *testing.T) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	cancel, stop := CancelOnDone(ctx)
	assert.False(t, cancelled(cancel))

	cancelCtx()
	require.Eventually(t, func() bool { return cancelled(cancel) }, time.Second, time.Millisecond)
	assert.False(t, stop())
}

func TestCancelOnDoneStopped(t *testing.T) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	cancel, stop := CancelOnDone(ctx)
	assert.True(t, stop())

	// once stopped the context no longer reaches the channel
	cancelCtx()
	assert.Never(t, func() bool { return cancelled(cancel) }, 50*time.Millisecond, time.Millisecond)
}

func TestPassState(t *testing.T) {
	p := newPass(passRun)
	assert.Equal(t, NotStarted, p.State())

	require.NoError(t, p.start())
	assert.Equal(t, Running, p.State())
	assert.ErrorIs(t, p.start(), ErrPassStarted)

	p.finish(ErrCancelled)
	assert.Equal(t, Cancelled, p.State())
	assert.ErrorIs(t, p.start(), ErrPassFinished)

	// finishing again does not change the outcome
	p.finish(nil)
	assert.Equal(t, Cancelled, p.State())
	assert.Equal(t, "Cancelled", p.State().String())
}

func TestPassIdentity(t *testing.T) {
	run, check := NewRunner(testOptions(t)...).Pass(), NewVerifier(testOptions(t)...).Pass()
	assert.Equal(t, "run", run.Kind())
	assert.Equal(t, "check", check.Kind())
	assert.NotEqual(t, run.ID(), check.ID())
	assert.Equal(t, "run/"+run.ID().String(), run.String())
	assert.Equal(t, NotStarted, run.State())
}
