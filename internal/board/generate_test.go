package board

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shift_handover/internal/assistant"
	"shift_handover/internal/shift"
	"shift_handover/internal/store"
)

// gatedSummarizer answers once release is closed, so tests can act while a
// request is in flight.
type gatedSummarizer struct {
	started chan struct{}
	release chan struct{}
	text    string
	err     error
	got     []shift.Fault
}

func newGated(text string, err error) *gatedSummarizer {
	return &gatedSummarizer{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
		text:    text,
		err:     err,
	}
}

func (g *gatedSummarizer) Summarize(ctx context.Context, faults []shift.Fault, _ []shift.PlannedWork, _ shift.Info) (string, error) {
	g.got = faults
	g.started <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return g.text, g.err
}

func TestGenerateNotes_OverwritesNotes(t *testing.T) {
	st := store.NewMemory()
	defer st.Close()
	sum := newGated("summary text", nil)
	close(sum.release)
	b := newBoard(t, st, WithSummarizer(sum))
	switchTo(t, b, morning)
	ctx := context.Background()

	require.NoError(t, b.SetNotes(ctx, "handwritten"))
	_, err := b.AddFault(ctx, downtownForm)
	require.NoError(t, err)
	waitState(t, b, func(s State) bool { return len(s.Faults) == 1 })

	text, err := b.GenerateNotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, "summary text", text)
	assert.Len(t, sum.got, 1)

	assert.Equal(t, "summary text", b.State().Info.Notes)
	stored, ok := st.Shift(morning.Key())
	require.True(t, ok)
	assert.Equal(t, "summary text", stored.Notes)
}

func TestGenerateNotes_NothingToSummarize(t *testing.T) {
	st := store.NewMemory()
	defer st.Close()
	sum := newGated("unused", nil)
	b := newBoard(t, st, WithSummarizer(sum))
	switchTo(t, b, morning)

	_, err := b.GenerateNotes(context.Background())
	assert.ErrorIs(t, err, ErrNothingToSummarize)
	assert.Empty(t, sum.started)
}

func TestGenerateNotes_NoSummarizer(t *testing.T) {
	st := store.NewMemory()
	defer st.Close()
	b := newBoard(t, st)
	switchTo(t, b, morning)

	_, err := b.GenerateNotes(context.Background())
	assert.ErrorIs(t, err, ErrNoSummarizer)
}

func TestGenerateNotes_FailureLeavesNotes(t *testing.T) {
	st := store.NewMemory()
	defer st.Close()
	g, err := assistant.New(context.Background(), assistant.Config{}, nil)
	require.NoError(t, err)
	b := newBoard(t, st, WithSummarizer(g))
	switchTo(t, b, morning)
	ctx := context.Background()

	require.NoError(t, b.SetNotes(ctx, "keep me"))
	_, err = b.AddPlanned(ctx, "fiber splice")
	require.NoError(t, err)
	waitState(t, b, func(s State) bool { return len(s.Planned) == 1 })

	_, err = b.GenerateNotes(ctx)
	assert.ErrorIs(t, err, assistant.ErrMissingAPIKey)
	assert.Equal(t, "keep me", b.State().Info.Notes)
}

func TestGenerateNotes_DiscardsAfterSwitch(t *testing.T) {
	st := store.NewMemory()
	defer st.Close()
	sum := newGated("late summary", nil)
	b := newBoard(t, st, WithSummarizer(sum))
	switchTo(t, b, morning)
	ctx := context.Background()

	_, err := b.AddFault(ctx, downtownForm)
	require.NoError(t, err)
	waitState(t, b, func(s State) bool { return len(s.Faults) == 1 })

	errc := make(chan error, 1)
	go func() {
		_, err := b.GenerateNotes(ctx)
		errc <- err
	}()
	<-sum.started

	switchTo(t, b, evening)
	close(sum.release)

	err = <-errc
	assert.True(t, errors.Is(err, ErrStale), "got %v", err)
	assert.Empty(t, b.State().Info.Notes)
	_, saved := st.Shift(morning.Key())
	assert.False(t, saved)
	_, saved = st.Shift(evening.Key())
	assert.False(t, saved)
}

func TestGenerateNotes_ClosedBoard(t *testing.T) {
	st := store.NewMemory()
	defer st.Close()
	sum := newGated("too late", nil)
	close(sum.release)
	b := newBoard(t, st, WithSummarizer(sum))
	switchTo(t, b, morning)
	_, err := b.AddFault(context.Background(), downtownForm)
	require.NoError(t, err)
	waitState(t, b, func(s State) bool { return len(s.Faults) == 1 })

	b.Close()
	_, err = b.GenerateNotes(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.Empty(t, sum.started, "the model is not called")
}
