package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-phone-sales/internal/domain/dialog"
	"telegram-phone-sales/internal/domain/model"
)

func TestGetOrCreate_LazyAndSingleRecord(t *testing.T) {
	ctx := context.Background()
	s := NewDialogStateStore()

	st, err := s.GetOrCreate(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, model.StepStart, st.Step)
	assert.Equal(t, 1, s.Len())

	_, err = s.Update(ctx, 42, func(d *model.DialogState) error {
		dialog.Advance(d, "Samsung")
		return nil
	})
	require.NoError(t, err)

	st, err = s.GetOrCreate(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, model.StepSpecsSelection, st.Step)
	assert.Equal(t, 1, s.Len())
}

func TestGetOrCreate_ReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	s := NewDialogStateStore()

	st, _ := s.GetOrCreate(ctx, 1)
	st.Step = model.StepConfirmation
	st.Order.ClientName = "mutated"

	again, _ := s.GetOrCreate(ctx, 1)
	assert.Equal(t, model.StepStart, again.Step)
	assert.Empty(t, again.Order.ClientName)
}

func TestUpdate_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	s := NewDialogStateStore()
	_, err := s.Update(context.Background(), 1, func(*model.DialogState) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	s := NewDialogStateStore()
	_, _ = s.Update(ctx, 7, func(d *model.DialogState) error {
		dialog.Advance(d, "iphone")
		dialog.Advance(d, "128gb")
		return nil
	})

	require.NoError(t, s.Reset(ctx, 7))
	st, _ := s.GetOrCreate(ctx, 7)
	assert.Equal(t, model.StepStart, st.Step)
	assert.Equal(t, model.OrderData{}, st.Order)

	// reset of an unknown participant creates a fresh record
	require.NoError(t, s.Reset(ctx, 8))
	assert.Equal(t, 2, s.Len())
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewDialogStateStore()
	_, err := s.GetOrCreate(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Reset(ctx, 1), context.Canceled)
}

func TestUpdate_SerializesSameParticipant(t *testing.T) {
	ctx := context.Background()
	s := NewDialogStateStore()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Update(ctx, 99, func(*model.DialogState) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestUpdate_DifferentParticipantsDoNotBlock(t *testing.T) {
	ctx := context.Background()
	s := NewDialogStateStore()

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = s.Update(ctx, 1, func(*model.DialogState) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	done := make(chan struct{})
	go func() {
		_, _ = s.Update(ctx, 2, func(*model.DialogState) error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("update for participant 2 blocked behind participant 1")
	}
	close(release)
}

func TestConcurrentCreateYieldsOneRecord(t *testing.T) {
	ctx := context.Background()
	s := NewDialogStateStore()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Update(ctx, 5, func(d *model.DialogState) error {
				d.Order.Specifications += "x"
				return nil
			})
		}()
	}
	wg.Wait()
	st, _ := s.GetOrCreate(ctx, 5)
	assert.Len(t, st.Order.Specifications, 100)
	assert.Equal(t, 1, s.Len())
}

func TestEvictIdle(t *testing.T) {
	ctx := context.Background()
	s := NewDialogStateStore()
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	_, err := s.Update(ctx, 1, func(d *model.DialogState) error {
		dialog.Advance(d, "айфон")
		return nil
	})
	require.NoError(t, err)

	clock = clock.Add(time.Hour)
	_, err = s.GetOrCreate(ctx, 2)
	require.NoError(t, err)

	ids, err := s.EvictIdle(ctx, clock.Add(-30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
	assert.Equal(t, 1, s.Len())

	st, err := s.GetOrCreate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.StepStart, st.Step, "evicted participant starts over")
}

func TestEvictIdle_SkipsBusyEntries(t *testing.T) {
	ctx := context.Background()
	s := NewDialogStateStore()

	inFn := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Update(ctx, 7, func(d *model.DialogState) error {
			close(inFn)
			<-release
			dialog.Advance(d, "samsung")
			return nil
		})
	}()
	<-inFn

	ids, err := s.EvictIdle(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, ids)

	close(release)
	<-done
	st, err := s.GetOrCreate(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, model.StepSpecsSelection, st.Step)
}
