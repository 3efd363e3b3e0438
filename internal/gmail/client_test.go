package gmail

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampMaxResults(t *testing.T) {
	tests := []struct {
		in   int64
		want int64
	}{
		{0, MaxListResults},
		{-5, MaxListResults},
		{1, 1},
		{50, 50},
		{51, MaxListResults},
		{10_000, MaxListResults},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampMaxResults(tt.in), "input: %d", tt.in)
	}
}

func TestWithCallTimeout_BoundsDeadlineFreeContext(t *testing.T) {
	ctx, cancel := withCallTimeout(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok, "provider calls must always carry a deadline")
	assert.WithinDuration(t, time.Now().Add(callTimeout), deadline, time.Second)
}

func TestWithCallTimeout_KeepsEarlierParentDeadline(t *testing.T) {
	parent, parentCancel := context.WithTimeout(context.Background(), time.Second)
	defer parentCancel()

	ctx, cancel := withCallTimeout(parent)
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	parentDeadline, _ := parent.Deadline()
	assert.Equal(t, parentDeadline, deadline)
}

func TestFetchBatch_PreservesRequestOrder(t *testing.T) {
	fetch := func(_ context.Context, id string) (*Message, error) {
		return &Message{ID: id}, nil
	}

	ids := make([]string, 20)
	for i := range ids {
		ids[i] = fmt.Sprintf("m%02d", i)
	}

	messages, err := fetchBatch(context.Background(), ids, fetch, testLogger())
	require.NoError(t, err)
	require.Len(t, messages, len(ids))
	for i, msg := range messages {
		assert.Equal(t, ids[i], msg.ID)
	}
}

func TestFetchBatch_IsolatesFailures(t *testing.T) {
	fetch := func(_ context.Context, id string) (*Message, error) {
		if id == "m2" {
			return nil, errors.New("backend hiccup")
		}
		return &Message{ID: id}, nil
	}

	messages, err := fetchBatch(context.Background(),
		[]string{"m1", "m2", "m3", "m4"}, fetch, testLogger())
	require.NoError(t, err, "one failed fetch must not fail the batch")
	require.Len(t, messages, 3)
	assert.Equal(t, "m1", messages[0].ID)
	assert.Equal(t, "m3", messages[1].ID)
	assert.Equal(t, "m4", messages[2].ID)
}

func TestFetchBatch_Empty(t *testing.T) {
	fetch := func(_ context.Context, _ string) (*Message, error) {
		t.Fatal("fetch must not be called")
		return nil, nil
	}

	messages, err := fetchBatch(context.Background(), nil, fetch, testLogger())
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestFetchBatch_RunsInParallel(t *testing.T) {
	var (
		mu      sync.Mutex
		active  int
		peak    int
		release = make(chan struct{})
	)
	fetch := func(_ context.Context, id string) (*Message, error) {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()

		<-release

		mu.Lock()
		active--
		mu.Unlock()
		return &Message{ID: id}, nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = fetchBatch(context.Background(),
			[]string{"m1", "m2", "m3", "m4"}, fetch, testLogger())
	}()

	// All four fit under the concurrency limit; wait until they are in
	// flight together, then let them finish.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return active == 4
	}, testWaitTimeout, testWaitTick)
	close(release)
	<-done

	assert.Equal(t, 4, peak)
}

func TestFetchBatch_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetch := func(ctx context.Context, id string) (*Message, error) {
		return &Message{ID: id}, nil
	}

	_, err := fetchBatch(ctx, []string{"m1", "m2"}, fetch, testLogger())
	assert.ErrorIs(t, err, context.Canceled)
}
