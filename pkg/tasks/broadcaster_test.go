package tasks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/webpilot/pkg/types"
)

func drain(ch <-chan *types.TaskEvent) []*types.TaskEvent {
	var out []*types.TaskEvent
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func finishedEvent(id string) *types.TaskEvent {
	return types.NewTaskFinishedEvent(newRun(id, types.StatusCompleted))
}

func TestBroadcasterDeliversInOrder(t *testing.T) {
	b := NewBroadcaster(8)
	ch, _ := b.Subscribe("t1")
	other, _ := b.Subscribe("t2")

	for i := 1; i <= 3; i++ {
		b.Publish(types.NewStepEvent("t1", types.Step{Index: i}))
	}
	b.Publish(finishedEvent("t1"))

	events := drain(ch)
	require.Len(t, events, 4)
	for i := 0; i < 3; i++ {
		assert.Equal(t, i+1, events[i].Step.Index)
	}
	assert.True(t, events[3].IsTerminal())
	assert.Equal(t, types.StatusCompleted, events[3].Status)

	assert.Empty(t, other)
	assert.Equal(t, 1, b.Subscribers("t2"))
}

func TestBroadcasterDropsForSlowSubscribersButKeepsFinal(t *testing.T) {
	b := NewBroadcaster(2)
	ch, _ := b.Subscribe("t1")

	for i := 1; i <= 5; i++ {
		b.Publish(types.NewStepEvent("t1", types.Step{Index: i}))
	}
	b.Publish(finishedEvent("t1"))

	events := drain(ch)
	require.Len(t, events, 2)
	assert.Equal(t, 2, events[0].Step.Index)
	assert.True(t, events[1].IsTerminal())
}

func TestBroadcasterSubscribeAfterFinish(t *testing.T) {
	b := NewBroadcaster(4)
	b.Publish(finishedEvent("t1"))
	b.Publish(types.NewStepEvent("t1", types.Step{Index: 9}))

	ch, cancel := b.Subscribe("t1")
	cancel()
	events := drain(ch)
	require.Len(t, events, 1)
	assert.True(t, events[0].IsTerminal())

	b.Forget("t1")
	ch, cancel = b.Subscribe("t1")
	assert.Equal(t, 1, b.Subscribers("t1"))
	cancel()
	cancel()
	assert.Empty(t, drain(ch))
	assert.Zero(t, b.Subscribers("t1"))
}
