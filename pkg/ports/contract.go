package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCheckpointerContract runs a suite of tests to verify that a Checkpointer
// implementation adheres to the defined interface contract.
func RunCheckpointerContract(t *testing.T, store Checkpointer) {
	ctx := context.Background()
	threadID := "contract-test-thread-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState(threadID)
		state.Apply(domain.Update{Messages: []domain.Message{
			domain.UserMessage("hello"),
			domain.AssistantMessage("", domain.ToolCall{ID: "c1", Name: "get_username", Args: map[string]any{}}),
			domain.ToolResultMessage("c1", "get_username", `{"response":"John Doe"}`),
		}})
		state.Status = domain.StatusRunning
		state.Next = "call_model"
		state.Step = 2

		err := store.Save(ctx, threadID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, threadID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, threadID, loaded.ThreadID)
		assert.Equal(t, domain.StatusRunning, loaded.Status)
		assert.Equal(t, "call_model", loaded.Next)
		assert.Equal(t, 2, loaded.Step)
		require.Len(t, loaded.Messages, 3)
		assert.Equal(t, "hello", loaded.Messages[0].Text())
		assert.True(t, loaded.Messages[1].HasToolCalls())
		assert.Equal(t, "c1", loaded.Messages[2].ToolCallID)
	})

	t.Run("Loaded state is isolated", func(t *testing.T) {
		loaded, err := store.Load(ctx, threadID)
		require.NoError(t, err)
		loaded.Apply(domain.Update{Messages: []domain.Message{domain.UserMessage("local only")}})

		again, err := store.Load(ctx, threadID)
		require.NoError(t, err)
		assert.Len(t, again.Messages, 3, "mutating a loaded state must not change the store")
	})

	t.Run("Last writer wins", func(t *testing.T) {
		first := domain.NewState(threadID)
		first.Apply(domain.Update{Messages: []domain.Message{domain.UserMessage("first")}})
		second := domain.NewState(threadID)
		second.Apply(domain.Update{Messages: []domain.Message{domain.UserMessage("second")}})

		require.NoError(t, store.Save(ctx, threadID, first))
		require.NoError(t, store.Save(ctx, threadID, second))

		loaded, err := store.Load(ctx, threadID)
		require.NoError(t, err)
		require.Len(t, loaded.Messages, 1)
		assert.Equal(t, "second", loaded.Messages[0].Text())
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+threadID)
		assert.ErrorIs(t, err, domain.ErrThreadNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, threadID, domain.NewState(threadID))
		require.NoError(t, err)

		err = store.Delete(ctx, threadID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, threadID)
		assert.ErrorIs(t, err, domain.ErrThreadNotFound, "Load after Delete should return ErrThreadNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := threadID + "-1"
		id2 := threadID + "-2"
		_ = store.Save(ctx, id1, domain.NewState(id1))
		_ = store.Save(ctx, id2, domain.NewState(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		threads, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, threads, id1)
		assert.Contains(t, threads, id2)
	})
}
