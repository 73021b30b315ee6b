// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/polychat/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "chats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleChat(t *testing.T) *model.Chat {
	t.Helper()
	chat := model.NewChat("be helpful")
	chat.Append(model.NewUserMessage("what is a goroutine?", ""))
	chat.Append(model.NewAssistantMessage("claude-sonnet-4-5-20250929",
		"A goroutine is a lightweight thread.", "thought about it",
		model.TokenCounts{Input: 120, Output: 80, InputCacheHit: 40},
		"end_turn", 0.00123, 1500*time.Millisecond))
	return chat
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store := openTestStore(t)
	chat := sampleChat(t)

	require.NoError(t, store.Save(chat))

	loaded, err := store.Load(chat.ID)
	require.NoError(t, err)

	assert.Equal(t, chat.ID, loaded.ID)
	assert.Equal(t, "be helpful", loaded.SystemPrompt)
	require.Len(t, loaded.Messages, 2)

	user := loaded.Messages[0]
	assert.Equal(t, model.RoleUser, user.Role)
	assert.Equal(t, "what is a goroutine?", user.Content)

	asst := loaded.Messages[1]
	assert.Equal(t, model.RoleAssistant, asst.Role)
	assert.Equal(t, "claude-sonnet-4-5-20250929", asst.ModelID)
	assert.Equal(t, "thought about it", asst.Reasoning)
	assert.Equal(t, uint64(120), asst.Tokens.Input)
	assert.Equal(t, uint64(40), asst.Tokens.InputCacheHit)
	assert.Equal(t, "end_turn", asst.StopReason)
	assert.InDelta(t, 0.00123, asst.Cost, 1e-9)
	assert.Equal(t, int64(1500), asst.ElapsedMs)
}

func TestSaveIsIdempotentUpsert(t *testing.T) {
	store := openTestStore(t)
	chat := sampleChat(t)

	require.NoError(t, store.Save(chat))
	chat.Append(model.NewUserMessage("and a channel?", ""))
	require.NoError(t, store.Save(chat))

	loaded, err := store.Load(chat.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Messages, 3)

	metas, err := store.List()
	require.NoError(t, err)
	assert.Len(t, metas, 1, "resave must not duplicate the chat row")
}

func TestLoadNotFound(t *testing.T) {
	store := openTestStore(t)
	_, err := store.Load("chat_missing")
	assert.True(t, errors.Is(err, ErrChatNotFound))
}

func TestBackgroundTaskPersists(t *testing.T) {
	store := openTestStore(t)
	chat := sampleChat(t)
	started := time.Now().Add(-2 * time.Minute).Truncate(time.Millisecond)
	chat.SetBackgroundTask(model.BackgroundTask{
		ID:        "resp_bg",
		Status:    model.TaskStatusInProgress,
		Provider:  "openai",
		ModelID:   "gpt-5",
		StartedAt: started,
	})

	require.NoError(t, store.Save(chat))

	loaded, err := store.Load(chat.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.BackgroundTask)
	assert.Equal(t, "resp_bg", loaded.BackgroundTask.ID)
	assert.Equal(t, model.TaskStatusInProgress, loaded.BackgroundTask.Status)
	assert.Equal(t, started.UnixMilli(), loaded.BackgroundTask.StartedAt.UnixMilli())

	// Clearing the task and resaving must drop the record.
	loaded.ClearBackgroundTask()
	require.NoError(t, store.Save(loaded))
	again, err := store.Load(chat.ID)
	require.NoError(t, err)
	assert.Nil(t, again.BackgroundTask)
}

func TestListOrderAndMeta(t *testing.T) {
	store := openTestStore(t)

	older := sampleChat(t)
	require.NoError(t, store.Save(older))
	time.Sleep(5 * time.Millisecond) // updated_at granularity

	newer := model.NewChat("")
	newer.Append(model.NewUserMessage("second chat question", ""))
	require.NoError(t, store.Save(newer))

	metas, err := store.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)

	assert.Equal(t, newer.ID, metas[0].ID, "most recently updated first")
	assert.Equal(t, "second chat question", metas[0].Preview)
	assert.Equal(t, 1, metas[0].MessageCount)

	assert.Equal(t, older.ID, metas[1].ID)
	assert.Equal(t, 2, metas[1].MessageCount)
	assert.InDelta(t, 0.00123, metas[1].TotalCost, 1e-9)
}

func TestMostRecent(t *testing.T) {
	store := openTestStore(t)

	_, err := store.MostRecent()
	assert.True(t, errors.Is(err, ErrChatNotFound), "empty store")

	first := sampleChat(t)
	require.NoError(t, store.Save(first))
	time.Sleep(5 * time.Millisecond)
	second := sampleChat(t)
	require.NoError(t, store.Save(second))

	got, err := store.MostRecent()
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
}

func TestListPending(t *testing.T) {
	store := openTestStore(t)

	plain := sampleChat(t)
	require.NoError(t, store.Save(plain))

	pending := sampleChat(t)
	pending.SetBackgroundTask(model.BackgroundTask{
		ID: "resp_p", Status: model.TaskStatusQueued,
		Provider: "openai", ModelID: "gpt-5", StartedAt: time.Now(),
	})
	require.NoError(t, store.Save(pending))

	metas, err := store.ListPending()
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, pending.ID, metas[0].ID)
	assert.True(t, metas[0].HasPendingTask)
}

func TestSetSummary(t *testing.T) {
	store := openTestStore(t)
	chat := sampleChat(t)
	require.NoError(t, store.Save(chat))

	require.NoError(t, store.SetSummary(chat.ID, "goroutine basics"))
	loaded, err := store.Load(chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "goroutine basics", loaded.Summary)

	err = store.SetSummary("chat_missing", "x")
	assert.True(t, errors.Is(err, ErrChatNotFound))
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)
	chat := sampleChat(t)
	require.NoError(t, store.Save(chat))

	require.NoError(t, store.Delete(chat.ID))
	_, err := store.Load(chat.ID)
	assert.True(t, errors.Is(err, ErrChatNotFound))

	err = store.Delete(chat.ID)
	assert.True(t, errors.Is(err, ErrChatNotFound), "double delete")
}

func TestDeleteCascadesMessages(t *testing.T) {
	store := openTestStore(t)
	chat := sampleChat(t)
	require.NoError(t, store.Save(chat))
	require.NoError(t, store.Delete(chat.ID))

	var count int
	require.NoError(t, store.db.QueryRow(
		"SELECT COUNT(*) FROM messages WHERE chat_id = ?", chat.ID).Scan(&count))
	assert.Zero(t, count, "messages must cascade on chat delete")
}

func TestClear(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Save(sampleChat(t)))
	require.NoError(t, store.Save(sampleChat(t)))

	require.NoError(t, store.Clear())
	metas, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, metas)
}
