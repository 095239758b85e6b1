package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMemoryStore_ViewBlocksConcurrentDelete はView実行中のプロジェクト削除が
// Viewの終了まで待たされ、View内の読み取りが削除前のデータで揃うことを検証する。
func TestMemoryStore_ViewBlocksConcurrentDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	u := seedUser(t, s, "demo")
	p := seedProject(t, s, "Website Redesign")
	seedEntry(t, s, p.ID, u.ID, time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC), 135)

	deleted := make(chan bool, 1)

	err := s.View(ctx, func(r Repositories) error {
		entries, err := r.TimeEntries().List(ctx, TimeEntryFilter{})
		require.NoError(t, err)
		require.Len(t, entries, 1)

		go func() {
			ok, _ := s.Projects().Delete(ctx, p.ID)
			deleted <- ok
		}()

		select {
		case <-deleted:
			t.Error("Delete completed while View was running")
		case <-time.After(50 * time.Millisecond):
		}

		project, err := r.Projects().FindByID(ctx, entries[0].ProjectID)
		require.NoError(t, err)
		assert.NotNil(t, project, "project should still be visible inside View")
		return nil
	})
	require.NoError(t, err)

	select {
	case ok := <-deleted:
		assert.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("Delete did not complete after View returned")
	}

	entries, err := s.TimeEntries().List(ctx, TimeEntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}
