package syncer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/readersync/internal/models"
)

func TestStatusHandle(t *testing.T) {
	h := NewStatusHandle(models.SyncStatus{DeviceCount: 1})

	var got []models.SyncStatus
	cancel := h.OnChange(func(st models.SyncStatus) { got = append(got, st) })

	h.Update(func(st *models.SyncStatus) { st.Enabled = true })
	snapshot := h.Get()
	snapshot.SyncCode = "mutated copy"

	assert.Equal(t, "", h.Get().SyncCode)
	assert.Len(t, got, 1)
	assert.True(t, got[0].Enabled)

	cancel()
	h.Update(func(st *models.SyncStatus) { st.IsSyncing = true })
	assert.Len(t, got, 1)
}

func TestStatusHandle_ConcurrentUse(t *testing.T) {
	h := NewStatusHandle(models.SyncStatus{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			h.Update(func(st *models.SyncStatus) { st.DeviceCount++ })
		}()
		go func() {
			defer wg.Done()
			cancel := h.OnChange(func(models.SyncStatus) {})
			_ = h.Get()
			cancel()
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, h.Get().DeviceCount)
}
