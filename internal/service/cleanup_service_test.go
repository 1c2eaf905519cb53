package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edusphere/course-api/internal/models"
	"github.com/edusphere/course-api/pkg/config"
)

func sweeperConfig() config.SweeperConfig {
	return config.SweeperConfig{
		Enabled:      true,
		Interval:     time.Hour,
		MaxAge:       24 * time.Hour,
		MaxRetries:   3,
		QueryTimeout: time.Second,
		SaveTimeout:  time.Second,
	}
}

func newSweeper(store *stubModuleStore, queue *stubQueue) *CleanupService {
	svc := NewCleanupService(store, queue, sweeperConfig(), nil, zap.NewNop())
	svc.baseDelay = time.Millisecond
	return svc
}

func TestSweepRemovesOnlyStaleTemporaries(t *testing.T) {
	now := time.Now().UTC()
	module := &models.Module{ID: "mod-1", TeacherID: "t-1",
		Chapters: models.ChapterList{{Title: "Intro", Attachments: models.AttachmentList{
			{Locator: "/uploads/stale.pdf", Temporary: true, UploadedAt: now.Add(-48 * time.Hour)},
			{Locator: "/uploads/fresh.pdf", Temporary: true, UploadedAt: now.Add(-1 * time.Hour)},
			{Locator: "/uploads/published.pdf", Temporary: false, UploadedAt: now.Add(-72 * time.Hour)},
		}}},
		Syllabus: models.Syllabus{Attachments: models.AttachmentList{
			{Locator: "/uploads/sstale.pdf", Temporary: true, UploadedAt: now.Add(-30 * time.Hour)},
		}},
	}
	store := newStubModuleStore(module)
	queue := &stubQueue{}
	svc := newSweeper(store, queue)

	svc.Sweep(context.Background())

	stored := store.stored("mod-1")
	require.Len(t, stored.Chapters[0].Attachments, 2)
	assert.Equal(t, "/uploads/fresh.pdf", stored.Chapters[0].Attachments[0].Locator)
	assert.Equal(t, "/uploads/published.pdf", stored.Chapters[0].Attachments[1].Locator)
	assert.Empty(t, stored.Syllabus.Attachments)

	assert.ElementsMatch(t, []string{"/uploads/stale.pdf", "/uploads/sstale.pdf"}, queue.locators())
}

func TestSweepSkipsModulesWithNothingStale(t *testing.T) {
	now := time.Now().UTC()
	module := &models.Module{ID: "mod-1", TeacherID: "t-1",
		Chapters: models.ChapterList{{Attachments: models.AttachmentList{
			{Locator: "/uploads/fresh.pdf", Temporary: true, UploadedAt: now},
		}}},
	}
	store := newStubModuleStore(module)
	queue := &stubQueue{}
	svc := newSweeper(store, queue)

	svc.Sweep(context.Background())

	// Nothing was stale, so no save and no delete jobs.
	assert.Equal(t, 0, store.saveCalls)
	assert.Empty(t, queue.locators())
}

func TestSweepRetriesQueryWithBackoff(t *testing.T) {
	now := time.Now().UTC()
	module := &models.Module{ID: "mod-1", TeacherID: "t-1",
		Chapters: models.ChapterList{{Attachments: models.AttachmentList{
			{Locator: "/uploads/stale.pdf", Temporary: true, UploadedAt: now.Add(-48 * time.Hour)},
		}}},
	}
	store := newStubModuleStore(module)
	store.findFailures = 3
	queue := &stubQueue{}
	svc := newSweeper(store, queue)

	svc.Sweep(context.Background())

	// Three failures, then the final retry succeeded and swept the module.
	assert.Equal(t, 4, store.findCalls)
	assert.Equal(t, []string{"/uploads/stale.pdf"}, queue.locators())
}

func TestSweepGivesUpAfterMaxRetries(t *testing.T) {
	store := newStubModuleStore()
	store.findFailures = 10
	queue := &stubQueue{}
	svc := newSweeper(store, queue)
	svc.baseDelay = 10 * time.Millisecond

	start := time.Now()
	svc.Sweep(context.Background())

	// One initial attempt plus three retries, then the pass is abandoned.
	// The retries back off at 1x, 2x, and 4x the base delay.
	assert.Equal(t, 4, store.findCalls)
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
	assert.Empty(t, queue.locators())
}

func TestSweepIsolatesPerModuleFailures(t *testing.T) {
	now := time.Now().UTC()
	stale := models.AttachmentList{{Locator: "/uploads/stale-a.pdf", Temporary: true, UploadedAt: now.Add(-48 * time.Hour)}}
	staleB := models.AttachmentList{{Locator: "/uploads/stale-b.pdf", Temporary: true, UploadedAt: now.Add(-48 * time.Hour)}}
	store := newStubModuleStore(
		&models.Module{ID: "mod-a", TeacherID: "t-1", Chapters: models.ChapterList{{Attachments: stale}}},
		&models.Module{ID: "mod-b", TeacherID: "t-1", Chapters: models.ChapterList{{Attachments: staleB}}},
	)
	// First module's save exhausts all retries; the second must still be swept.
	store.saveFailures = 4
	queue := &stubQueue{}
	svc := newSweeper(store, queue)

	svc.Sweep(context.Background())

	// Four failed attempts for the first module, one success for the second.
	assert.Len(t, queue.locators(), 1)
	assert.Equal(t, 5, store.saveCalls)
}

func TestSweepRespectsContextCancellation(t *testing.T) {
	store := newStubModuleStore()
	store.findFailures = 10
	svc := newSweeper(store, &stubQueue{})
	svc.baseDelay = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		svc.Sweep(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not honour cancelled context")
	}
}

func TestStartDisabledSweeperDoesNothing(t *testing.T) {
	store := newStubModuleStore()
	cfg := sweeperConfig()
	cfg.Enabled = false
	svc := NewCleanupService(store, nil, cfg, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, store.findCalls)
}

func TestStartRunsInitialSweep(t *testing.T) {
	now := time.Now().UTC()
	module := &models.Module{ID: "mod-1", TeacherID: "t-1",
		Chapters: models.ChapterList{{Attachments: models.AttachmentList{
			{Locator: "/uploads/stale.pdf", Temporary: true, UploadedAt: now.Add(-48 * time.Hour)},
		}}},
	}
	store := newStubModuleStore(module)
	queue := &stubQueue{}
	svc := newSweeper(store, queue)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	require.Eventually(t, func() bool {
		return len(queue.locators()) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
