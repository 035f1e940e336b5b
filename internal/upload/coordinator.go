// Package upload coordinates batches of independent file uploads with
// per-task progress, a dependent move-to-folder step, and delayed pruning of
// completed tasks.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/chinmay706/Secure-vault-frontend/internal/api"
	"github.com/chinmay706/Secure-vault-frontend/internal/model"
)

// FileSource is one local file to upload.
type FileSource struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// FromPath builds a FileSource for a file on disk, sniffing its content type
// from the leading bytes.
func FromPath(path string) (FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileSource{}, fmt.Errorf("failed to get file info: %w", err)
	}
	if info.IsDir() {
		return FileSource{}, fmt.Errorf("%s is a directory", path)
	}

	contentType := ""
	if mt, err := mimetype.DetectFile(path); err == nil {
		contentType = mt.String()
	}

	return FileSource{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: contentType,
		Open:        func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// Uploader is the transport slice the coordinator needs. *api.Client
// satisfies it.
type Uploader interface {
	Upload(ctx context.Context, name string, size int64, content io.Reader, contentType string, tags []string, progress api.ProgressFunc) (*api.UploadResult, error)
	Move(ctx context.Context, fileID, folderID string) error
}

// Options tune a Coordinator.
type Options struct {
	// MaxConcurrent caps simultaneous in-flight uploads. 0 means no cap.
	MaxConcurrent int

	// LingerDelay is how long a completed task stays in the active set
	// before it is pruned. Error tasks stay until dismissed.
	LingerDelay time.Duration

	// OnChange receives a snapshot of a task after every state transition.
	OnChange func(task model.UploadTask)

	// OnRefresh fires immediately after each successful upload, before the
	// visual removal delay, so the caller can reload its listing.
	OnRefresh func()
}

const defaultLinger = 3 * time.Second

// Coordinator runs uploads. Tasks are independent: a failure in one never
// touches its siblings.
type Coordinator struct {
	uploader Uploader
	opts     Options
	sem      chan struct{}

	mu    sync.Mutex
	tasks map[string]*model.UploadTask
	order []string

	wg sync.WaitGroup
}

// NewCoordinator creates a coordinator over the given transport.
func NewCoordinator(uploader Uploader, opts Options) *Coordinator {
	if opts.LingerDelay <= 0 {
		opts.LingerDelay = defaultLinger
	}
	c := &Coordinator{
		uploader: uploader,
		opts:     opts,
		tasks:    make(map[string]*model.UploadTask),
	}
	if opts.MaxConcurrent > 0 {
		c.sem = make(chan struct{}, opts.MaxConcurrent)
	}
	return c
}

// Enqueue starts one independent upload per source and returns the created
// task snapshots. Tags apply identically to every file in the batch. A
// non-empty folderID triggers a dependent relocation after each successful
// upload.
func (c *Coordinator) Enqueue(ctx context.Context, sources []FileSource, folderID string, tags []string) []model.UploadTask {
	snapshots := make([]model.UploadTask, 0, len(sources))
	for _, src := range sources {
		task := &model.UploadTask{
			ID:        uuid.NewString(),
			Filename:  src.Name,
			SizeBytes: src.Size,
			Status:    model.StatusUploading,
		}

		c.mu.Lock()
		c.tasks[task.ID] = task
		c.order = append(c.order, task.ID)
		snapshot := *task
		c.mu.Unlock()

		snapshots = append(snapshots, snapshot)
		c.notify(snapshot)

		c.wg.Add(1)
		go c.run(ctx, task.ID, src, folderID, tags)
	}
	return snapshots
}

func (c *Coordinator) run(ctx context.Context, id string, src FileSource, folderID string, tags []string) {
	defer c.wg.Done()

	if c.sem != nil {
		select {
		case c.sem <- struct{}{}:
			defer func() { <-c.sem }()
		case <-ctx.Done():
			c.fail(id, ctx.Err().Error())
			return
		}
	}

	content, err := src.Open()
	if err != nil {
		c.fail(id, err.Error())
		return
	}
	defer content.Close()

	result, err := c.uploader.Upload(ctx, src.Name, src.Size, content, src.ContentType, tags, func(sent, total int64) {
		c.setProgress(id, sent, total)
	})
	if err != nil {
		c.fail(id, reasonOf(err))
		return
	}

	c.complete(id, result.File.ID)
	if c.opts.OnRefresh != nil {
		c.opts.OnRefresh()
	}

	if folderID != "" {
		// Strictly ordered after this file's own success. A failure here is
		// surfaced on the task but never flips it out of completed.
		if err := c.uploader.Move(ctx, result.File.ID, folderID); err != nil {
			c.setRelocationError(id, fmt.Errorf("%w: %v", api.ErrRelocationFailed, err))
		}
	}

	time.AfterFunc(c.opts.LingerDelay, func() { c.remove(id) })
}

// reasonOf extracts a user-facing failure message from an upload error.
func reasonOf(err error) string {
	if errors.Is(err, api.ErrTimeout) {
		return "upload timed out"
	}
	var statusErr *api.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Message
	}
	return err.Error()
}

func (c *Coordinator) setProgress(id string, sent, total int64) {
	if total <= 0 {
		return
	}
	pct := int(sent * 100 / total)
	if pct > 100 {
		pct = 100
	}

	c.mu.Lock()
	task, ok := c.tasks[id]
	if !ok || task.Status != model.StatusUploading || pct <= task.Progress {
		c.mu.Unlock()
		return
	}
	task.Progress = pct
	snapshot := *task
	c.mu.Unlock()

	c.notify(snapshot)
}

func (c *Coordinator) complete(id, fileID string) {
	c.mu.Lock()
	task, ok := c.tasks[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	task.Status = model.StatusCompleted
	task.Progress = 100
	task.FileID = fileID
	snapshot := *task
	c.mu.Unlock()

	c.notify(snapshot)
}

func (c *Coordinator) fail(id, reason string) {
	c.mu.Lock()
	task, ok := c.tasks[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	task.Status = model.StatusError
	task.Reason = reason
	snapshot := *task
	c.mu.Unlock()

	c.notify(snapshot)
}

func (c *Coordinator) setRelocationError(id string, err error) {
	c.mu.Lock()
	task, ok := c.tasks[id]
	if !ok {
		c.mu.Unlock()
		return
	}
	task.RelocationErr = err.Error()
	snapshot := *task
	c.mu.Unlock()

	c.notify(snapshot)
}

func (c *Coordinator) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(id)
}

func (c *Coordinator) removeLocked(id string) {
	if _, ok := c.tasks[id]; !ok {
		return
	}
	delete(c.tasks, id)
	for i, other := range c.order {
		if other == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Coordinator) notify(task model.UploadTask) {
	if c.opts.OnChange != nil {
		c.opts.OnChange(task)
	}
}

// Dismiss removes a task from the visible set. It does not abort an
// in-flight transport request; cancellation of the whole batch goes through
// the context passed to Enqueue.
func (c *Coordinator) Dismiss(id string) {
	c.remove(id)
}

// Active returns snapshots of all visible tasks in enqueue order.
func (c *Coordinator) Active() []model.UploadTask {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.UploadTask, 0, len(c.order))
	for _, id := range c.order {
		if task, ok := c.tasks[id]; ok {
			out = append(out, *task)
		}
	}
	return out
}

// Wait blocks until every enqueued upload has settled. Pruning timers may
// still be pending afterwards.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}
