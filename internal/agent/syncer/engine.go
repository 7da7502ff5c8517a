// Package syncer drains the pending submission queue.
//
// Records are uploaded one at a time. A record is deleted only after the
// server confirmed the upload, so a drain interrupted at any point leaves
// every unconfirmed record in place for the next one. A record that fails
// stays queued and the drain moves on to the next.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/storysync/internal/agent/notify"
	"github.com/dmitrijs2005/storysync/internal/client/models"
	"github.com/dmitrijs2005/storysync/internal/common"
	"github.com/dmitrijs2005/storysync/internal/logging"
)

// ErrIncomplete means records are still queued after the drain.
var ErrIncomplete = errors.New("drain left records queued")

type Queue interface {
	ListSubmissions(ctx context.Context) ([]models.PendingSubmission, error)
	GetSubmission(ctx context.Context, tempID int64) (*models.PendingSubmission, error)
	DeleteSubmission(ctx context.Context, tempID int64) error
}

type TokenResolver interface {
	ResolveToken(ctx context.Context) (string, error)
}

type Uploader interface {
	AddStory(ctx context.Context, token string, s models.NewStory) error
}

type Notifier interface {
	Show(ctx context.Context, n notify.Notification) notify.Notification
}

type Result struct {
	Pending  int  `json:"pending"`
	Uploaded int  `json:"uploaded"`
	Failed   int  `json:"failed"`
	Skipped  int  `json:"skipped"`
	Aborted  bool `json:"aborted"`
}

type Engine struct {
	queue    Queue
	tokens   TokenResolver
	uploader Uploader
	notifier Notifier
	log      logging.Logger

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

func NewEngine(queue Queue, tokens TokenResolver, uploader Uploader, notifier Notifier, log logging.Logger) *Engine {
	return &Engine{
		queue:    queue,
		tokens:   tokens,
		uploader: uploader,
		notifier: notifier,
		log:      log.With("module", "syncer"),
		inFlight: make(map[int64]struct{}),
	}
}

// UploadedNotification is shown once per record the drain delivered.
func UploadedNotification() notify.Notification {
	return notify.Notification{
		Title: "Story Uploaded",
		Body:  "Your offline story has been uploaded successfully!",
		Icon:  "/images/icon-192x192.png",
		Tag:   "sync-success",
	}
}

// Drain makes one pass over the queue. It returns ErrIncomplete when some
// records could not be delivered; a missing credential aborts the pass
// without touching any record.
func (e *Engine) Drain(ctx context.Context) (Result, error) {
	var res Result

	records, err := e.queue.ListSubmissions(ctx)
	if err != nil {
		return res, fmt.Errorf("list pending: %w", err)
	}
	res.Pending = len(records)
	if len(records) == 0 {
		return res, nil
	}

	e.log.Info(ctx, "drain started", "pending", res.Pending)

	for i := range records {
		id := records[i].TempID
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if !e.claim(id) {
			res.Skipped++
			continue
		}

		err := e.deliverByID(ctx, id)
		e.release(id)

		switch {
		case err == nil:
			res.Uploaded++
		case errors.Is(err, errGone):
			res.Skipped++
		case errors.Is(err, common.ErrNoCredential):
			e.log.Info(ctx, "no credential, drain stopped", "tempId", id)
			res.Aborted = true
			return res, fmt.Errorf("%w: %v", ErrIncomplete, err)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return res, err
		default:
			res.Failed++
			e.log.Warn(ctx, "upload failed, record kept", "tempId", id, "error", err)
		}
	}

	e.log.Info(ctx, "drain finished", "uploaded", res.Uploaded, "failed", res.Failed, "skipped", res.Skipped)
	if res.Failed > 0 {
		return res, ErrIncomplete
	}
	return res, nil
}

var errGone = errors.New("record already delivered")

// deliverByID re-reads the record under its claim so a record delivered by
// an overlapping drain is not uploaded twice.
func (e *Engine) deliverByID(ctx context.Context, id int64) error {
	rec, err := e.queue.GetSubmission(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return errGone
	}
	if err != nil {
		return err
	}
	return e.deliver(ctx, rec)
}

func (e *Engine) deliver(ctx context.Context, rec *models.PendingSubmission) error {
	token, err := e.tokens.ResolveToken(ctx)
	if err != nil {
		return err
	}

	story, err := rec.Story()
	if err != nil {
		return err
	}

	if err := e.uploader.AddStory(ctx, token, story); err != nil {
		return err
	}

	if err := e.queue.DeleteSubmission(ctx, rec.TempID); err != nil && !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("uploaded but not dequeued: %w", err)
	}

	e.notifier.Show(ctx, UploadedNotification())
	e.log.Info(ctx, "story uploaded", "tempId", rec.TempID)
	return nil
}

func (e *Engine) claim(id int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inFlight[id]; busy {
		return false
	}
	e.inFlight[id] = struct{}{}
	return true
}

func (e *Engine) release(id int64) {
	e.mu.Lock()
	delete(e.inFlight, id)
	e.mu.Unlock()
}
