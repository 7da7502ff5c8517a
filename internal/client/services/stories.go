package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/storysync/internal/client/api"
	"github.com/dmitrijs2005/storysync/internal/client/models"
	"github.com/dmitrijs2005/storysync/internal/common"
	"github.com/dmitrijs2005/storysync/internal/logging"
)

var allowedPhotoTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

// StoryAPI is the part of the story API client used for stories.
type StoryAPI interface {
	Stories(ctx context.Context, token string, q api.StoriesQuery) ([]models.Story, error)
	Story(ctx context.Context, token, id string) (*models.Story, error)
	AddStory(ctx context.Context, token string, s models.NewStory) error
}

// Queue is the durable queue a submission falls back to.
type Queue interface {
	EnqueueSubmission(ctx context.Context, p *models.PendingSubmission) (int64, error)
	CountSubmissions(ctx context.Context) (int, error)
}

// SyncRequester arms a background sync tag with the agent.
type SyncRequester interface {
	RequestSync(ctx context.Context, tag string) error
}

type SyncRequesterFunc func(ctx context.Context, tag string) error

func (f SyncRequesterFunc) RequestSync(ctx context.Context, tag string) error { return f(ctx, tag) }

type Outcome string

const (
	OutcomeUploaded Outcome = "uploaded"
	OutcomeQueued   Outcome = "queued"
)

type SubmitResult struct {
	Outcome Outcome
	// TempID is set when the story was queued.
	TempID int64
}

// StoryService submits and browses stories.
type StoryService interface {
	Validate(s models.NewStory) error
	Submit(ctx context.Context, s models.NewStory) (SubmitResult, error)
	List(ctx context.Context, q api.StoriesQuery) ([]models.Story, error)
	Get(ctx context.Context, id string) (*models.Story, error)
	PendingCount(ctx context.Context) (int, error)
}

type storyService struct {
	api    StoryAPI
	queue  Queue
	sync   SyncRequester
	auth   AuthService
	online func() bool
	now    func() time.Time
	log    logging.Logger
}

// NewStoryService builds the story service. online reports the client's
// current connectivity mode; a nil func means always online.
func NewStoryService(a StoryAPI, q Queue, sync SyncRequester, auth AuthService, online func() bool, log logging.Logger) StoryService {
	if online == nil {
		online = func() bool { return true }
	}
	return &storyService{
		api:    a,
		queue:  q,
		sync:   sync,
		auth:   auth,
		online: online,
		now:    time.Now,
		log:    log.With("module", "stories"),
	}
}

func (s *storyService) Validate(st models.NewStory) error {
	if strings.TrimSpace(st.Description) == "" {
		return fmt.Errorf("%w: description is required", common.ErrValidation)
	}
	if len(st.Photo.Data) == 0 {
		return fmt.Errorf("%w: photo is required", common.ErrValidation)
	}
	if !allowedPhotoTypes[strings.ToLower(st.Photo.Type)] {
		return fmt.Errorf("%w: photo must be JPEG or PNG, got %q", common.ErrValidation, st.Photo.Type)
	}
	if len(st.Photo.Data) >= common.MaxPhotoSize {
		return fmt.Errorf("%w: photo must be smaller than 1 MiB", common.ErrValidation)
	}
	if (st.Lat == nil) != (st.Lon == nil) {
		return fmt.Errorf("%w: lat and lon go together", common.ErrValidation)
	}
	return nil
}

// Submit uploads the story directly when online. When offline, or when the
// upload fails at the transport level, the story is queued and the sync tag
// is armed. A server rejection is returned as is.
func (s *storyService) Submit(ctx context.Context, st models.NewStory) (SubmitResult, error) {
	if err := s.Validate(st); err != nil {
		return SubmitResult{}, err
	}

	token := s.auth.Token()
	if token == "" {
		return SubmitResult{}, common.ErrNoCredential
	}

	if s.online() {
		err := s.api.AddStory(ctx, token, st)
		if err == nil {
			return SubmitResult{Outcome: OutcomeUploaded}, nil
		}
		if !errors.Is(err, common.ErrNetwork) {
			return SubmitResult{}, err
		}
		s.log.Info(ctx, "upload failed, queueing story", "error", err)
	}

	return s.enqueue(ctx, st)
}

func (s *storyService) enqueue(ctx context.Context, st models.NewStory) (SubmitResult, error) {
	id, err := s.queue.EnqueueSubmission(ctx, st.ToPending(s.now()))
	if err != nil {
		return SubmitResult{}, err
	}

	if s.sync != nil {
		if err := s.sync.RequestSync(ctx, common.SyncStoriesTag); err != nil {
			s.log.Warn(ctx, "sync request failed, story stays queued", "temp_id", id, "error", err)
		}
	}
	return SubmitResult{Outcome: OutcomeQueued, TempID: id}, nil
}

func (s *storyService) List(ctx context.Context, q api.StoriesQuery) ([]models.Story, error) {
	token := s.auth.Token()
	if token == "" {
		return nil, common.ErrNoCredential
	}
	return s.api.Stories(ctx, token, q)
}

func (s *storyService) Get(ctx context.Context, id string) (*models.Story, error) {
	token := s.auth.Token()
	if token == "" {
		return nil, common.ErrNoCredential
	}
	return s.api.Story(ctx, token, id)
}

func (s *storyService) PendingCount(ctx context.Context) (int, error) {
	return s.queue.CountSubmissions(ctx)
}
