package service

import (
	"context"
	"errors"
	"sync"

	"github.com/kdufoot/matchfinder/internal/geo"
	"github.com/kdufoot/matchfinder/internal/model"
	"github.com/kdufoot/matchfinder/internal/queue"
	"github.com/kdufoot/matchfinder/internal/repository"
)

type fakePostings struct {
	rows     []model.Posting
	total    int64
	err      error
	searched []repository.PostingFilter
	updated  []repository.PostingUpdate
	deleted  []string
}

func (f *fakePostings) Search(_ context.Context, flt repository.PostingFilter) ([]model.Posting, error) {
	f.searched = append(f.searched, flt)
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakePostings) Count(context.Context, repository.PostingFilter) (int64, error) {
	return f.total, f.err
}

func (f *fakePostings) GetByID(_ context.Context, id string) (model.Posting, error) {
	if f.err != nil {
		return model.Posting{}, f.err
	}
	for _, p := range f.rows {
		if p.ID == id {
			return p, nil
		}
	}
	return model.Posting{}, repository.ErrNotFound
}

func (f *fakePostings) Create(_ context.Context, p model.Posting) (model.Posting, error) {
	p.ID = "new"
	p.Status = model.StatusActive
	f.rows = append(f.rows, p)
	return p, nil
}

func (f *fakePostings) Update(_ context.Context, id string, u repository.PostingUpdate) (model.Posting, error) {
	f.updated = append(f.updated, u)
	return f.GetByID(context.Background(), id)
}

func (f *fakePostings) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeResolver struct {
	meters map[int]float64
	calls  [][]geo.Point
}

func (f *fakeResolver) Resolve(_ context.Context, _ geo.Point, dests []geo.Point) map[int]float64 {
	f.calls = append(f.calls, dests)
	return f.meters
}

type contactKey struct{ posting, requester string }

type fakeContacts struct {
	mu       sync.Mutex
	byKey    map[contactKey]model.Contact
	updates  int
	err      error
	incoming []model.IncomingRequest
	sent     []model.Participation
}

func newFakeContacts() *fakeContacts {
	return &fakeContacts{byKey: map[contactKey]model.Contact{}}
}

func (f *fakeContacts) Insert(_ context.Context, postingID, requesterID, message string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	k := contactKey{postingID, requesterID}
	if _, ok := f.byKey[k]; ok {
		return false, nil
	}
	f.byKey[k] = model.Contact{PostingID: postingID, RequesterID: requesterID, Message: message, Status: model.ContactPending}
	return true, nil
}

func (f *fakeContacts) Get(_ context.Context, postingID, requesterID string) (model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byKey[contactKey{postingID, requesterID}]
	if !ok {
		return model.Contact{}, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeContacts) UpdateStatus(_ context.Context, postingID, requesterID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := contactKey{postingID, requesterID}
	c := f.byKey[k]
	c.Status = status
	f.byKey[k] = c
	f.updates++
	return nil
}

func (f *fakeContacts) StatusesFor(_ context.Context, userID string, ids []string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]string{}
	for _, id := range ids {
		if c, ok := f.byKey[contactKey{id, userID}]; ok {
			out[id] = c.Status
		}
	}
	return out, nil
}

func (f *fakeContacts) IncomingForOwner(context.Context, string) ([]model.IncomingRequest, error) {
	return f.incoming, nil
}

func (f *fakeContacts) ParticipationsFor(context.Context, string) ([]model.Participation, error) {
	return f.sent, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, ev queue.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, ev)
	return nil
}

var errStore = errors.New("store down")

func ptr[T any](v T) *T { return &v }

func clubAt(lat, lng float64) *model.Club {
	return &model.Club{ID: "c", Name: "club", Latitude: ptr(lat), Longitude: ptr(lng)}
}
