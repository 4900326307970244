package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdufoot/matchfinder/internal/model"
	"github.com/kdufoot/matchfinder/internal/queue"
	"github.com/kdufoot/matchfinder/internal/repository"
)

func lifecycleFixture(policy Retransition) (*Lifecycle, *fakeContacts, *recordingPublisher) {
	postings := &fakePostings{rows: []model.Posting{
		{ID: "p1", OwnerID: "owner", Status: model.StatusActive},
		{ID: "closed", OwnerID: "owner", Status: model.StatusFound},
	}}
	contacts := newFakeContacts()
	pub := &recordingPublisher{}
	return NewLifecycle(postings, contacts, pub, policy), contacts, pub
}

func TestContact_CreatesOnceAndPublishes(t *testing.T) {
	l, contacts, pub := lifecycleFixture(RetransitionAllow)
	ctx := context.Background()

	created, err := l.Contact(ctx, "p1", "req", "hello")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = l.Contact(ctx, "p1", "req", "hello again")
	require.NoError(t, err)
	assert.False(t, created, "second contact is a silent success")

	assert.Len(t, contacts.byKey, 1)
	assert.Equal(t, "hello", contacts.byKey[contactKey{"p1", "req"}].Message)
	require.Len(t, pub.events, 1)
	assert.Equal(t, queue.TypeContactCreated, pub.events[0].Type)
	assert.Equal(t, "owner", pub.events[0].OwnerID)
}

func TestContact_Unavailable(t *testing.T) {
	l, contacts, _ := lifecycleFixture(RetransitionAllow)

	_, err := l.Contact(context.Background(), "missing", "req", "")
	assert.ErrorIs(t, err, ErrPostingUnavailable)

	_, err = l.Contact(context.Background(), "closed", "req", "")
	assert.ErrorIs(t, err, ErrPostingUnavailable)
	assert.Empty(t, contacts.byKey)
}

func TestContact_OwnPostingRejected(t *testing.T) {
	l, contacts, _ := lifecycleFixture(RetransitionAllow)

	_, err := l.Contact(context.Background(), "p1", "owner", "")
	assert.True(t, IsValidation(err))
	assert.Empty(t, contacts.byKey)
}

func TestContact_MessageTooLong(t *testing.T) {
	l, _, _ := lifecycleFixture(RetransitionAllow)

	_, err := l.Contact(context.Background(), "p1", "req", strings.Repeat("é", MaxMessageLen+1))
	assert.True(t, IsValidation(err))
}

func TestContact_PublishFailureDoesNotFail(t *testing.T) {
	l, _, pub := lifecycleFixture(RetransitionAllow)
	pub.err = errStore

	created, err := l.Contact(context.Background(), "p1", "req", "")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestUpdateRequestStatus_Accept(t *testing.T) {
	l, contacts, pub := lifecycleFixture(RetransitionAllow)
	ctx := context.Background()
	_, err := l.Contact(ctx, "p1", "req", "")
	require.NoError(t, err)

	c, err := l.UpdateRequestStatus(ctx, "p1", "req", "owner", model.ContactAccepted)
	require.NoError(t, err)
	assert.Equal(t, model.ContactAccepted, c.Status)
	assert.Equal(t, model.ContactAccepted, contacts.byKey[contactKey{"p1", "req"}].Status)

	require.Len(t, pub.events, 2)
	ev := pub.events[1]
	assert.Equal(t, queue.TypeRequestStatusChanged, ev.Type)
	assert.Equal(t, model.ContactPending, ev.PreviousStatus)
	assert.Equal(t, model.ContactAccepted, ev.Status)
}

func TestUpdateRequestStatus_ErrorOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("status validated first", func(t *testing.T) {
		l, _, _ := lifecycleFixture(RetransitionAllow)
		_, err := l.UpdateRequestStatus(ctx, "missing", "req", "stranger", "pending")
		assert.True(t, IsValidation(err))
	})
	t.Run("posting not found before ownership", func(t *testing.T) {
		l, _, _ := lifecycleFixture(RetransitionAllow)
		_, err := l.UpdateRequestStatus(ctx, "missing", "req", "stranger", model.ContactAccepted)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
	t.Run("not owner", func(t *testing.T) {
		l, _, _ := lifecycleFixture(RetransitionAllow)
		_, err := l.UpdateRequestStatus(ctx, "p1", "req", "stranger", model.ContactAccepted)
		assert.ErrorIs(t, err, repository.ErrForbidden)
	})
	t.Run("contact not found", func(t *testing.T) {
		l, _, _ := lifecycleFixture(RetransitionAllow)
		_, err := l.UpdateRequestStatus(ctx, "p1", "nobody", "owner", model.ContactAccepted)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestUpdateRequestStatus_Retransition(t *testing.T) {
	ctx := context.Background()

	t.Run("allow", func(t *testing.T) {
		l, contacts, _ := lifecycleFixture(RetransitionAllow)
		_, _ = l.Contact(ctx, "p1", "req", "")
		_, err := l.UpdateRequestStatus(ctx, "p1", "req", "owner", model.ContactAccepted)
		require.NoError(t, err)

		c, err := l.UpdateRequestStatus(ctx, "p1", "req", "owner", model.ContactRefused)
		require.NoError(t, err)
		assert.Equal(t, model.ContactRefused, c.Status)
		assert.Equal(t, 2, contacts.updates)
	})
	t.Run("same status is a no-op", func(t *testing.T) {
		l, contacts, pub := lifecycleFixture(RetransitionAllow)
		_, _ = l.Contact(ctx, "p1", "req", "")
		_, _ = l.UpdateRequestStatus(ctx, "p1", "req", "owner", model.ContactRefused)

		_, err := l.UpdateRequestStatus(ctx, "p1", "req", "owner", model.ContactRefused)
		require.NoError(t, err)
		assert.Equal(t, 1, contacts.updates)
		assert.Len(t, pub.events, 2)
	})
	t.Run("reject", func(t *testing.T) {
		l, contacts, _ := lifecycleFixture(RetransitionReject)
		_, _ = l.Contact(ctx, "p1", "req", "")
		_, err := l.UpdateRequestStatus(ctx, "p1", "req", "owner", model.ContactAccepted)
		require.NoError(t, err)

		_, err = l.UpdateRequestStatus(ctx, "p1", "req", "owner", model.ContactRefused)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Equal(t, model.ContactAccepted, contacts.byKey[contactKey{"p1", "req"}].Status)
	})
}

func TestParseRetransition(t *testing.T) {
	assert.Equal(t, RetransitionReject, ParseRetransition("reject"))
	assert.Equal(t, RetransitionAllow, ParseRetransition("allow"))
	assert.Equal(t, RetransitionAllow, ParseRetransition(""))
	assert.Equal(t, RetransitionAllow, ParseRetransition("bogus"))
}

func TestViewerFor(t *testing.T) {
	l, _, _ := lifecycleFixture(RetransitionAllow)
	ctx := context.Background()
	_, _ = l.Contact(ctx, "p1", "req", "")
	_, _ = l.UpdateRequestStatus(ctx, "p1", "req", "owner", model.ContactAccepted)

	postings := []model.Posting{{ID: "p1", OwnerID: "owner"}, {ID: "mine", OwnerID: "req"}}
	v, err := l.ViewerFor(ctx, "req", postings)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"p1": model.ContactAccepted}, v.Contacts)

	anon, err := l.ViewerFor(ctx, "", postings)
	require.NoError(t, err)
	assert.Empty(t, anon.Contacts)
}
