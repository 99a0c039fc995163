package gate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicedesk/internal/identity"
	"voicedesk/internal/session"
	id "voicedesk/pkg/domain"
	dErrors "voicedesk/pkg/domain-errors"
)

func TestGuard(t *testing.T) {
	ctx := context.Background()
	callID := id.NewCallID()
	subject := identity.Subject{ID: 7, Surname: "Dupont", GivenName: "Jean"}
	unconfirmed := session.New(callID).WithCandidate(subject, id.LookupByEmail)
	confirmed, err := unconfirmed.Confirm()
	require.NoError(t, err)

	for name, sess := range map[string]session.Session{
		"no candidate":          session.New(callID),
		"unconfirmed candidate": unconfirmed,
	} {
		t.Run(name+" is refused without calling the operation", func(t *testing.T) {
			called := false
			_, err := Guard(ctx, sess, OpCreateClaim, func(context.Context, identity.Subject) (string, error) {
				called = true
				return "created", nil
			})
			require.Error(t, err)
			assert.False(t, called)
			assert.True(t, errors.Is(err, ErrNotConfirmed))
			assert.True(t, dErrors.HasCode(err, dErrors.CodePrecondition))
			assert.Equal(t, NotConfirmedMessage, dErrors.MessageOf(err, ""))
		})
	}

	t.Run("confirmed session passes the subject through", func(t *testing.T) {
		got, err := Guard(ctx, confirmed, OpGetSubjectDetails, func(_ context.Context, s identity.Subject) (id.SubjectID, error) {
			return s.ID, nil
		})
		require.NoError(t, err)
		assert.Equal(t, subject.ID, got)
	})

	t.Run("operation errors are returned as is", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := Guard(ctx, confirmed, OpListClaims, func(context.Context, identity.Subject) (int, error) {
			return 0, boom
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("unlisted operations are rejected", func(t *testing.T) {
		called := false
		_, err := Guard(ctx, confirmed, "delete_member", func(context.Context, identity.Subject) (int, error) {
			called = true
			return 0, nil
		})
		assert.ErrorIs(t, err, ErrNotGuarded)
		assert.False(t, called)
	})
}

func TestLists(t *testing.T) {
	for _, op := range Mutating {
		assert.True(t, IsProtected(op), op)
	}
	for _, op := range Key {
		assert.True(t, IsProtected(op), op)
	}
	assert.True(t, IsMutating(OpCreateClaim))
	assert.False(t, IsMutating(OpListClaims))
	assert.True(t, IsKey(OpUpdateContact))
	assert.False(t, IsProtected("lookup_by_phone"))
}
