package editor_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"areas-bknd/internal/editor"
)

func TestManagerRequiresIdentity(t *testing.T) {
	mgr := editor.NewManager(&fakeGateway{}, zaptest.NewLogger(t))

	_, err := mgr.Session(context.Background(), editor.Identity{})
	assert.ErrorIs(t, err, editor.ErrNoIdentity)

	_, err = mgr.Session(context.Background(), editor.Identity{
		UserID:    uuid.New(),
		CompanyID: uuid.New(),
	})
	assert.ErrorIs(t, err, editor.ErrNoIdentity, "missing verified email is fatal")
}

func TestManagerReusesSessionPerUser(t *testing.T) {
	gw := &fakeGateway{}
	seedService(gw)
	mgr := editor.NewManager(gw, zaptest.NewLogger(t))

	alice := editor.Identity{UserID: uuid.New(), CompanyID: uuid.New(), Email: "alice@example.com"}
	bob := editor.Identity{UserID: uuid.New(), CompanyID: alice.CompanyID, Email: "bob@example.com"}

	ed1, err := mgr.Session(context.Background(), alice)
	require.NoError(t, err)
	ed2, err := mgr.Session(context.Background(), alice)
	require.NoError(t, err)
	assert.Same(t, ed1, ed2)

	ed3, err := mgr.Session(context.Background(), bob)
	require.NoError(t, err)
	assert.NotSame(t, ed1, ed3)

	mgr.Drop(alice.UserID)
	ed4, err := mgr.Session(context.Background(), alice)
	require.NoError(t, err)
	assert.NotSame(t, ed1, ed4)
}
