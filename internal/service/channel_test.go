package service

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	servermocks "github.com/dtroode/kychat-server/internal/mocks"
	"github.com/dtroode/kychat-server/internal/model"
	"github.com/dtroode/kychat-server/internal/testutil"
)

type channelDeps struct {
	channels   *servermocks.ChannelStore
	requests   *servermocks.JoinRequestStore
	publicKeys *servermocks.PublicKeyStore
	users      *servermocks.UserStore
	notifier   *servermocks.Notifier
}

func newChannelDeps() channelDeps {
	return channelDeps{
		channels:   &servermocks.ChannelStore{},
		requests:   &servermocks.JoinRequestStore{},
		publicKeys: &servermocks.PublicKeyStore{},
		users:      &servermocks.UserStore{},
		notifier:   &servermocks.Notifier{},
	}
}

func (d channelDeps) service() *Channel {
	return NewChannel(d.channels, d.requests, d.publicKeys, d.users, d.notifier, testutil.MakeNoopLogger())
}

func (d channelDeps) assertExpectations(t *testing.T) {
	t.Helper()
	d.channels.AssertExpectations(t)
	d.requests.AssertExpectations(t)
	d.publicKeys.AssertExpectations(t)
	d.notifier.AssertExpectations(t)
}

func pairedChannel(owner, partner uuid.UUID) model.Channel {
	return model.Channel{ID: uuid.New(), OwnerID: owner, PartnerID: &partner}
}

func openChannel(owner uuid.UUID) model.Channel {
	key := "abcdefghijklmnop"
	return model.Channel{ID: uuid.New(), OwnerID: owner, Key: &key, Note: "for bob"}
}

// noticeTo matches a notification for recipient whose payload contains fields.
func noticeTo(recipient uuid.UUID, kind model.MessageKind, fields map[string]any) any {
	return mock.MatchedBy(func(msg model.Message) bool {
		if msg.RecipientID != recipient.String() || msg.Kind != kind {
			return false
		}
		var payload map[string]any
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return false
		}
		for k, v := range fields {
			if payload[k] != v {
				return false
			}
		}
		return true
	})
}

func TestChannel_Create(t *testing.T) {
	owner := uuid.New()

	t.Run("success", func(t *testing.T) {
		d := newChannelDeps()
		d.users.On("GetByID", mock.Anything, owner).Return(model.User{ID: owner, Role: model.RoleUser}, nil)
		d.channels.On("KeyExists", mock.Anything, mock.Anything).Return(false, nil).Once()
		d.channels.On("Create", mock.Anything, mock.MatchedBy(func(c model.Channel) bool {
			return c.OwnerID == owner && c.Key != nil && c.Note == "note" && c.PartnerID == nil
		})).Return(model.Channel{ID: uuid.New(), OwnerID: owner}, nil).Once()

		_, err := d.service().Create(context.Background(), owner, "note")
		require.NoError(t, err)
		d.assertExpectations(t)
	})

	t.Run("retries colliding keys", func(t *testing.T) {
		d := newChannelDeps()
		d.users.On("GetByID", mock.Anything, owner).Return(model.User{ID: owner}, nil)
		d.channels.On("KeyExists", mock.Anything, "first").Return(true, nil).Once()
		d.channels.On("KeyExists", mock.Anything, "second").Return(false, nil).Once()
		d.channels.On("Create", mock.Anything, mock.MatchedBy(func(c model.Channel) bool {
			return *c.Key == "second"
		})).Return(model.Channel{}, nil).Once()

		keys := []string{"first", "second"}
		svc := d.service()
		svc.generate = func() (string, error) {
			k := keys[0]
			keys = keys[1:]
			return k, nil
		}

		_, err := svc.Create(context.Background(), owner, "")
		require.NoError(t, err)
		d.assertExpectations(t)
	})

	t.Run("guest forbidden", func(t *testing.T) {
		d := newChannelDeps()
		d.users.On("GetByID", mock.Anything, owner).Return(model.User{ID: owner, Role: model.RoleGuest}, nil)

		_, err := d.service().Create(context.Background(), owner, "")
		requireAPIStatus(t, err, http.StatusForbidden)
	})
}

func TestGenerateKey(t *testing.T) {
	alnum := regexp.MustCompile(`^[A-Za-z0-9]{16}$`)
	seen := make(map[string]struct{})
	for range 50 {
		key, err := generateKey()
		require.NoError(t, err)
		assert.Regexp(t, alnum, key)
		seen[key] = struct{}{}
	}
	assert.Len(t, seen, 50)
}

func TestChannel_Join(t *testing.T) {
	owner, joiner := uuid.New(), uuid.New()
	channel := openChannel(owner)
	requestID := uuid.New()

	t.Run("notifies owner", func(t *testing.T) {
		d := newChannelDeps()
		d.users.On("GetByID", mock.Anything, joiner).Return(model.User{ID: joiner, Username: "bob"}, nil)
		d.channels.On("GetByKey", mock.Anything, *channel.Key).Return(channel, nil)
		d.requests.On("Create", mock.Anything, mock.MatchedBy(func(r model.JoinRequest) bool {
			return r.ChannelID == channel.ID && r.UserID == joiner
		})).Return(model.JoinRequest{ID: requestID, ChannelID: channel.ID, UserID: joiner}, nil).Once()
		d.notifier.On("Notify", mock.Anything, noticeTo(owner, model.KindControl, map[string]any{
			"event":      EventJoinRequest,
			"request_id": requestID.String(),
			"username":   "bob",
			"sender_id":  joiner.String(),
		})).Return(nil).Once()

		res, err := d.service().Join(context.Background(), joiner, *channel.Key)
		require.NoError(t, err)
		assert.Equal(t, JoinResult{ChannelID: channel.ID, PartnerID: owner}, res)
		d.assertExpectations(t)
	})

	t.Run("notify failure does not fail the join", func(t *testing.T) {
		d := newChannelDeps()
		d.users.On("GetByID", mock.Anything, joiner).Return(model.User{ID: joiner}, nil)
		d.channels.On("GetByKey", mock.Anything, *channel.Key).Return(channel, nil)
		d.requests.On("Create", mock.Anything, mock.Anything).Return(model.JoinRequest{ID: requestID}, nil)
		d.notifier.On("Notify", mock.Anything, mock.Anything).Return(assert.AnError)

		_, err := d.service().Join(context.Background(), joiner, *channel.Key)
		require.NoError(t, err)
	})

	tests := []struct {
		name   string
		user   model.User
		key    string
		setup  func(channelDeps)
		status int
	}{
		{
			name:   "guest",
			user:   model.User{ID: joiner, Role: model.RoleGuest},
			key:    *channel.Key,
			setup:  func(channelDeps) {},
			status: http.StatusForbidden,
		},
		{
			name: "unknown key",
			user: model.User{ID: joiner},
			key:  "nope",
			setup: func(d channelDeps) {
				d.channels.On("GetByKey", mock.Anything, "nope").Return(model.Channel{}, model.ErrNotFound)
			},
			status: http.StatusNotFound,
		},
		{
			name: "own channel",
			user: model.User{ID: owner},
			key:  *channel.Key,
			setup: func(d channelDeps) {
				d.channels.On("GetByKey", mock.Anything, *channel.Key).Return(channel, nil)
			},
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newChannelDeps()
			d.users.On("GetByID", mock.Anything, tt.user.ID).Return(tt.user, nil)
			tt.setup(d)

			_, err := d.service().Join(context.Background(), tt.user.ID, tt.key)
			requireAPIStatus(t, err, tt.status)
			d.requests.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestChannel_ListChats(t *testing.T) {
	me, alice, ghost := uuid.New(), uuid.New(), uuid.New()
	withAlice := pairedChannel(me, alice)
	withGhost := pairedChannel(ghost, me)
	withAlice.IsE2EE = true

	d := newChannelDeps()
	d.channels.On("ListPaired", mock.Anything, me).Return([]model.Channel{withAlice, withGhost}, nil)
	d.users.On("GetByID", mock.Anything, alice).Return(model.User{ID: alice, Email: "alice@x", Username: "alice"}, nil)
	d.users.On("GetByID", mock.Anything, ghost).Return(model.User{}, model.ErrNotFound)

	chats, err := d.service().ListChats(context.Background(), me)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, withAlice.ID, chats[0].ChannelID)
	assert.Equal(t, alice, chats[0].PartnerID)
	assert.Equal(t, "alice", chats[0].Partner.Username)
	assert.Empty(t, chats[0].Partner.Email)
	assert.True(t, chats[0].IsE2EE)
}

func TestChannel_GetChatDetails(t *testing.T) {
	me, partner, stranger := uuid.New(), uuid.New(), uuid.New()
	paired := pairedChannel(partner, me)
	open := openChannel(me)

	d := newChannelDeps()
	d.channels.On("GetByID", mock.Anything, paired.ID).Return(paired, nil)
	d.channels.On("GetByID", mock.Anything, open.ID).Return(open, nil)
	d.channels.On("GetByID", mock.Anything, mock.Anything).Return(model.Channel{}, model.ErrNotFound)
	d.users.On("GetByID", mock.Anything, partner).Return(model.User{ID: partner, Username: "p"}, nil)

	svc := d.service()

	chat, err := svc.GetChatDetails(context.Background(), me, paired.ID)
	require.NoError(t, err)
	assert.Equal(t, partner, chat.PartnerID)

	_, err = svc.GetChatDetails(context.Background(), stranger, paired.ID)
	requireAPIStatus(t, err, http.StatusForbidden)

	_, err = svc.GetChatDetails(context.Background(), me, open.ID)
	requireAPIStatus(t, err, http.StatusNotFound)

	_, err = svc.GetChatDetails(context.Background(), me, uuid.New())
	requireAPIStatus(t, err, http.StatusNotFound)
}

func TestChannel_GetChatAndE2EEStatus(t *testing.T) {
	me, partner := uuid.New(), uuid.New()
	channel := pairedChannel(me, partner)
	channel.IsE2EE = true

	d := newChannelDeps()
	d.channels.On("GetByMembers", mock.Anything, me, partner).Return(channel, nil)
	d.channels.On("GetByMembers", mock.Anything, me, mock.Anything).Return(model.Channel{}, model.ErrNotFound)
	d.users.On("GetByID", mock.Anything, partner).Return(model.User{ID: partner}, nil)

	svc := d.service()

	chat, err := svc.GetChat(context.Background(), me, partner)
	require.NoError(t, err)
	assert.Equal(t, channel.ID, chat.ChannelID)
	assert.True(t, chat.IsE2EE)

	enabled, err := svc.GetE2EEStatus(context.Background(), me, partner)
	require.NoError(t, err)
	assert.True(t, enabled)

	_, err = svc.GetE2EEStatus(context.Background(), me, uuid.New())
	requireAPIStatus(t, err, http.StatusNotFound)
}

func TestChannel_DeleteChat(t *testing.T) {
	me, partner := uuid.New(), uuid.New()
	channel := pairedChannel(partner, me)

	d := newChannelDeps()
	d.users.On("GetByID", mock.Anything, me).Return(model.User{ID: me}, nil)
	d.channels.On("GetByMembers", mock.Anything, me, partner).Return(channel, nil)
	d.publicKeys.On("DeleteByChannel", mock.Anything, channel.ID).Return(nil).Once()
	d.channels.On("DeleteByMembers", mock.Anything, me, partner).Return(nil).Once()

	require.NoError(t, d.service().DeleteChat(context.Background(), me, partner))
	d.assertExpectations(t)

	guest := newChannelDeps()
	guest.users.On("GetByID", mock.Anything, me).Return(model.User{ID: me, Role: model.RoleGuest}, nil)
	requireAPIStatus(t, guest.service().DeleteChat(context.Background(), me, partner), http.StatusForbidden)
}

func TestChannel_SetE2EE(t *testing.T) {
	me, partner := uuid.New(), uuid.New()
	channel := pairedChannel(me, partner)

	for _, enabled := range []bool{true, false} {
		subType := map[bool]string{true: "enable", false: "disable"}[enabled]
		t.Run(subType, func(t *testing.T) {
			d := newChannelDeps()
			d.channels.On("GetByID", mock.Anything, channel.ID).Return(channel, nil)
			d.channels.On("SetE2EE", mock.Anything, channel.ID, enabled).Return(nil).Once()
			d.notifier.On("Notify", mock.Anything, noticeTo(partner, model.KindContent, map[string]any{
				"type":       TypeE2EEStatus,
				"sub_type":   subType,
				"message":    "",
				"sender_id":  me.String(),
				"channel_id": channel.ID.String(),
			})).Return(nil).Once()

			require.NoError(t, d.service().SetE2EE(context.Background(), me, channel.ID, enabled))
			d.assertExpectations(t)
		})
	}

	t.Run("not a member", func(t *testing.T) {
		d := newChannelDeps()
		d.channels.On("GetByID", mock.Anything, channel.ID).Return(channel, nil)

		err := d.service().SetE2EE(context.Background(), uuid.New(), channel.ID, true)
		requireAPIStatus(t, err, http.StatusForbidden)
		d.channels.AssertNotCalled(t, "SetE2EE", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestChannel_StorePublicKey(t *testing.T) {
	me, partner := uuid.New(), uuid.New()
	channel := pairedChannel(partner, me)

	t.Run("first key is not announced", func(t *testing.T) {
		d := newChannelDeps()
		d.channels.On("GetByID", mock.Anything, channel.ID).Return(channel, nil)
		d.publicKeys.On("Upsert", mock.Anything, mock.MatchedBy(func(k model.PublicKey) bool {
			return k.ChannelID == channel.ID && k.UserID == me && k.PublicKey == "pk"
		})).Return(false, nil).Once()

		require.NoError(t, d.service().StorePublicKey(context.Background(), me, channel.ID, "pk"))
		d.assertExpectations(t)
	})

	t.Run("replaced key is announced to the partner", func(t *testing.T) {
		d := newChannelDeps()
		d.channels.On("GetByID", mock.Anything, channel.ID).Return(channel, nil)
		d.publicKeys.On("Upsert", mock.Anything, mock.Anything).Return(true, nil).Once()
		d.notifier.On("Notify", mock.Anything, noticeTo(partner, model.KindControl, map[string]any{
			"event":        EventUpdatePublicKey,
			"sender_id":    me.String(),
			"recipient_id": partner.String(),
			"channel_id":   channel.ID.String(),
		})).Return(nil).Once()

		require.NoError(t, d.service().StorePublicKey(context.Background(), me, channel.ID, "pk2"))
		d.assertExpectations(t)
	})

	t.Run("empty key", func(t *testing.T) {
		err := newChannelDeps().service().StorePublicKey(context.Background(), me, channel.ID, "")
		requireAPIStatus(t, err, http.StatusBadRequest)
	})
}

func TestChannel_GetPublicKey(t *testing.T) {
	me, partner := uuid.New(), uuid.New()
	channel := pairedChannel(me, partner)

	d := newChannelDeps()
	d.channels.On("GetByID", mock.Anything, channel.ID).Return(channel, nil)
	d.publicKeys.On("Get", mock.Anything, channel.ID, partner).Return(model.PublicKey{PublicKey: "pk"}, nil).Once()

	svc := d.service()

	key, err := svc.GetPublicKey(context.Background(), me, channel.ID, partner)
	require.NoError(t, err)
	assert.Equal(t, "pk", key)

	_, err = svc.GetPublicKey(context.Background(), me, channel.ID, uuid.New())
	requireAPIStatus(t, err, http.StatusNotFound)

	d.publicKeys.On("Get", mock.Anything, channel.ID, partner).Return(model.PublicKey{}, model.ErrNotFound)
	_, err = svc.GetPublicKey(context.Background(), me, channel.ID, partner)
	requireAPIStatus(t, err, http.StatusNotFound)
}

func TestChannel_RefreshConnection(t *testing.T) {
	me, partner := uuid.New(), uuid.New()
	channel := pairedChannel(me, partner)

	d := newChannelDeps()
	d.channels.On("GetByID", mock.Anything, channel.ID).Return(channel, nil)
	d.notifier.On("Notify", mock.Anything, noticeTo(partner, model.KindControl, map[string]any{
		"event": EventUpdatePublicKey,
	})).Return(nil).Once()

	require.NoError(t, d.service().RefreshConnection(context.Background(), me, channel.ID))
	d.assertExpectations(t)
}

func TestChannel_KeysData(t *testing.T) {
	me, bob, gone := uuid.New(), uuid.New(), uuid.New()
	channel := openChannel(me)
	reqBob := model.JoinRequest{ID: uuid.New(), ChannelID: channel.ID, UserID: bob}
	reqGone := model.JoinRequest{ID: uuid.New(), ChannelID: channel.ID, UserID: gone}

	d := newChannelDeps()
	d.channels.On("ListOpenByOwner", mock.Anything, me).Return([]model.Channel{channel}, nil)
	d.requests.On("ListByChannel", mock.Anything, channel.ID).Return([]model.JoinRequest{reqBob, reqGone}, nil)
	d.users.On("GetByID", mock.Anything, bob).Return(model.User{ID: bob, Username: "bob", ProfilePhotoURL: "u"}, nil)
	d.users.On("GetByID", mock.Anything, gone).Return(model.User{}, model.ErrNotFound)

	data, err := d.service().KeysData(context.Background(), me)
	require.NoError(t, err)
	require.Len(t, data, 1)
	assert.Equal(t, channel.ID, data[0].Channel.ID)
	assert.Equal(t, []PendingRequest{{ID: reqBob.ID, UserID: bob, Username: "bob", ProfilePhotoURL: "u"}}, data[0].Requests)
}

func TestChannel_EditKeyNote(t *testing.T) {
	me := uuid.New()
	channel := openChannel(me)

	d := newChannelDeps()
	d.channels.On("GetByID", mock.Anything, channel.ID).Return(channel, nil)
	d.channels.On("UpdateNote", mock.Anything, channel.ID, "new").Return(nil).Once()

	svc := d.service()
	require.NoError(t, svc.EditKeyNote(context.Background(), me, channel.ID, "new"))
	requireAPIStatus(t, svc.EditKeyNote(context.Background(), uuid.New(), channel.ID, "x"), http.StatusNotFound)
	d.assertExpectations(t)
}

func TestChannel_DeleteKey(t *testing.T) {
	me := uuid.New()
	channel := openChannel(me)

	d := newChannelDeps()
	d.channels.On("GetByID", mock.Anything, channel.ID).Return(channel, nil)
	d.requests.On("DeleteByChannel", mock.Anything, channel.ID).Return(nil).Once()
	d.publicKeys.On("DeleteByChannel", mock.Anything, channel.ID).Return(nil).Once()
	d.channels.On("Delete", mock.Anything, channel.ID).Return(nil).Once()

	svc := d.service()
	require.NoError(t, svc.DeleteKey(context.Background(), me, channel.ID))
	d.assertExpectations(t)

	requireAPIStatus(t, svc.DeleteKey(context.Background(), uuid.New(), channel.ID), http.StatusNotFound)
}

func TestChannel_RejectRequest(t *testing.T) {
	me, bob := uuid.New(), uuid.New()
	channel := openChannel(me)
	request := model.JoinRequest{ID: uuid.New(), ChannelID: channel.ID, UserID: bob}

	t.Run("success", func(t *testing.T) {
		d := newChannelDeps()
		d.requests.On("GetByID", mock.Anything, request.ID).Return(request, nil)
		d.channels.On("GetByID", mock.Anything, channel.ID).Return(channel, nil)
		d.requests.On("Delete", mock.Anything, request.ID).Return(nil).Once()
		d.publicKeys.On("Delete", mock.Anything, channel.ID, bob).Return(model.ErrNotFound).Once()

		require.NoError(t, d.service().RejectRequest(context.Background(), me, request.ID))
		d.assertExpectations(t)
	})

	t.Run("unknown request", func(t *testing.T) {
		d := newChannelDeps()
		d.requests.On("GetByID", mock.Anything, mock.Anything).Return(model.JoinRequest{}, model.ErrNotFound)

		requireAPIStatus(t, d.service().RejectRequest(context.Background(), me, uuid.New()), http.StatusNotFound)
	})

	t.Run("channel of another owner", func(t *testing.T) {
		d := newChannelDeps()
		d.requests.On("GetByID", mock.Anything, request.ID).Return(request, nil)
		d.channels.On("GetByID", mock.Anything, channel.ID).Return(channel, nil)

		requireAPIStatus(t, d.service().RejectRequest(context.Background(), bob, request.ID), http.StatusNotFound)
		d.requests.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

func TestChannel_ApproveRequest(t *testing.T) {
	me, bob := uuid.New(), uuid.New()
	channel := openChannel(me)
	request := model.JoinRequest{ID: uuid.New(), ChannelID: channel.ID, UserID: bob}

	t.Run("pairs and notifies the requester", func(t *testing.T) {
		d := newChannelDeps()
		d.requests.On("GetByID", mock.Anything, request.ID).Return(request, nil)
		d.channels.On("GetByID", mock.Anything, channel.ID).Return(channel, nil)
		d.channels.On("Pair", mock.Anything, channel.ID, bob).Return(nil).Once()
		d.requests.On("DeleteByChannel", mock.Anything, channel.ID).Return(nil).Once()
		d.notifier.On("Notify", mock.Anything, noticeTo(bob, model.KindControl, map[string]any{
			"event":     EventChannelPaired,
			"sender_id": me.String(),
		})).Return(nil).Once()

		res, err := d.service().ApproveRequest(context.Background(), me, request.ID)
		require.NoError(t, err)
		assert.Equal(t, JoinResult{ChannelID: channel.ID, PartnerID: bob}, res)
		d.assertExpectations(t)
	})

	t.Run("already paired", func(t *testing.T) {
		d := newChannelDeps()
		d.requests.On("GetByID", mock.Anything, request.ID).Return(request, nil)
		d.channels.On("GetByID", mock.Anything, channel.ID).Return(channel, nil)
		d.channels.On("Pair", mock.Anything, channel.ID, bob).Return(model.ErrNotFound)

		_, err := d.service().ApproveRequest(context.Background(), me, request.ID)
		requireAPIStatus(t, err, http.StatusNotFound)
		d.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
	})
}
