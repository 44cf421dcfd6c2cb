package client

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_Notify_FansOutToEverySubscriber(t *testing.T) {
	c := NewChannel()
	sub1 := c.Subscribe()
	sub2 := c.Subscribe()

	c.Notify(Notification{Kind: NotifyHeadIsOpen})

	assert.Equal(t, NotifyHeadIsOpen, (<-sub1).Kind)
	assert.Equal(t, NotifyHeadIsOpen, (<-sub2).Kind)
}

func TestChannel_Notify_DropsForSlowSubscriberRatherThanBlocking(t *testing.T) {
	c := NewChannel()
	sub := c.Subscribe()

	for i := 0; i < 100; i++ {
		c.Notify(Notification{Kind: NotifyHeadIsOpen})
	}

	assert.Equal(t, NotifyHeadIsOpen, (<-sub).Kind, "at least the buffered notifications must still be delivered")
}

func TestHTTPServer_PostCommand_AssignsRequestIDWhenAbsent(t *testing.T) {
	var received Command
	handler := func(cmd Command) Notification {
		received = cmd
		return Notification{Kind: NotifyHeadIsOpen, RequestID: cmd.RequestID}
	}
	srv := NewHTTPServer(handler, NewChannel())

	body, err := json.Marshal(Command{Kind: CmdInit})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/command", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, uuid.Nil, received.RequestID)
	assert.Equal(t, received.RequestID.String(), rec.Header().Get("X-Request-Id"))

	var notif Notification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &notif))
	assert.Equal(t, received.RequestID, notif.RequestID)
}

func TestHTTPServer_PostCommand_PreservesCallerSuppliedRequestID(t *testing.T) {
	id := uuid.New()
	handler := func(cmd Command) Notification {
		return Notification{Kind: NotifyHeadIsOpen, RequestID: cmd.RequestID}
	}
	srv := NewHTTPServer(handler, NewChannel())

	body, err := json.Marshal(Command{Kind: CmdInit, RequestID: id})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/command", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, id.String(), rec.Header().Get("X-Request-Id"))
}

func TestHTTPServer_PostCommand_RejectsMalformedBody(t *testing.T) {
	srv := NewHTTPServer(func(Command) Notification { return Notification{} }, NewChannel())

	req := httptest.NewRequest(http.MethodPost, "/command", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
