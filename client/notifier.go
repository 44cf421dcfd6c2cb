package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-redis/redis/v7"
	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"github.com/sideledger/headnode/log"
)

var logger = log.NewModuleLogger(log.ModuleClient)

// Notifier delivers a Notification to whatever is watching the client
// side of a head. The real API server is external; Notifier is the seam
// the node dispatches effects through.
type Notifier interface {
	Notify(n Notification)
}

// Channel is the simplest Notifier: an in-process channel, used in tests
// and by the HTTP surface below to fan out to long-poll/SSE clients.
type Channel struct {
	mu   sync.Mutex
	subs []chan Notification
}

func NewChannel() *Channel { return &Channel{} }

func (c *Channel) Subscribe() <-chan Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan Notification, 64)
	c.subs = append(c.subs, ch)
	return ch
}

func (c *Channel) Notify(n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- n:
		default:
			logger.Warn("dropping notification for slow subscriber")
		}
	}
}

// Redis fans notifications out over a pub/sub channel, for deployments
// where the client API server runs out-of-process from the node.
type Redis struct {
	rdb     *redis.Client
	channel string
}

func NewRedis(rdb *redis.Client, channel string) *Redis {
	return &Redis{rdb: rdb, channel: channel}
}

func (r *Redis) Notify(n Notification) {
	data, err := json.Marshal(wireNotification{Kind: n.Kind, RequestID: n.RequestID, Reason: n.Reason, Deadline: n.Deadline, Host: n.Host})
	if err != nil {
		logger.Error("failed to marshal notification", "err", err)
		return
	}
	if err := r.rdb.Publish(r.channel, data).Err(); err != nil {
		logger.Error("failed to publish notification", "channel", r.channel, "err", err)
	}
}

type wireNotification struct {
	Kind      NotificationKind
	RequestID uuid.UUID
	Reason    string
	Deadline  uint64
	Host      string
}

// HTTPServer exposes client commands and notifications over HTTP using
// httprouter. POST /command is handed to a CommandHandler supplied by
// the caller (cmd/headnode bridges it to the Node); GET /events streams
// from a Channel.
type HTTPServer struct {
	router  *httprouter.Router
	handle  CommandHandler
	events  *Channel
}

// CommandHandler is how the HTTP surface hands a decoded Command to the
// node's single worker.
type CommandHandler func(Command) Notification

func NewHTTPServer(handle CommandHandler, events *Channel) *HTTPServer {
	s := &HTTPServer{router: httprouter.New(), handle: handle, events: events}
	s.router.POST("/command", s.postCommand)
	s.router.GET("/events", s.getEvents)
	return s
}

func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *HTTPServer) postCommand(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var cmd Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, fmt.Sprintf("bad command: %v", err), http.StatusBadRequest)
		return
	}
	if cmd.RequestID == uuid.Nil {
		cmd.RequestID = uuid.New()
	}
	n := s.handle(cmd)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-Id", cmd.RequestID.String())
	_ = json.NewEncoder(w).Encode(n)
}

func (s *HTTPServer) getEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ch := s.events.Subscribe()
	flusher, ok := w.(http.Flusher)
	w.Header().Set("Content-Type", "text/event-stream")
	for {
		select {
		case n, open := <-ch:
			if !open {
				return
			}
			_ = json.NewEncoder(w).Encode(n)
			if ok {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}
