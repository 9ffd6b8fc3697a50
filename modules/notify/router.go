package notify

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kerjago/kerjago/pkg/httpx"
	"github.com/kerjago/kerjago/pkg/logger"
	"github.com/kerjago/kerjago/pkg/metrics"
	"github.com/kerjago/kerjago/pkg/sse"
	"github.com/kerjago/kerjago/pkg/token"
	notifysvc "github.com/kerjago/kerjago/svc/notify"
)

// keepAliveInterval paces the comment frames that keep idle stream
// connections from being reaped by proxies.
const keepAliveInterval = 30 * time.Second

// RouterOptions configures the notifications HTTP module.
type RouterOptions struct {
	Manager  *notifysvc.Manager
	Registry *sse.Registry
	Auth     func(http.Handler) http.Handler
	Logger   *slog.Logger
}

// Router mounts the notification endpoints, all authenticated:
//
//	GET  /stream  live server-sent event stream, one per user
//	GET  /        notification log, newest first, with unread count
//	POST /read    mark notifications read, by id list or all at once
func Router(opts RouterOptions) chi.Router {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(opts.Auth)

	r.Get("/stream", handleStream(opts.Registry, log))
	r.Get("/", handleList(opts.Manager))
	r.Post("/read", handleMarkRead(opts.Manager))

	return r
}

// handleStream holds the connection open and relays events from the live
// registry. Registering replaces the user's previous connection, so
// opening the page twice silently moves the stream to the newest tab.
func handleStream(registry *sse.Registry, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := token.UserID(r.Context())
		if !ok {
			httpx.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			httpx.Error(w, http.StatusInternalServerError, "streaming unsupported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		conn := registry.Register(userID)
		defer registry.Unregister(userID, conn)
		log.LogAttrs(r.Context(), slog.LevelDebug, "notification stream opened", logger.UserID(userID))

		metrics.LiveConnections.Inc()
		defer metrics.LiveConnections.Dec()

		fmt.Fprint(w, "event: connected\ndata: {}\n\n")
		flusher.Flush()

		keepAlive := time.NewTicker(keepAliveInterval)
		defer keepAlive.Stop()

		for {
			select {
			case <-r.Context().Done():
				return

			case <-keepAlive.C:
				fmt.Fprint(w, ": keep-alive\n\n")
				flusher.Flush()

			case ev, open := <-conn.Events():
				// A closed channel means this connection was replaced or
				// the registry shut down.
				if !open {
					return
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data)
				flusher.Flush()
			}
		}
	}
}

func handleList(manager *notifysvc.Manager) http.HandlerFunc {
	type response struct {
		Notifications []notifysvc.Notification `json:"notifications"`
		UnreadCount   int                      `json:"unread_count"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := token.UserID(r.Context())
		if !ok {
			httpx.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		q := r.URL.Query()
		listOpts := notifysvc.ListOptions{OnlyUnread: q.Get("unread") == "true"}
		if v, err := strconv.Atoi(q.Get("limit")); err == nil {
			listOpts.Limit = v
		}
		if v, err := strconv.Atoi(q.Get("offset")); err == nil {
			listOpts.Offset = v
		}

		list, err := manager.List(r.Context(), userID, listOpts)
		if err != nil {
			httpx.Error(w, http.StatusInternalServerError, "failed to list notifications")
			return
		}
		unread, err := manager.CountUnread(r.Context(), userID)
		if err != nil {
			httpx.Error(w, http.StatusInternalServerError, "failed to count notifications")
			return
		}

		httpx.JSON(w, http.StatusOK, response{Notifications: list, UnreadCount: unread})
	}
}

func handleMarkRead(manager *notifysvc.Manager) http.HandlerFunc {
	type request struct {
		IDs []string `json:"ids"`
		All bool     `json:"all"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := token.UserID(r.Context())
		if !ok {
			httpx.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req request
		if err := httpx.Decode(r, &req); err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}

		var err error
		if req.All {
			err = manager.MarkAllRead(r.Context(), userID)
		} else {
			if len(req.IDs) == 0 {
				httpx.Error(w, http.StatusBadRequest, "ids or all is required")
				return
			}
			err = manager.MarkRead(r.Context(), userID, req.IDs...)
		}
		if err != nil {
			httpx.Error(w, http.StatusInternalServerError, "failed to mark notifications read")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
