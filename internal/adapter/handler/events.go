package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"auth-sync/internal/domain"

	"github.com/labstack/echo/v4"
)

// stateReader is the read side of the session store.
type stateReader interface {
	State() domain.SessionState
}

// EventsHandler streams session state changes as Server-Sent Events.
type EventsHandler struct {
	subscriber domain.SessionSubscriber
	store      stateReader
	probe      domain.ReadinessProbe
	heartbeat  time.Duration
	logger     *slog.Logger
}

// NewEventsHandler creates a new events handler. heartbeat is the interval
// between keep-alive comments.
func NewEventsHandler(subscriber domain.SessionSubscriber, store stateReader, probe domain.ReadinessProbe, heartbeat time.Duration, logger *slog.Logger) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &EventsHandler{
		subscriber: subscriber,
		store:      store,
		probe:      probe,
		heartbeat:  heartbeat,
		logger:     logger,
	}
}

// Handle processes GET /session/events. The current state is sent first,
// then every later change. A slow client only ever sees the newest state.
func (h *EventsHandler) Handle(c echo.Context) error {
	if !h.probe.IsReady() {
		return mapDomainError(domain.ErrNotReady)
	}

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming not supported")
	}

	ctx := c.Request().Context()
	updates := make(chan domain.SessionState, 1)
	unsubscribe := h.subscriber.Subscribe(func(state domain.SessionState) {
		for {
			select {
			case updates <- state:
				return
			default:
			}
			// Drop the unread older state.
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	header := c.Response().Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	current := h.store.State()
	if err := h.writeState(c, current); err != nil {
		return nil
	}
	flusher.Flush()
	lastSent := current.Version

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.DebugContext(ctx, "session event stream closed by client")
			return nil
		case state := <-updates:
			if state.Version <= lastSent {
				continue
			}
			if err := h.writeState(c, state); err != nil {
				h.logger.InfoContext(ctx, "session event client disconnected", "error", err)
				return nil
			}
			lastSent = state.Version
		case <-ticker.C:
			if _, err := c.Response().Write([]byte(": heartbeat\n\n")); err != nil {
				h.logger.InfoContext(ctx, "session event client disconnected during heartbeat", "error", err)
				return nil
			}
		}
		flusher.Flush()
	}
}

func (h *EventsHandler) writeState(c echo.Context, state domain.SessionState) error {
	data, err := json.Marshal(toSessionResponse(state))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.Response(), "id: %d\nevent: session\ndata: %s\n\n", state.Version, data)
	return err
}
