package matchhub

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"peerprep/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// Commands is the part of the coordinator a socket can drive.
type Commands interface {
	Accept(userID, matchID string) (models.SessionState, error)
	Reject(userID, matchID string) (models.SessionState, error)
	Cancel(userID string) models.CancelResult
}

// Publisher fans events out to every instance. storage.Service implements it.
type Publisher interface {
	PublishEvent(ev models.MatchEvent) error
	SubscribeEvents() *redis.PubSub
}

const eventBuffer = 256

// Hub keeps the connected clients of this instance and pushes coordinator
// events to them. Clients is only touched by the Run goroutine.
type Hub struct {
	Clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client

	Commands  Commands
	Publisher Publisher

	// CancelOnDisconnect cancels a user's wait or session when their last
	// socket goes away.
	CancelOnDisconnect bool

	eventsCh   chan models.MatchEvent
	done       chan struct{}
	publishing atomic.Bool
}

func NewHub(commands Commands, publisher Publisher) *Hub {
	return &Hub{
		Clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		Commands:     commands,
		Publisher:    publisher,
		eventsCh:     make(chan models.MatchEvent, eventBuffer),
		done:         make(chan struct{}),
	}
}

// Run processes registrations and deliveries until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	h.startPubSubListener(ctx)
	defer close(h.done)

	for {
		select {
		case client := <-h.RegisterCh:
			h.register(client)

		case client := <-h.UnregisterCh:
			h.unregister(client)

		case ev := <-h.eventsCh:
			h.deliver(ev)

		case <-ctx.Done():
			for userID, client := range h.Clients {
				client.Close()
				delete(h.Clients, userID)
			}
			return
		}
	}
}

func (h *Hub) register(client Client) {
	userID := client.GetUserID()
	if old, ok := h.Clients[userID]; ok && old != client {
		log.Printf("INFO: Replacing existing connection of %s", userID)
		old.Close()
	}
	h.Clients[userID] = client
	log.Printf("INFO: Client %s connected", userID)
}

// unregister drops client if it is still the user's current connection and,
// with CancelOnDisconnect, cancels whatever the user was doing.
func (h *Hub) unregister(client Client) {
	userID := client.GetUserID()
	current, ok := h.Clients[userID]
	if !ok || current != client {
		return
	}
	delete(h.Clients, userID)
	client.Close()
	log.Printf("INFO: Client %s disconnected", userID)

	if h.CancelOnDisconnect && h.Commands != nil {
		// Cancel may wait for a session to be released, which in turn
		// notifies this hub; never call it from the Run goroutine.
		go func() {
			if res := h.Commands.Cancel(userID); res != models.CancelNone {
				log.Printf("INFO: Disconnect of %s resolved as %s", userID, res)
			}
		}()
	}
}

func (h *Hub) deliver(ev models.MatchEvent) {
	for _, userID := range ev.Recipients {
		client, ok := h.Clients[userID]
		if !ok {
			continue
		}
		select {
		case client.GetSendChannel() <- ev:
		default:
			log.Printf("WARNING: Client %s is too slow, dropping connection", userID)
			h.unregister(client)
		}
	}
}

// Notify implements matching.Notifier. With a working publisher the event
// goes through Redis so every instance sees it; otherwise it is delivered
// locally.
func (h *Hub) Notify(ev models.MatchEvent) {
	if h.publishing.Load() {
		err := h.Publisher.PublishEvent(ev)
		if err == nil {
			return
		}
		log.Printf("WARNING: Failed to publish %s event, delivering locally: %v", ev.Type, err)
	}
	h.dispatch(ev)
}

// dispatch hands ev to the Run goroutine for local delivery.
func (h *Hub) dispatch(ev models.MatchEvent) {
	select {
	case h.eventsCh <- ev:
	case <-h.done:
	}
}

// Execute runs one socket command for userID and builds the reply.
func (h *Hub) Execute(userID string, cmd models.ClientCommand) models.MatchEvent {
	reply := models.MatchEvent{
		Type:       models.EventCommandResult,
		Recipients: []string{userID},
		Actor:      userID,
		MatchID:    cmd.MatchID,
		At:         time.Now(),
	}

	var (
		state models.SessionState
		err   error
	)
	switch kind := strings.ToLower(strings.TrimSpace(cmd.Type)); kind {
	case "cancel":
		reply.Status = string(h.Commands.Cancel(userID))
		return reply
	default:
		decision, ok := models.ParseDecision(kind)
		if !ok {
			reply.Error = fmt.Sprintf("unknown command %q", cmd.Type)
			return reply
		}
		if cmd.MatchID == "" {
			reply.Error = "matchId is required"
			return reply
		}
		if decision == models.DecisionAccepted {
			state, err = h.Commands.Accept(userID, cmd.MatchID)
		} else {
			state, err = h.Commands.Reject(userID, cmd.MatchID)
		}
	}

	if err != nil {
		reply.Error = err.Error()
	}
	reply.Status = string(state)
	return reply
}

// Reply sends a command result back to the user's own connections.
func (h *Hub) Reply(ev models.MatchEvent) {
	h.dispatch(ev)
}
