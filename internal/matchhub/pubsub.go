package matchhub

import (
	"context"
	"encoding/json"
	"log"

	"peerprep/backend/internal/models"
)

// startPubSubListener subscribes to the shared event channel and feeds every
// message into local delivery. Without a publisher the hub stays local.
func (h *Hub) startPubSubListener(ctx context.Context) {
	if h.Publisher == nil {
		return
	}
	pubsub := h.Publisher.SubscribeEvents()
	if pubsub == nil {
		log.Println("WARNING: Event fan-out unavailable, delivering events locally only")
		return
	}
	if _, err := pubsub.Receive(ctx); err != nil {
		log.Printf("WARNING: Event subscription failed, delivering events locally only: %v", err)
		_ = pubsub.Close()
		return
	}
	h.publishing.Store(true)

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()

		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					h.publishing.Store(false)
					return
				}
				var ev models.MatchEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.Printf("Error unmarshalling Redis event: %v", err)
					continue
				}
				h.dispatch(ev)
			case <-ctx.Done():
				h.publishing.Store(false)
				return
			}
		}
	}()
}
