package services

import (
	"context"
	"fmt"
	"strings"

	pubnub "github.com/pubnub/go/v7"
	"github.com/rs/zerolog"

	"wedding-gate/config"
	"wedding-gate/internal/flow"
	"wedding-gate/utils"
)

// PublishFunc delivers one message to a channel.
type PublishFunc func(channel string, message map[string]any) error

type outbound struct {
	channel string
	message map[string]any
}

// Notifier pushes session transitions to the guest's device over PubNub. It
// serves as the flow's navigator, review-site opener and event sink.
// Messages are queued and sent by Run so gate transitions never wait on the
// network.
type Notifier struct {
	publish    PublishFunc
	galleryURL string
	queue      chan outbound
	log        zerolog.Logger
}

func NewNotifier(publish PublishFunc, galleryURLTemplate string, logger zerolog.Logger) *Notifier {
	n := &Notifier{
		publish:    publish,
		galleryURL: galleryURLTemplate,
		queue:      make(chan outbound, 256),
		log:        utils.Component(logger, "notifier"),
	}
	if n.publish == nil {
		n.publish = n.logOnly
	}
	return n
}

// NewPubNubPublisher returns a PublishFunc backed by PubNub, or nil when no
// publish key is configured.
func NewPubNubPublisher(cfg *config.Config) PublishFunc {
	if cfg.PubNubPublishKey == "" {
		return nil
	}

	pnConfig := pubnub.NewConfigWithUserId(pubnub.UserId(cfg.PubNubUserID))
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey
	pn := pubnub.NewPubNub(pnConfig)

	return func(channel string, message map[string]any) error {
		_, _, err := pn.Publish().
			Channel(channel).
			Message(message).
			Execute()
		return err
	}
}

func GuestChannel(sessionID string) string {
	return fmt.Sprintf("guest-%s", sessionID)
}

// GalleryURL renders the gallery location for a wedding.
func (n *Notifier) GalleryURL(weddingID string) string {
	if !strings.Contains(n.galleryURL, "%s") {
		return n.galleryURL
	}
	return fmt.Sprintf(n.galleryURL, weddingID)
}

func (n *Notifier) ProceedToGallery(_ context.Context, sessionID, weddingID string) {
	n.enqueue(sessionID, map[string]any{
		"type":        "proceed_to_gallery",
		"wedding_id":  weddingID,
		"gallery_url": n.GalleryURL(weddingID),
	})
}

func (n *Notifier) Open(_ context.Context, sessionID, url string) {
	n.enqueue(sessionID, map[string]any{
		"type": "open_review_site",
		"url":  url,
	})
}

func (n *Notifier) Publish(sessionID string, ev flow.Event) {
	msg := map[string]any{
		"type":       string(ev.Type),
		"wedding_id": ev.WeddingID,
	}
	if ev.Rating > 0 {
		msg["rating"] = ev.Rating
		msg["high_flow"] = ev.HighFlow
	}
	n.enqueue(sessionID, msg)
}

func (n *Notifier) enqueue(sessionID string, message map[string]any) {
	select {
	case n.queue <- outbound{channel: GuestChannel(sessionID), message: message}:
	default:
		n.log.Warn().Str("session_id", sessionID).Interface("type", message["type"]).Msg("notification queue full, dropping message")
	}
}

// Run sends queued messages until ctx is done, then flushes what is left.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case msg := <-n.queue:
			n.send(msg)
		case <-ctx.Done():
			for {
				select {
				case msg := <-n.queue:
					n.send(msg)
				default:
					return
				}
			}
		}
	}
}

func (n *Notifier) send(msg outbound) {
	if err := n.publish(msg.channel, msg.message); err != nil {
		n.log.Error().Err(err).Str("channel", msg.channel).Interface("type", msg.message["type"]).Msg("failed to publish notification")
	}
}

func (n *Notifier) logOnly(channel string, message map[string]any) error {
	n.log.Debug().Str("channel", channel).Interface("message", message).Msg("notification (pubnub disabled)")
	return nil
}
