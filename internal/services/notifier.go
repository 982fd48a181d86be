package services

import (
	"log"

	pubnub "github.com/pubnub/go/v7"
)

// Publisher pushes realtime notifications to per-wallet channels.
type Publisher interface {
	Publish(channel string, message map[string]any)
}

// PubNubPublisher is the production Publisher. Publishes are
// fire-and-forget: a lost notification never blocks reconciliation.
type PubNubPublisher struct {
	pn *pubnub.PubNub
}

func NewPubNubPublisher(pn *pubnub.PubNub) *PubNubPublisher {
	return &PubNubPublisher{pn: pn}
}

func (p *PubNubPublisher) Publish(channel string, message map[string]any) {
	_, _, err := p.pn.Publish().
		Channel(channel).
		Message(message).
		Execute()
	if err != nil {
		log.Printf("Publish: channel %s: %v", channel, err)
	}
}

// walletChannel names the notification channel of one wallet.
func walletChannel(wallet string) string {
	return "wallet-" + wallet
}
