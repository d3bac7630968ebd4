package share

import (
	"errors"
	"fmt"

	"era-photobooth/internal/compositor"
)

// PhotoSender is satisfied by *telegram.Client.
type PhotoSender interface {
	SendPhoto(chatID int64, name string, data []byte, caption string) error
}

// ChannelPublisher posts artifacts to one Telegram chat.
type ChannelPublisher struct {
	sender PhotoSender
	chatID int64
}

func NewChannelPublisher(sender PhotoSender, chatID int64) *ChannelPublisher {
	return &ChannelPublisher{sender: sender, chatID: chatID}
}

func (p *ChannelPublisher) Publish(art *compositor.Artifact, era string) error {
	if art == nil || len(art.PNG) == 0 {
		return errors.New("artifact is empty")
	}
	caption := era
	if caption == "" {
		caption = "Photobooth"
	}
	if err := p.sender.SendPhoto(p.chatID, "result-"+art.ID+".png", art.PNG, caption); err != nil {
		return fmt.Errorf("telegram publish: %w", err)
	}
	return nil
}
