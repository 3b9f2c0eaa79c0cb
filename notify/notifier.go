package notify

import (
	"context"
	"fmt"
	"time"

	"giftrank/events"
	"giftrank/models"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// embedSender is the part of *discordgo.Session the notifier uses
type embedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// talentLookup resolves talent display names
type talentLookup interface {
	GetByID(ctx context.Context, id string) (*models.Talent, error)
}

// GiftNotifier posts a Discord embed to store staff for every settled gift
type GiftNotifier struct {
	session   embedSender
	channelID string
	talents   talentLookup
}

// NewDiscordSession opens a REST-only discordgo session for a bot token
func NewDiscordSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	return session, nil
}

// NewGiftNotifier creates a notifier posting to channelID
func NewGiftNotifier(session embedSender, channelID string, talents talentLookup) *GiftNotifier {
	return &GiftNotifier{
		session:   session,
		channelID: channelID,
		talents:   talents,
	}
}

// Attach subscribes the notifier to settled payments on the bus
func (n *GiftNotifier) Attach(bus *events.Bus) {
	bus.Subscribe(events.EventTypePaymentSettled, func(ctx context.Context, event events.Event) {
		settled, ok := event.(events.PaymentSettledEvent)
		if !ok {
			return
		}
		if err := n.NotifyPaymentSettled(ctx, settled); err != nil {
			log.WithFields(log.Fields{
				"externalPaymentId": settled.ExternalPaymentID,
				"error":             err,
			}).Error("Failed to send gift notification")
		}
	})
}

// NotifyPaymentSettled posts one gift embed
func (n *GiftNotifier) NotifyPaymentSettled(ctx context.Context, event events.PaymentSettledEvent) error {
	recipient := "Store"
	if event.TalentID != "" {
		recipient = event.TalentID
		talent, err := n.talents.GetByID(ctx, event.TalentID)
		if err != nil {
			log.WithError(err).Warn("Failed to resolve talent name for notification")
		} else if talent != nil {
			recipient = talent.Name
		}
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🎁 New gift received",
		Description: fmt.Sprintf("**%s** received a gift", recipient),
		Color:       ColorGift,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Amount", Value: FormatYen(event.Amount), Inline: true},
			{Name: "Month", Value: event.MonthKey, Inline: true},
		},
		Timestamp: event.SettledAt.UTC().Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: event.ExternalPaymentID},
	}
	if event.OfferLabel != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Gift", Value: event.OfferLabel, Inline: true})
	}

	if _, err := n.session.ChannelMessageSendEmbed(n.channelID, embed); err != nil {
		return fmt.Errorf("failed to send gift notification: %w", err)
	}

	return nil
}
