package chat

import (
	"time"

	"github.com/ashureev/glossy/internal/arith"
	"github.com/ashureev/glossy/internal/domain"
	"github.com/ashureev/glossy/internal/intent"
	"github.com/ashureev/glossy/internal/search"
)

const (
	greetingText = "Hello! I'm Glossy."
	fallbackText = "I couldn't find that internally."
)

// Reply builds the bot message for out, using fallback for web searches.
func Reply(out intent.Outcome, fallback search.Engine, at time.Time) domain.ChatMessage {
	return replyBuilder{fallback: fallback}.message(out, at)
}

// replyBuilder turns resolved outcomes into bot messages.
type replyBuilder struct {
	fallback search.Engine
}

func (b replyBuilder) message(out intent.Outcome, at time.Time) domain.ChatMessage {
	kind := string(out.Kind)
	switch out.Kind {
	case intent.KindGreeting:
		return domain.NewBotMessage(greetingText, kind, nil, at)
	case intent.KindMediaSearch:
		return domain.NewBotMessage("YouTube:", kind, &domain.Link{
			Href:  search.MediaURL(out.Query),
			Label: "Watch Video",
		}, at)
	case intent.KindArithmetic:
		return domain.NewBotMessage("Result: "+arith.Format(out.Value), kind, nil, at)
	case intent.KindKnowledge:
		return domain.NewBotMessage(out.Summary, kind, &domain.Link{
			Href:  out.SourceURL,
			Label: "Read more",
		}, at)
	default:
		return domain.NewBotMessage(fallbackText, string(intent.KindWebSearch), &domain.Link{
			Href:  b.fallback.URL(out.Query),
			Label: "Search " + b.fallback.Name,
		}, at)
	}
}
