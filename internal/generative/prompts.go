package generative

import (
	"fmt"
	"strings"

	"soulspark/internal/models"
)

const (
	// TextFallback is returned in place of generated text when the provider fails.
	TextFallback = "I'm sorry, I couldn't generate content at this moment. Please try again."
	// ChatFallback is returned in place of a companion reply when the provider fails.
	ChatFallback = "I'm having a little trouble connecting right now. Let's try again in a moment."
	// ImageFailureMessage is the user-facing message for failed background generation.
	ImageFailureMessage = "Failed to generate an AI background. Please try again."
	// ChatGreeting opens every companion conversation.
	ChatGreeting = "Hello! I'm your AI companion. How can I support you today?"

	// MaxChatHistory is how many prior messages are sent with each chat turn.
	MaxChatHistory = 10

	companionInstruction = "You are SoulBot, a compassionate and supportive AI companion from the SoulSpark platform. " +
		"Your role is to listen, offer comfort, and provide gentle guidance. " +
		"Keep your responses concise, empathetic, and encouraging. Do not give medical advice. " +
		"Use a warm and friendly tone."
)

func textPrompt(mood models.Mood, request string) string {
	var b strings.Builder
	b.WriteString("You are SoulSpark, an AI that generates creative and emotional content.\n")
	fmt.Fprintf(&b, "The user is feeling \"%s\".\n", mood)
	fmt.Fprintf(&b, "Based on this mood and their specific request: \"%s\", create a short, inspiring, and original piece of content.\n", request)
	b.WriteString("This could be a quote or a short poem (2-4 lines).\n")
	b.WriteString("Return only the generated content itself. Do not include any introductory text, author attribution, or quotation marks.\n")
	b.WriteString("The tone should be empathetic and perfectly match the user's mood.")
	return b.String()
}

func imagePrompt(mood models.Mood, content string) string {
	return fmt.Sprintf(
		"Create a visually stunning, emotionally resonant background image that captures the essence of the following text, "+
			"which expresses a mood of %s. The image should be abstract or scenic, suitable as a background for text. "+
			"Do not include any text in the image. Text: \"%s\"",
		mood, content,
	)
}

// AssistPrompt builds the request sent for AI-assisted drafting, e.g. "a haiku about feeling joyful".
func AssistPrompt(mood models.Mood, contentType models.ContentType) string {
	return fmt.Sprintf("a %s about feeling %s",
		strings.ToLower(string(contentType)), strings.ToLower(string(mood)))
}
