package provider

import (
	"fmt"
	"strings"
)

const (
	maxTokens   = 1500
	temperature = 0.7
)

// prompts returns the system and user messages for req.
func prompts(req Request) (system, user string) {
	voice := req.VoiceStyle
	if voice == "" {
		voice = "friendly"
	}
	seconds := req.DurationSeconds
	if seconds <= 0 {
		seconds = 30
	}

	if strings.HasPrefix(strings.ToLower(req.Locale), "en") {
		system = fmt.Sprintf("You are an expert at writing whiteboard animation scripts. "+
			"Write engaging stories in a %s narration style. "+
			"The script should last about %d seconds. "+
			"Split the content into logical sections separated by blank lines, with visual descriptions.", voice, seconds)
		user = fmt.Sprintf("Write a whiteboard animation script about %q. "+
			"Describe the visual elements to draw in every scene.", req.Topic)
		return system, user
	}

	system = fmt.Sprintf("Jesteś ekspertem od tworzenia scenariuszy do animacji whiteboard. "+
		"Twórz angażujące historie dostosowane do stylu narracji: %s. "+
		"Scenariusz powinien trwać około %d sekund. "+
		"Podziel treść na logiczne sekcje oddzielone pustymi liniami, z opisami wizualnymi.", voice, seconds)
	user = fmt.Sprintf("Stwórz scenariusz animacji whiteboard dla tematu: %q. "+
		"Uwzględnij opisy elementów wizualnych, które mają być narysowane w każdej scenie.", req.Topic)
	return system, user
}
