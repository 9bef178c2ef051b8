// Package discord adapts Discord voice connections to the voice package's
// Session and Dialer interfaces.
package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/glizzus/voice-bridge/internal/voice"
)

var ReadyLog = func(s *discordgo.Session, r *discordgo.Ready) {
	slog.Info("Bot is ready", "username", r.User.Username, "userID", r.User.ID)
}

// NewSession creates a gateway session authenticated with a bot token. The
// caller opens and closes it.
func NewSession(token string, v voice.Verbosity) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates
	s.LogLevel = logLevel(v, false)
	s.AddHandler(ReadyLog)
	return s, nil
}

// logLevel maps tracing flags onto discordgo log levels. The voice
// connection only logs at debug level when UDP tracing is on.
func logLevel(v voice.Verbosity, udp bool) int {
	switch {
	case udp && v.UDP:
		return discordgo.LogDebug
	case udp:
		return discordgo.LogWarning
	case v.Packets:
		return discordgo.LogDebug
	case v.Commands:
		return discordgo.LogInformational
	default:
		return discordgo.LogWarning
	}
}
