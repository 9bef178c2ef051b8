package discord

import "github.com/bwmarrin/discordgo"

// MaxAttendedChannel returns the voice channel with the most connected
// members. It returns nil if no voice channel has any.
func MaxAttendedChannel(channels []*discordgo.Channel, states []*discordgo.VoiceState) *discordgo.Channel {
	attendance := make(map[string]int, len(states))
	for _, state := range states {
		attendance[state.ChannelID]++
	}

	var best *discordgo.Channel
	most := 0
	for _, channel := range channels {
		if channel.Type != discordgo.ChannelTypeGuildVoice {
			continue
		}
		if n := attendance[channel.ID]; n > most {
			best = channel
			most = n
		}
	}
	return best
}
