package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/glizzus/voice-bridge/internal/voice"
)

var ErrNoVoiceChannel = errors.New("no voice channel with members found")

// Dialer joins voice channels over an open gateway session. The connect
// address is the guild ID. Discord authenticates with the bot token, so the
// voice identity is carried but not sent.
type Dialer struct {
	Session     *discordgo.Session
	SendTimeout time.Duration
}

var _ voice.Dialer = (*Dialer)(nil)

func NewDialer(s *discordgo.Session) *Dialer {
	return &Dialer{Session: s, SendTimeout: DefaultSendTimeout}
}

func (d *Dialer) Dial(ctx context.Context, opts voice.ConnectOptions, id voice.Identity) (voice.Session, error) {
	// The gateway level is fixed by NewSession; only the new voice
	// connection takes the requested tracing.
	verbosity := voice.ParseVerbosity(opts.LogLevel)

	guildID := opts.Address
	channelID := opts.Channel
	if channelID == "" {
		var err error
		if channelID, err = d.busiestChannel(guildID); err != nil {
			return nil, err
		}
	}
	if opts.Password != "" || opts.ChannelPassword != "" {
		slog.Debug("discord voice channels have no passwords, ignoring them", "guildID", guildID)
	}

	if opts.Nickname != "" {
		if err := d.Session.GuildMemberNickname(guildID, "@me", opts.Nickname); err != nil {
			slog.Warn("failed to set nickname", "nickname", opts.Nickname, "error", err)
		}
	}

	vc, err := d.join(ctx, guildID, channelID)
	if err != nil {
		return nil, err
	}
	vc.Lock()
	vc.LogLevel = logLevel(verbosity, true)
	vc.Unlock()

	if err := vc.Speaking(true); err != nil {
		if derr := vc.Disconnect(); derr != nil {
			slog.Error("failed to disconnect", "error", derr)
		}
		return nil, fmt.Errorf("error setting speaking state to 'true': %w", err)
	}

	slog.Info("joined voice channel", "guildID", guildID, "channelID", channelID, "identityLevel", id.Counter)
	return newVoiceSession(vc, d.guildName(guildID), d.SendTimeout), nil
}

// join honors ctx by abandoning a join that is still in flight.
func (d *Dialer) join(ctx context.Context, guildID, channelID string) (*discordgo.VoiceConnection, error) {
	type result struct {
		vc  *discordgo.VoiceConnection
		err error
	}
	joined := make(chan result, 1)
	go func() {
		vc, err := d.Session.ChannelVoiceJoin(guildID, channelID, false, false)
		joined <- result{vc: vc, err: err}
	}()

	select {
	case r := <-joined:
		if r.err != nil {
			return nil, fmt.Errorf("unable to join the voice channel: %w", r.err)
		}
		return r.vc, nil
	case <-ctx.Done():
		go func() {
			if r := <-joined; r.vc != nil {
				if err := r.vc.Disconnect(); err != nil {
					slog.Error("failed to disconnect", "error", err)
				}
			}
		}()
		return nil, ctx.Err()
	}
}

func (d *Dialer) busiestChannel(guildID string) (string, error) {
	channels, err := d.Session.GuildChannels(guildID)
	if err != nil {
		return "", fmt.Errorf("failed to get guild channels: %w", err)
	}
	guild, err := d.Session.State.Guild(guildID)
	if err != nil {
		return "", fmt.Errorf("failed to get guild state: %w", err)
	}
	channel := MaxAttendedChannel(channels, guild.VoiceStates)
	if channel == nil {
		return "", ErrNoVoiceChannel
	}
	return channel.ID, nil
}

func (d *Dialer) guildName(guildID string) string {
	if guild, err := d.Session.State.Guild(guildID); err == nil && guild.Name != "" {
		return guild.Name
	}
	return guildID
}
