package voice

// ConnectOptions describe the server and channel to join. Empty strings mean
// the option is absent.
type ConnectOptions struct {
	Address         string
	Password        string
	Nickname        string
	Channel         string
	ChannelPassword string
	// Identity is a canonical identity string. A fresh identity is generated
	// when it is empty.
	Identity string
	// LogLevel selects protocol tracing: "commands", "packets" or "udp".
	LogLevel string
}

func (o ConnectOptions) Validate() error {
	if o.Address == "" {
		return ErrNoAddress
	}
	return nil
}

// Verbosity is the protocol tracing requested for a session. Each level
// includes the ones before it.
type Verbosity struct {
	Commands bool
	Packets  bool
	UDP      bool
}

// ParseVerbosity maps a log level name onto tracing flags. Unknown levels
// disable tracing.
func ParseVerbosity(level string) Verbosity {
	switch level {
	case "commands":
		return Verbosity{Commands: true}
	case "packets":
		return Verbosity{Commands: true, Packets: true}
	case "udp":
		return Verbosity{Commands: true, Packets: true, UDP: true}
	default:
		return Verbosity{}
	}
}

type DisconnectParams struct {
	Message string
	// ReasonCode is accepted for compatibility and not forwarded to the
	// session.
	ReasonCode *uint32
}
