package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandUnknown covers every verb the core does not handle, including
	// the empty verb of a malformed line.
	CommandUnknown CommandKind = iota
	// CommandNick sets the client's nickname.
	CommandNick
	// CommandUser sets the client's username.
	CommandUser
)

var commandKinds = map[string]CommandKind{
	"NICK": CommandNick,
	"USER": CommandUser,
}

// KindOf maps an upper-cased verb to its CommandKind.
func KindOf(verb string) CommandKind {
	return commandKinds[verb]
}

func (k CommandKind) String() string {
	switch k {
	case CommandNick:
		return "NICK"
	case CommandUser:
		return "USER"
	default:
		return "unknown"
	}
}
