package core

// RegistrationState is where a client is in the NICK/USER handshake.
type RegistrationState int

const (
	// StateUnregistered is the initial state of every connection.
	StateUnregistered RegistrationState = iota
	// StateRegistered is entered once both NICK and USER have arrived.
	StateRegistered
)

func (s RegistrationState) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateRegistered:
		return "registered"
	default:
		return "unknown"
	}
}

// ClientState tracks the registration handshake of one connection.
//
// registered flips to true exactly once, at the first moment both Nickname
// and Username are non-empty. The setter that causes that flip reports true
// so the caller can send the welcome in the same dispatch cycle.
type ClientState struct {
	Nickname string
	Username string

	registered bool
}

// SetNickname stores nick and reports whether registration completed as a
// result. An empty nick leaves the state untouched.
func (s *ClientState) SetNickname(nick string) bool {
	if nick == "" {
		return false
	}
	s.Nickname = nick
	return s.tryComplete()
}

// SetUsername stores user and reports whether registration completed as a
// result. An empty user leaves the state untouched.
func (s *ClientState) SetUsername(user string) bool {
	if user == "" {
		return false
	}
	s.Username = user
	return s.tryComplete()
}

func (s *ClientState) tryComplete() bool {
	if s.registered || s.Nickname == "" || s.Username == "" {
		return false
	}
	s.registered = true
	return true
}

// Registered reports whether the welcome has been issued.
func (s *ClientState) Registered() bool {
	return s.registered
}

// State returns the current handshake state.
func (s *ClientState) State() RegistrationState {
	if s.registered {
		return StateRegistered
	}
	return StateUnregistered
}
