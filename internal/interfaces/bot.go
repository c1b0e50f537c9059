package interfaces

// Bot represents a connection to a chat service
type Bot interface {
	Connect() error
	Disconnect(string)
	Run() error
	SendAdminMessage(string)
	Messager
	Hooker
	AdminLister
	Nick() string
	JoinChannel(string)
	Reload(Unmarshaler) error
	StaticCommandPrefixes() []string
	HumanReadableSource(source string) string
	Status() string
	SendRaw(string)
}

// Messager represents a type that can send messages to a chat system
type Messager interface {
	SendMessage(target, message string)
	SendNotice(target, message string)
}

// Hooker provides methods for hooking on specific "chat" events, like messages in a given channel or a user being
// kicked from one
type Hooker interface {
	HookMessage(func(source, channel, message string, isAction bool))
	HookPrivateMessage(func(source, channel, message string))
	HookKick(func(source, channel, target, message string))
}

// CommandResponder provides helper methods for responding to command calls with Messages, and Notices
type CommandResponder interface {
	ReturnNotice(msg string)
	ReturnMessage(msg string)
}

// AdminLister provides the admin masks configured on a connection, mapped to their levels
type AdminLister interface {
	AdminMasks() map[string]int
}

// Statuser refers to any type that can report its status as a string
type Statuser interface { //nolint:misspell // Its Status-er not a misspelling of stature
	// Status returns a human readable status string
	Status() string
}
