package shell

// Command is one line queued for the firmware.
//
// OnSuccess receives the full reply text (informational lines and the
// terminal line joined by newlines). OnError receives a *DeviceRejection or
// a *TransportError. At most one of them is called, and neither is called
// when the command is superseded.
type Command struct {
	Text string

	// Stem identifies the parameter the command targets. Commands without
	// a stem use Text. Only Unique commands are compared.
	Stem string

	// Unique lets this command replace a queued, unsent command with the
	// same stem. The replaced command's OnSuperseded hook runs instead of
	// its result callbacks.
	Unique bool

	OnSuccess    func(reply string)
	OnError      func(err error)
	OnSuperseded func()
}

// NewQuery creates a unique get command for stem and index.
func NewQuery(stem string, index int) *Command {
	return &Command{
		Text:   FormatGet(stem, index),
		Stem:   Key(stem, VerbGet, index),
		Unique: true,
	}
}

// NewWrite creates a unique set command for stem and index.
func NewWrite(stem string, index int, value string) *Command {
	return &Command{
		Text:   FormatSet(stem, index, value),
		Stem:   Key(stem, VerbSet, index),
		Unique: true,
	}
}

// NewRaw creates a plain command. Raw commands are never superseded.
func NewRaw(text string) *Command {
	return &Command{Text: text}
}

func (c *Command) key() string {
	if c.Stem != "" {
		return c.Stem
	}
	return c.Text
}

func (c *Command) succeed(reply string) {
	if c.OnSuccess != nil {
		c.OnSuccess(reply)
	}
}

func (c *Command) fail(err error) {
	if c.OnError != nil {
		c.OnError(err)
	}
}

func (c *Command) supersede() {
	if c.OnSuperseded != nil {
		c.OnSuperseded()
	}
}
