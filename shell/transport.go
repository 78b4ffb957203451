package shell

// Transport moves text lines to and from the firmware shell. Implementations
// frame the byte stream into lines without line terminators.
//
// Lines must be closed when the link is lost. The channel treats a closed
// Lines as a disconnect.
type Transport interface {
	SendLine(line string) error
	Lines() <-chan string
	Close() error
}
