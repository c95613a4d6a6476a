package model

// Sink is a line oriented output shared by all components of a run.
type Sink interface {
	WriteLine(line string) error
}

type SinkCloser interface {
	Sink
	Close() error
}
