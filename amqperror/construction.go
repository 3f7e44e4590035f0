package amqpError

import "fmt"

// ChannelOutOfBounds is returned synchronously when a caller requests a
// channel-id outside [0, channel_max]. Corrected spelling of the
// originally misspelled "ChannelOutOfBadError".
type ChannelOutOfBounds struct {
	ChannelID  uint16
	ChannelMax uint32
}

func (e *ChannelOutOfBounds) Error() string {
	return fmt.Sprintf("channel id %d out of bounds [0, %d]", e.ChannelID, e.ChannelMax)
}

// NilArgument is returned synchronously when a caller attempts to
// register a nil entity (queue, exchange, consumer) with a channel.
type NilArgument struct {
	What string
}

func (e *NilArgument) Error() string {
	return fmt.Sprintf("nil %s argument", e.What)
}
