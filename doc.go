// Package amqpmux implements the channel multiplexing core of an AMQP
// 0.9.1 client: frame decoding, the method dispatcher, Connection,
// Channel, Queue, Exchange and Consumer. It owns none of the transport —
// callers supply a Driver that delivers decoded frames and accepts
// encoded ones — so amqpmux has no socket, TLS, or reconnection code of
// its own.
package amqpmux
