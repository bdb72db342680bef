// internal/status/constants.go
package status

// Board line protocol constants.
// These values define the protocol and MUST NOT be configurable.

// ---- LINE PREFIXES ----

// PrefixState starts a connectivity state line: STATE:<NAME>\n
const PrefixState = "STATE:"

// PrefixBroker starts a relayed broker message: MQTT:<topic>:<payload>\n
const PrefixBroker = "MQTT:"

// Separator splits topic and payload in a broker line.
const Separator = ':'

// Terminator ends every text line. WebSocket binary frames are relayed raw
// and carry no terminator.
const Terminator = '\n'

// ---- LIMITS ----

// ReadBufferSize is the serial read buffer. One read returns at most
// ReadBufferSize-1 bytes.
const ReadBufferSize = 1024
