// internal/status/encode.go
package status

import "github.com/tamzrod/linkd/internal/state"

// EncodeState renders a connectivity transition for the board.
// No IO. No side effects.
func EncodeState(s state.ConnectivityState) []byte {
	name := s.String()
	line := make([]byte, 0, len(PrefixState)+len(name)+1)
	line = append(line, PrefixState...)
	line = append(line, name...)
	return append(line, Terminator)
}

// EncodeBrokerMessage renders an inbound broker message.
// The payload is copied verbatim; it may itself contain separators.
func EncodeBrokerMessage(topic string, payload []byte) []byte {
	line := make([]byte, 0, len(PrefixBroker)+len(topic)+len(payload)+2)
	line = append(line, PrefixBroker...)
	line = append(line, topic...)
	line = append(line, Separator)
	line = append(line, payload...)
	return append(line, Terminator)
}

// EncodeText renders an inbound WebSocket text message.
func EncodeText(text []byte) []byte {
	line := make([]byte, 0, len(text)+1)
	line = append(line, text...)
	return append(line, Terminator)
}
