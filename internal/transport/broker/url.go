// internal/transport/broker/url.go
package broker

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

type backendKind int

const (
	kindMQTT backendKind = iota
	kindNATS
)

var defaultPorts = map[string]string{
	"mqtt":  "1883",
	"tcp":   "1883",
	"mqtts": "8883",
	"ssl":   "8883",
	"tls":   "8883",
	"ws":    "80",
	"wss":   "443",
	"nats":  "4222",
}

// parseURL picks the backend for raw and fills in the default port.
func parseURL(raw string) (backendKind, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return 0, "", fmt.Errorf("broker: parse url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	port, ok := defaultPorts[scheme]
	if !ok {
		return 0, "", fmt.Errorf("broker: unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return 0, "", fmt.Errorf("broker: missing host in %q", raw)
	}
	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), port)
	}
	u.Scheme = scheme

	if scheme == "nats" {
		return kindNATS, u.String(), nil
	}
	return kindMQTT, u.String(), nil
}

// natsSubject maps a slash-separated topic onto a NATS subject.
func natsSubject(topic string) string {
	return strings.ReplaceAll(strings.Trim(topic, "/"), "/", ".")
}

// topicFromSubject is the inverse of natsSubject.
func topicFromSubject(subject string) string {
	return strings.ReplaceAll(subject, ".", "/")
}
