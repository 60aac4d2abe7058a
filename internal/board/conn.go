package board

import "fmt"

// ConnState follows the subscription lifecycle of the selected shift.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

var connNames = [...]string{
	Disconnected: "disconnected",
	Connecting:   "connecting",
	Connected:    "connected",
}

func (c ConnState) String() string {
	if c < 0 || int(c) >= len(connNames) {
		return fmt.Sprintf("ConnState(%d)", int(c))
	}
	return connNames[c]
}

func (c ConnState) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
