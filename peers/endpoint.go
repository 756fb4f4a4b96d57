package peers

import "fmt"

// Endpoint is a transport address: an IP address and UDP port. A given
// PublicKey's Endpoint may change across reconnects.
type Endpoint struct {
	IP   string
	Port int
}

// String returns the "ip:port" representation of the endpoint.
func (e Endpoint) String() string {
	return fmt.Sprintf("%s:%d", e.IP, e.Port)
}

// IsZero reports whether e is the zero-value endpoint.
func (e Endpoint) IsZero() bool {
	return e == Endpoint{}
}
