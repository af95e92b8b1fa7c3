package netid

import (
	"crypto/rand"
	"fmt"
	"io"
	"net"
)

// localAdminUnicast is the first octet of generated addresses: locally
// administered bit set, multicast bit clear.
const localAdminUnicast = 0x02

// GenerateMAC returns a locally administered unicast MAC address whose last
// five octets are read from r. A nil r uses crypto/rand.
func GenerateMAC(r io.Reader) (net.HardwareAddr, error) {
	if r == nil {
		r = rand.Reader
	}
	mac := make(net.HardwareAddr, 6)
	mac[0] = localAdminUnicast
	if _, err := io.ReadFull(r, mac[1:]); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	return mac, nil
}
