// Package netid randomizes the MAC address of a network interface.
//
// Addresses are locally administered unicast (first octet 0x02) with the
// remaining five octets drawn from crypto/rand. They are applied with
// ifconfig when it is installed and with ip(8) otherwise. If a step fails
// after the interface was taken down, the original address is put back and
// the interface brought up again.
package netid
