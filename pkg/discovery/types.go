package discovery

import (
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/cast-protocol/cast-go/pkg/transport"
)

const (
	// ServiceType is the DNS-SD service type cast devices register under.
	ServiceType = "_castchannel._tcp"

	// Domain is the DNS-SD domain used for local discovery.
	Domain = "local"

	// maxInstanceNameLength is the DNS label limit for instance names.
	maxInstanceNameLength = 63
)

// TXT record keys used by cast devices.
const (
	// TXTKeyDeviceID is the stable device identifier (required).
	TXTKeyDeviceID = "id"

	// TXTKeyFriendlyName is the user-visible device name.
	TXTKeyFriendlyName = "fn"

	// TXTKeyModel is the device model name.
	TXTKeyModel = "md"

	// TXTKeyVersion is the protocol version the device speaks.
	TXTKeyVersion = "ve"

	// TXTKeyStatus is the device status flags field.
	TXTKeyStatus = "st"
)

var (
	// ErrMissingDeviceID indicates a TXT record without the required id key.
	ErrMissingDeviceID = errors.New("txt record missing device id")

	// ErrInvalidTXTRecord indicates a malformed TXT record entry.
	ErrInvalidTXTRecord = errors.New("invalid txt record")

	// ErrInvalidInstanceName indicates an unusable service instance name.
	ErrInvalidInstanceName = errors.New("invalid service instance name")

	// ErrDeviceNotFound indicates browsing ended without a match.
	ErrDeviceNotFound = errors.New("device not found")
)

// Device describes a cast device found on the network, or one to be
// advertised.
type Device struct {
	// InstanceName is the DNS-SD service instance name.
	InstanceName string

	// HostName is the device host name as published in the SRV record.
	HostName string

	// Port is the cast channel TCP port.
	Port int

	// Addresses are the resolved IPv4 and IPv6 addresses.
	Addresses []net.IP

	// DeviceID is the stable identifier from the TXT record.
	DeviceID string

	// FriendlyName is the user-visible name from the TXT record.
	FriendlyName string

	// Model is the device model from the TXT record.
	Model string

	// Version is the protocol version from the TXT record.
	Version string

	// Status is the raw status flags field from the TXT record.
	Status string
}

// Endpoint returns a host:port dial target for the device. IPv4
// addresses are preferred; the SRV host name is used when no address
// was resolved. Port 0 falls back to the default cast channel port.
func (d *Device) Endpoint() string {
	port := d.Port
	if port == 0 {
		port = transport.DefaultPort
	}

	for _, ip := range d.Addresses {
		if ip4 := ip.To4(); ip4 != nil {
			return net.JoinHostPort(ip4.String(), strconv.Itoa(port))
		}
	}
	if len(d.Addresses) > 0 {
		return net.JoinHostPort(d.Addresses[0].String(), strconv.Itoa(port))
	}
	return net.JoinHostPort(d.HostName, strconv.Itoa(port))
}

// String returns a short human-readable description of the device.
func (d *Device) String() string {
	name := d.FriendlyName
	if name == "" {
		name = d.InstanceName
	}
	return fmt.Sprintf("%s (%s) at %s", name, d.DeviceID, d.Endpoint())
}

// validateInstanceName checks that a service instance name is usable as
// a DNS-SD instance label.
func validateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidInstanceName)
	}
	if len(name) > maxInstanceNameLength {
		return fmt.Errorf("%w: %q exceeds %d bytes", ErrInvalidInstanceName, name, maxInstanceNameLength)
	}
	for _, r := range name {
		if r == '.' {
			return fmt.Errorf("%w: %q contains a dot", ErrInvalidInstanceName, name)
		}
	}
	return nil
}
