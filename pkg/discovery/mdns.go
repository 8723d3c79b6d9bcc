package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// AdvertiserConfig configures mDNS advertisement.
type AdvertiserConfig struct {
	// Interface restricts advertisement to a named network interface.
	// Empty means all multicast-capable interfaces.
	Interface string

	// TTL overrides the record time-to-live. Zero uses the zeroconf default.
	TTL time.Duration
}

// Advertiser publishes a cast device on the local network via mDNS.
type Advertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser creates an mDNS advertiser.
func NewAdvertiser(config AdvertiserConfig) *Advertiser {
	return &Advertiser{config: config}
}

// Advertise starts publishing the device. Port and DeviceID must be set.
// A previous advertisement is shut down first.
func (a *Advertiser) Advertise(device *Device) error {
	if err := validateInstanceName(device.InstanceName); err != nil {
		return err
	}
	if device.Port == 0 {
		return fmt.Errorf("advertise %q: port not set", device.InstanceName)
	}

	records, err := EncodeTXTRecord(device)
	if err != nil {
		return fmt.Errorf("advertise %q: %w", device.InstanceName, err)
	}
	txtStrings := TXTRecordsToStrings(records)

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	server, err := zeroconf.Register(
		device.InstanceName,
		ServiceType,
		Domain,
		device.Port,
		txtStrings,
		a.interfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register cast service: %w", err)
	}

	a.server = server
	return nil
}

// Stop stops advertising and sends goodbye packets.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// interfaces returns the interfaces to advertise on, nil meaning all.
func (a *Advertiser) interfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}
	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// BrowserConfig configures mDNS browsing.
type BrowserConfig struct {
	// Interface restricts browsing to a named network interface.
	// Empty means all multicast-capable interfaces.
	Interface string
}

// Browser discovers cast devices on the local network via mDNS.
type Browser struct {
	config BrowserConfig
}

// NewBrowser creates an mDNS browser.
func NewBrowser(config BrowserConfig) *Browser {
	return &Browser{config: config}
}

// Browse searches for cast devices until the context is cancelled.
// Responses are aggregated by service instance name; a device is emitted
// once, with addresses from later responses merged into the stored entry.
// The returned channel is closed when browsing ends.
func (b *Browser) Browse(ctx context.Context) (<-chan *Device, error) {
	out := make(chan *Device)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	opts := b.browserOptions()

	go func() {
		defer close(out)

		// Track devices by instance name, aggregating addresses.
		devices := make(map[string]*Device)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				device := entryToDevice(entry)
				if device == nil {
					continue
				}

				existing, found := devices[device.InstanceName]
				if found {
					existing.Addresses = mergeAddresses(existing.Addresses, device.Addresses)
				} else {
					devices[device.InstanceName] = device
					select {
					case out <- device:
					case <-ctx.Done():
						return
					}
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				if existing, found := devices[entry.Instance]; found {
					existing.Addresses = removeAddresses(existing.Addresses, entry)
					if len(existing.Addresses) == 0 {
						delete(devices, entry.Instance)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// FindByID browses until a device with the given id appears or the
// context ends. Callers bound the wait through the context deadline.
func (b *Browser) FindByID(ctx context.Context, deviceID string) (*Device, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	devices, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case device, ok := <-devices:
			if !ok {
				return nil, ErrDeviceNotFound
			}
			if device.DeviceID == deviceID {
				return device, nil
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrDeviceNotFound, ctx.Err())
		}
	}
}

// browserOptions returns zeroconf client options based on config.
func (b *Browser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

// entryToDevice converts a zeroconf entry to a Device. Entries with an
// unparsable TXT record or without a device id are dropped.
func entryToDevice(entry *zeroconf.ServiceEntry) *Device {
	records, err := StringsToTXTRecords(entry.Text)
	if err != nil {
		return nil
	}

	device := &Device{
		InstanceName: entry.Instance,
		HostName:     entry.HostName,
		Port:         entry.Port,
	}
	if err := DecodeTXTRecord(records, device); err != nil {
		return nil
	}

	device.Addresses = append(device.Addresses, entry.AddrIPv4...)
	device.Addresses = append(device.Addresses, entry.AddrIPv6...)
	return device
}

// mergeAddresses adds new addresses to the existing list, avoiding duplicates.
func mergeAddresses(existing, extra []net.IP) []net.IP {
	seen := make(map[string]bool, len(existing))
	for _, ip := range existing {
		seen[ip.String()] = true
	}

	for _, ip := range extra {
		if !seen[ip.String()] {
			existing = append(existing, ip)
			seen[ip.String()] = true
		}
	}
	return existing
}

// removeAddresses filters out the addresses carried by a goodbye entry.
func removeAddresses(addresses []net.IP, entry *zeroconf.ServiceEntry) []net.IP {
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	result := make([]net.IP, 0, len(addresses))
	for _, ip := range addresses {
		if !toRemove[ip.String()] {
			result = append(result, ip)
		}
	}
	return result
}
