// Package discovery implements mDNS/DNS-SD discovery and advertisement
// of cast devices.
//
// Cast devices advertise themselves under the _castchannel._tcp service
// type in the local domain. The TXT record carries device metadata such
// as the device id, friendly name and model. Browsing aggregates
// responses per service instance, merging IPv4 and IPv6 addresses for
// the same device as they arrive.
package discovery
