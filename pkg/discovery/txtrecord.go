package discovery

import (
	"fmt"
	"sort"
	"strings"
)

// TXTRecordMap holds parsed key/value pairs from a DNS-SD TXT record.
type TXTRecordMap map[string]string

// EncodeTXTRecord builds the TXT record map for a device. The device id
// is required; empty optional fields are omitted.
func EncodeTXTRecord(d *Device) (TXTRecordMap, error) {
	if d.DeviceID == "" {
		return nil, ErrMissingDeviceID
	}

	records := TXTRecordMap{
		TXTKeyDeviceID: d.DeviceID,
	}
	if d.FriendlyName != "" {
		records[TXTKeyFriendlyName] = d.FriendlyName
	}
	if d.Model != "" {
		records[TXTKeyModel] = d.Model
	}
	if d.Version != "" {
		records[TXTKeyVersion] = d.Version
	}
	if d.Status != "" {
		records[TXTKeyStatus] = d.Status
	}
	return records, nil
}

// DecodeTXTRecord fills device metadata fields from a TXT record map.
// The device id is required; unknown keys are ignored.
func DecodeTXTRecord(records TXTRecordMap, d *Device) error {
	id, ok := records[TXTKeyDeviceID]
	if !ok || id == "" {
		return ErrMissingDeviceID
	}

	d.DeviceID = id
	d.FriendlyName = records[TXTKeyFriendlyName]
	d.Model = records[TXTKeyModel]
	d.Version = records[TXTKeyVersion]
	d.Status = records[TXTKeyStatus]
	return nil
}

// TXTRecordsToStrings converts a TXT record map to the key=value string
// slice form used on the wire. Keys are emitted in sorted order so the
// output is deterministic.
func TXTRecordsToStrings(records TXTRecordMap) []string {
	keys := make([]string, 0, len(records))
	for key := range records {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	strs := make([]string, 0, len(keys))
	for _, key := range keys {
		strs = append(strs, key+"="+records[key])
	}
	return strs
}

// StringsToTXTRecords parses wire-form key=value strings into a TXT
// record map. Entries without an equals sign are rejected; an empty
// value is allowed.
func StringsToTXTRecords(strs []string) (TXTRecordMap, error) {
	records := make(TXTRecordMap, len(strs))
	for _, s := range strs {
		key, value, found := strings.Cut(s, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTXTRecord, s)
		}
		records[key] = value
	}
	return records, nil
}
