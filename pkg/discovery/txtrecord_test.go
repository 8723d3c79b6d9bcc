package discovery

import (
	"errors"
	"net"
	"reflect"
	"strings"
	"testing"
)

func TestEncodeTXTRecord(t *testing.T) {
	device := &Device{
		DeviceID:     "a1b2c3d4",
		FriendlyName: "Living Room",
		Model:        "Castbox",
		Version:      "05",
	}

	records, err := EncodeTXTRecord(device)
	if err != nil {
		t.Fatalf("EncodeTXTRecord: %v", err)
	}

	want := TXTRecordMap{
		"id": "a1b2c3d4",
		"fn": "Living Room",
		"md": "Castbox",
		"ve": "05",
	}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("records = %v, want %v", records, want)
	}
}

func TestEncodeTXTRecordOmitsEmptyFields(t *testing.T) {
	records, err := EncodeTXTRecord(&Device{DeviceID: "a1b2c3d4"})
	if err != nil {
		t.Fatalf("EncodeTXTRecord: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("records = %v, want only id", records)
	}
}

func TestEncodeTXTRecordRequiresDeviceID(t *testing.T) {
	_, err := EncodeTXTRecord(&Device{FriendlyName: "Nameless"})
	if !errors.Is(err, ErrMissingDeviceID) {
		t.Errorf("err = %v, want ErrMissingDeviceID", err)
	}
}

func TestDecodeTXTRecord(t *testing.T) {
	records := TXTRecordMap{
		"id": "a1b2c3d4",
		"fn": "Kitchen",
		"md": "Castbox Mini",
		"ve": "05",
		"st": "0",
		"xx": "ignored",
	}

	var device Device
	if err := DecodeTXTRecord(records, &device); err != nil {
		t.Fatalf("DecodeTXTRecord: %v", err)
	}

	if device.DeviceID != "a1b2c3d4" {
		t.Errorf("DeviceID = %q", device.DeviceID)
	}
	if device.FriendlyName != "Kitchen" {
		t.Errorf("FriendlyName = %q", device.FriendlyName)
	}
	if device.Model != "Castbox Mini" {
		t.Errorf("Model = %q", device.Model)
	}
	if device.Version != "05" {
		t.Errorf("Version = %q", device.Version)
	}
	if device.Status != "0" {
		t.Errorf("Status = %q", device.Status)
	}
}

func TestDecodeTXTRecordRequiresDeviceID(t *testing.T) {
	var device Device
	err := DecodeTXTRecord(TXTRecordMap{"fn": "Nameless"}, &device)
	if !errors.Is(err, ErrMissingDeviceID) {
		t.Errorf("err = %v, want ErrMissingDeviceID", err)
	}
}

func TestTXTRecordsToStringsSorted(t *testing.T) {
	records := TXTRecordMap{
		"ve": "05",
		"id": "a1b2c3d4",
		"fn": "Bedroom",
	}

	got := TXTRecordsToStrings(records)
	want := []string{"fn=Bedroom", "id=a1b2c3d4", "ve=05"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("strings = %v, want %v", got, want)
	}
}

func TestStringsToTXTRecords(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		want    TXTRecordMap
		wantErr bool
	}{
		{
			name:  "valid entries",
			input: []string{"id=a1b2c3d4", "fn=Office"},
			want:  TXTRecordMap{"id": "a1b2c3d4", "fn": "Office"},
		},
		{
			name:  "empty value allowed",
			input: []string{"st="},
			want:  TXTRecordMap{"st": ""},
		},
		{
			name:  "value containing equals",
			input: []string{"fn=a=b"},
			want:  TXTRecordMap{"fn": "a=b"},
		},
		{
			name:    "missing equals",
			input:   []string{"id"},
			wantErr: true,
		},
		{
			name:    "empty key",
			input:   []string{"=value"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StringsToTXTRecords(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTXTRecord) {
					t.Errorf("err = %v, want ErrInvalidTXTRecord", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("StringsToTXTRecords: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("records = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateInstanceName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid", input: "Castbox-a1b2c3d4"},
		{name: "empty", input: "", wantErr: true},
		{name: "contains dot", input: "bad.name", wantErr: true},
		{name: "too long", input: strings.Repeat("x", 64), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateInstanceName(tt.input)
			if tt.wantErr && !errors.Is(err, ErrInvalidInstanceName) {
				t.Errorf("err = %v, want ErrInvalidInstanceName", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("err = %v, want nil", err)
			}
		})
	}
}

func TestDeviceEndpoint(t *testing.T) {
	tests := []struct {
		name   string
		device Device
		want   string
	}{
		{
			name: "prefers ipv4",
			device: Device{
				Port:      8009,
				Addresses: []net.IP{net.ParseIP("fe80::1"), net.ParseIP("192.168.1.10")},
			},
			want: "192.168.1.10:8009",
		},
		{
			name: "ipv6 only",
			device: Device{
				Port:      8009,
				Addresses: []net.IP{net.ParseIP("fe80::1")},
			},
			want: "[fe80::1]:8009",
		},
		{
			name:   "falls back to host name",
			device: Device{HostName: "castbox.local", Port: 8009},
			want:   "castbox.local:8009",
		},
		{
			name:   "default port",
			device: Device{HostName: "castbox.local"},
			want:   "castbox.local:8009",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.device.Endpoint(); got != tt.want {
				t.Errorf("Endpoint() = %q, want %q", got, tt.want)
			}
		})
	}
}
