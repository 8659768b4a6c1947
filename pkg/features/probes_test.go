package features

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"testing"
	"time"
)

func TestParseWhoisCreation(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     time.Time
		wantErr  bool
	}{
		{
			name:     "verisign style",
			response: "Domain Name: EXAMPLE.COM\n   Creation Date: 1995-08-14T04:00:00Z\n   Registry Expiry Date: 2026-08-13T04:00:00Z\n",
			want:     time.Date(1995, 8, 14, 4, 0, 0, 0, time.UTC),
		},
		{
			name:     "lowercase created",
			response: "domain: example.io\ncreated: 2019-03-02\n",
			want:     time.Date(2019, 3, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "nominet style",
			response: "    Domain name:\n        example.uk\n    Registered on: 02-Jan-2020\n",
			want:     time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:     "no date",
			response: "No match for domain \"EXAMPLE.COM\".\n",
			wantErr:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseWhoisCreation(tt.response)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIssuerTrusted(t *testing.T) {
	tests := []struct {
		org  string
		cn   string
		want bool
	}{
		{"Let's Encrypt", "R11", true},
		{"DigiCert Inc", "DigiCert TLS RSA SHA256 2020 CA1", true},
		{"Google Trust Services", "WR2", true},
		{"", "Cloudflare Inc ECC CA-3", true},
		{"Shady Certs LLC", "Shady Root CA", false},
		{"", "", false},
	}
	for _, tt := range tests {
		leaf := &x509.Certificate{
			Issuer: pkix.Name{CommonName: tt.cn},
		}
		if tt.org != "" {
			leaf.Issuer.Organization = []string{tt.org}
		}
		if got := issuerTrusted(leaf); got != tt.want {
			t.Errorf("issuerTrusted(org=%q cn=%q) = %v, want %v", tt.org, tt.cn, got, tt.want)
		}
	}
}
