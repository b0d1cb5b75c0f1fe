package sessionstore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		raw        string
		wantHost   string
		wantSecure bool
		wantErr    bool
	}{
		{"https://s3.example.com", "s3.example.com", true, false},
		{"http://minio.local:9000", "minio.local:9000", false, false},
		{"s3.amazonaws.com", "s3.amazonaws.com", true, false},
		{"https://", "", false, true},
	}

	for _, tt := range tests {
		host, secure, err := parseEndpoint(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v, wantErr %t", tt.raw, err, tt.wantErr)
			continue
		}
		if host != tt.wantHost || secure != tt.wantSecure {
			t.Errorf("%s: got (%s, %t), want (%s, %t)", tt.raw, host, secure, tt.wantHost, tt.wantSecure)
		}
	}
}

func TestNewS3(t *testing.T) {
	dir := t.TempDir()
	accessFile := filepath.Join(dir, "access")
	secretFile := filepath.Join(dir, "secret")
	if err := os.WriteFile(accessFile, []byte("AKIA\n"), 0o600); err != nil {
		t.Fatalf("write access key: %v", err)
	}
	if err := os.WriteFile(secretFile, []byte("s3cr3t\n"), 0o600); err != nil {
		t.Fatalf("write secret key: %v", err)
	}

	store, err := NewS3(S3Config{
		Endpoint:      "http://minio.local:9000",
		Bucket:        "skill",
		AccessKeyFile: accessFile,
		SecretKeyFile: secretFile,
	})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}

	if got := store.key("amzn1.ask.account.A/B"); got != "particle-skill/attributes/amzn1.ask.account.A%2FB.json" {
		t.Errorf("key: got %s", got)
	}

	if _, err := NewS3(S3Config{Endpoint: "http://minio.local:9000"}); err == nil {
		t.Error("expected error for missing bucket and keys")
	}
}
