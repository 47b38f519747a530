package ffprobe

import "testing"

func TestParseDurationMs(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{"normal", `{"format":{"duration":"5400.123"}}`, 5400123, false},
		{"integer seconds", `{"format":{"duration":"90"}}`, 90000, false},
		{"missing duration", `{"format":{}}`, 0, false},
		{"not available", `{"format":{"duration":"N/A"}}`, 0, false},
		{"negative clamped", `{"format":{"duration":"-3"}}`, 0, false},
		{"garbage duration", `{"format":{"duration":"abc"}}`, 0, true},
		{"invalid json", `{`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDurationMs([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNewDefaultsBinary(t *testing.T) {
	if p := New("  "); p.binary != "ffprobe" {
		t.Fatalf("binary = %q", p.binary)
	}
	if p := New("/usr/local/bin/ffprobe"); p.binary != "/usr/local/bin/ffprobe" {
		t.Fatalf("binary = %q", p.binary)
	}
}
