package session

import (
	"testing"
)

func TestCodec(t *testing.T) {
	codec := NewCodec("secret")
	valid := codec.Encode("some-key")

	tests := []struct {
		name    string
		value   string
		wantKey string
		wantErr error
	}{
		{name: "no value", wantErr: errInvalidCookie},
		{name: "no signature", value: "some-key", wantErr: errInvalidCookie},
		{name: "empty signature", value: "some-key.", wantErr: errInvalidCookie},
		{name: "empty key", value: ".c2lnc2ln", wantErr: errInvalidCookie},
		{name: "forged signature", value: "some-key.c2lnc2ln", wantErr: errInvalidCookie},
		{name: "other key", value: "other-key" + valid[len("some-key"):], wantErr: errInvalidCookie},
		{name: "other secret", value: NewCodec("other").Encode("some-key"), wantErr: errInvalidCookie},
		{name: "valid", value: valid, wantKey: "some-key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := codec.Decode(tt.value)
			if err != tt.wantErr {
				t.Errorf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if key != tt.wantKey {
				t.Errorf("Decode() key = %q, want %q", key, tt.wantKey)
			}
		})
	}
}
