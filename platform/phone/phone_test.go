package phone

import (
	"errors"
	"testing"
)

func TestAreaCode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "formatted mobile", input: "+55 11 98888-7777", want: "11"},
		{name: "bare digits with country code", input: "5521976543210", want: "21"},
		{name: "ten digit landline", input: "8532109876", want: "85"},
		{name: "eleven digit mobile without country code", input: "11988887777", want: "11"},
		{name: "landline with country code", input: "551132109876", want: "11"},
		{name: "mobile starting with a valid ddd pair mid-number", input: "+55 31 91984-5566", want: "31"},
		{name: "too short", input: "123", wantErr: ErrTooFewDigits},
		{name: "nine digits", input: "119888877", wantErr: ErrTooFewDigits},
		{name: "empty", input: "", wantErr: ErrTooFewDigits},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AreaCode(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected area code %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDigits(t *testing.T) {
	if got := Digits("+55 (11) 98888-7777"); got != "5511988887777" {
		t.Fatalf("expected digits only, got %q", got)
	}
}

func TestStateForAreaCode(t *testing.T) {
	uf, ok := StateForAreaCode("11")
	if !ok || uf != "SP" {
		t.Fatalf("expected 11 => SP, got %q (%v)", uf, ok)
	}
	if _, ok := StateForAreaCode("20"); ok {
		t.Fatal("expected 20 to be unassigned")
	}
}
