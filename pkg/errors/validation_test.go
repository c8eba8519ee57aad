package errors

import (
	"testing"
)

func TestValidateSearchTerm(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "prod", false},
		{"valid with dash", "team-a", false},
		{"valid with underscore", "shared_services", false},

		{"empty", "", true},
		{"too long", strings129(), true},
		{"slash", "prod/dev", true},
		{"backslash", "prod\\dev", true},
		{"path traversal", "..", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSearchTerm(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSearchTerm(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("ValidateSearchTerm(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidInput)
			}
		})
	}
}

func TestValidateRegion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"us-east-1", "us-east-1", false},
		{"ap-southeast-2", "ap-southeast-2", false},
		{"gov cloud", "us-gov-west-1", false},

		{"empty", "", true},
		{"upper case", "US-EAST-1", true},
		{"missing number", "us-east", true},
		{"availability zone", "us-east-1a", true},
		{"garbage", "mars", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegion(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRegion(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func strings129() string {
	b := make([]byte, 129)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
