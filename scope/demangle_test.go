package scope

import "testing"

func TestDemangle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"_ZN4demo4main17h0123456789abcdefE", "demo::main"},
		{"_ZN4demo5Point6length17hfedcba9876543210E", "demo::Point::length"},
		{"_ZN4demo4main28_$u7b$$u7b$closure$u7d$$u7d$17h0000000000000000E", "demo::main::{{closure}}"},
		{"_ZN43_$LT$demo..Point$u20$as$u20$demo..Shape$GT$4area17h1111111111111111E", "<demo::Point as demo::Shape>::area"},
		{"demo::plain", "demo::plain"},
		{"_ZN", "_ZN"},
		{"_ZN99short", "_ZN99short"},
		{"_ZN9223372036854775808aE", "_ZN9223372036854775808aE"},
		{"_ZN18446744073709551617aE", "_ZN18446744073709551617aE"},
		{"_ZN4demo99999999999999999999999xE", "_ZN4demo99999999999999999999999xE"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Demangle(tt.in); got != tt.want {
				t.Errorf("Demangle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
