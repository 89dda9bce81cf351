package vm

import (
	"strings"
	"testing"
)

func TestFaultCodeFormat(t *testing.T) {
	cases := []struct {
		code FaultCode
		want string
	}{
		{FaultStringTooLong, "RT2001"},
		{FaultOutOfMemory, "RT2002"},
		{FaultExternalBudget, "RT2003"},
	}
	for _, tc := range cases {
		if got := tc.code.String(); got != tc.want {
			t.Errorf("FaultCode(%d).String() = %q, want %q", tc.code, got, tc.want)
		}
	}
}

func TestRuntimeErrorMessageCarriesCode(t *testing.T) {
	err := errOutOfMemory(512, 64)
	if !strings.Contains(err.Error(), "RT2002") {
		t.Errorf("error %q does not carry its fault code", err.Error())
	}
	if !strings.Contains(err.Error(), "512") {
		t.Errorf("error %q does not carry the requested size", err.Error())
	}
}
