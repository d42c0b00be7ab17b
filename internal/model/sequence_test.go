package model

import "testing"

func TestFormatDocumentNumber(t *testing.T) {
	tests := []struct {
		domain string
		n      int64
		want   string
	}{
		{SeqDomainPO, 7, "PO00000007"},
		{SeqDomainPO, 12345678, "PO12345678"},
		{SeqDomainRFQ, 42, "RFQ000000042"},
		{SeqDomainPR, 123, "PR000123"},
		{SeqDomainVendor, 13, "V00013"},
		{SeqDomainException, 4, "EX-000004"},
		{"custom", 9, "custom9"},
	}

	for _, tt := range tests {
		if got := FormatDocumentNumber(tt.domain, tt.n); got != tt.want {
			t.Errorf("FormatDocumentNumber(%s, %d) = %s, want %s", tt.domain, tt.n, got, tt.want)
		}
	}
}
