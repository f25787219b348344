package result

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
	"testing"
)

func TestClassifyError(t *testing.T) {
	refused := &url.Error{Op: "Head", URL: "http://127.0.0.1:1", Err: &net.OpError{
		Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED),
	}}

	tests := []struct {
		name   string
		err    error
		status int
		want   ErrorCategory
	}{
		{"404", nil, 404, Category4xx},
		{"410", nil, 410, Category4xx},
		{"500", nil, 500, Category5xx},
		{"503 wins over error", errors.New("boom"), 503, Category5xx},
		{"3xx alone", nil, 301, CategoryUnknown},
		{"nothing", nil, 0, CategoryUnknown},
		{"deadline", fmt.Errorf("head: %w", context.DeadlineExceeded), 0, CategoryTimeout},
		{"dns", &net.DNSError{Err: "no such host", Name: "shop.invalid"}, 0, CategoryDNSFailure},
		{"dns timeout", &net.DNSError{Err: "i/o timeout", Name: "slow.example", IsTimeout: true}, 0, CategoryTimeout},
		{"refused", refused, 0, CategoryConnectionRefused},
		{"untrusted cert", fmt.Errorf("get: %w", x509.UnknownAuthorityError{}), 0, CategoryTLS},
		{"wrong host cert", fmt.Errorf("get: %w", x509.HostnameError{Host: "example.com"}), 0, CategoryTLS},
		{"redirect loop", errors.New(`Get "https://example.com/a": stopped after 10 redirects`), 0, CategoryRedirectLoop},
		{"other", errors.New("EOF"), 0, CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err, tt.status); got != tt.want {
				t.Errorf("ClassifyError(%v, %d) = %q, want %q", tt.err, tt.status, got, tt.want)
			}
		})
	}
}

func TestFormatCategoryCoversEveryCategory(t *testing.T) {
	seen := make(map[string]ErrorCategory)
	for _, cat := range []ErrorCategory{
		CategoryTimeout, CategoryDNSFailure, CategoryConnectionRefused, CategoryTLS,
		Category4xx, Category5xx, CategoryRedirectLoop,
	} {
		label := FormatCategory(cat)
		if label == "Other Errors" {
			t.Errorf("%q has no label of its own", cat)
		}
		if prev, dup := seen[label]; dup {
			t.Errorf("%q and %q share label %q", prev, cat, label)
		}
		seen[label] = cat
	}
	if got := FormatCategory(CategoryUnknown); got != "Other Errors" {
		t.Errorf("FormatCategory(unknown) = %q", got)
	}
	if got := FormatCategory("bogus"); got != "Other Errors" {
		t.Errorf("FormatCategory(bogus) = %q", got)
	}
}

func TestStatusText(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{0, ""},
		{404, "404 Not Found"},
		{503, "503 Service Unavailable"},
		{599, "599"},
	}
	for _, tt := range tests {
		if got := StatusText(tt.code); got != tt.want {
			t.Errorf("StatusText(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
