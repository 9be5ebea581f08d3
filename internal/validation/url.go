package validation

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// EndpointURLValidator validates the base URL of a remote record store
type EndpointURLValidator struct {
	// AllowHTTP permits plain http endpoints
	AllowHTTP bool
	// AllowLocal permits localhost and private network hosts
	AllowLocal bool
	// MaxLength is the maximum allowed URL length
	MaxLength int
}

// NewEndpointURLValidator creates a validator with secure defaults
func NewEndpointURLValidator() *EndpointURLValidator {
	return &EndpointURLValidator{
		AllowHTTP:  false,
		AllowLocal: false,
		MaxLength:  2048,
	}
}

// NewDevEndpointURLValidator creates a validator for a local development
// stack (for example a store running on localhost:54321)
func NewDevEndpointURLValidator() *EndpointURLValidator {
	return &EndpointURLValidator{
		AllowHTTP:  true,
		AllowLocal: true,
		MaxLength:  2048,
	}
}

// ValidateAndNormalize validates an endpoint URL and returns it without a
// trailing slash, ready to have API paths appended.
func (v *EndpointURLValidator) ValidateAndNormalize(input string) (string, error) {
	input = strings.TrimSpace(input)

	if input == "" {
		return "", fmt.Errorf("endpoint URL cannot be empty")
	}
	if len(input) > v.MaxLength {
		return "", fmt.Errorf("endpoint URL too long (max %d characters)", v.MaxLength)
	}
	if strings.ContainsAny(input, "<>\"'` ") {
		return "", fmt.Errorf("endpoint URL contains invalid characters")
	}

	if !strings.Contains(input, "://") {
		input = "https://" + input
	}

	parsedURL, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint URL: %w", err)
	}

	switch parsedURL.Scheme {
	case "https":
	case "http":
		if !v.AllowHTTP {
			return "", fmt.Errorf("endpoint URL must use https")
		}
	default:
		return "", fmt.Errorf("endpoint URL must use http or https, got %q", parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return "", fmt.Errorf("endpoint URL must have a hostname")
	}
	if parsedURL.User != nil {
		return "", fmt.Errorf("endpoint URL must not embed credentials; set remote.api_key instead")
	}
	if parsedURL.RawQuery != "" || parsedURL.Fragment != "" {
		return "", fmt.Errorf("endpoint URL must not have a query or fragment")
	}
	if strings.Contains(parsedURL.Path, "..") {
		return "", fmt.Errorf("directory traversal patterns not allowed in endpoint path")
	}

	if err := v.validateHost(parsedURL.Host); err != nil {
		return "", err
	}

	parsedURL.Path = strings.TrimRight(parsedURL.Path, "/")
	return parsedURL.String(), nil
}

func (v *EndpointURLValidator) validateHost(host string) error {
	hostname := host
	if strings.Contains(host, ":") {
		var err error
		hostname, _, err = net.SplitHostPort(host)
		if err != nil {
			return fmt.Errorf("invalid host format: %w", err)
		}
	}

	if v.AllowLocal {
		return nil
	}
	if isLocalhost(hostname) {
		return fmt.Errorf("localhost endpoints are not permitted")
	}
	if ip := net.ParseIP(hostname); ip != nil && (isPrivateIP(ip) || ip.IsUnspecified()) {
		return fmt.Errorf("private IP endpoints are not permitted")
	}
	return nil
}

// isLocalhost checks if a hostname refers to localhost
func isLocalhost(hostname string) bool {
	hostname = strings.ToLower(hostname)
	return hostname == "localhost" ||
		hostname == "127.0.0.1" ||
		hostname == "::1" ||
		strings.HasSuffix(hostname, ".localhost")
}

var privateBlocks = func() []*net.IPNet {
	var blocks []*net.IPNet
	for _, cidr := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16", // Link-local
		"127.0.0.0/8",    // Loopback
		"fc00::/7",       // Unique local
		"fe80::/10",      // Link-local
	} {
		_, block, _ := net.ParseCIDR(cidr)
		blocks = append(blocks, block)
	}
	return blocks
}()

// isPrivateIP checks if an IP address is in a private range
func isPrivateIP(ip net.IP) bool {
	for _, block := range privateBlocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}
