package storegate

import (
	"crypto/hmac"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	stowrysign "github.com/sagarc03/stowry-go"
)

// MaxExpiresSeconds is the longest validity a signed grant URI may carry (7 days).
const MaxExpiresSeconds = 604800

// MethodForPermission returns the HTTP method a signed grant authorizes.
// PermissionReadWrite cannot be expressed by a single signature.
func MethodForPermission(perm Permission) (string, error) {
	switch perm {
	case PermissionRead:
		return http.MethodGet, nil
	case PermissionWrite:
		return http.MethodPut, nil
	case PermissionDelete:
		return http.MethodDelete, nil
	default:
		return "", fmt.Errorf("permission %q cannot be signed: %w", perm, ErrInvalidInput)
	}
}

// GrantSigner mints signed URIs for objects served by this gateway.
type GrantSigner struct {
	base      *url.URL
	accessKey string
	secretKey string
	now       func() time.Time
}

// NewGrantSigner creates a signer issuing URIs rooted at baseURL.
//
// Parameters:
//   - baseURL: public origin of the gateway (e.g., "http://localhost:8080")
//   - accessKey, secretKey: the key pair the verifier resolves through its SecretStore
func NewGrantSigner(baseURL, accessKey, secretKey string) (*GrantSigner, error) {
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("new grant signer: %w: access key and secret key are required", ErrInvalidConfiguration)
	}

	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("new grant signer: %w: invalid base url %q", ErrInvalidConfiguration, baseURL)
	}

	return &GrantSigner{
		base:      base,
		accessKey: accessKey,
		secretKey: secretKey,
		now:       time.Now,
	}, nil
}

// SignedURL returns an absolute URI for path that authorizes perm until expiresAt.
func (s *GrantSigner) SignedURL(path string, perm Permission, expiresAt time.Time) (string, error) {
	method, err := MethodForPermission(perm)
	if err != nil {
		return "", fmt.Errorf("sign url: %w", err)
	}

	now := s.now()
	expires := int64(math.Ceil(expiresAt.Sub(now).Seconds()))
	if expires <= 0 || expires > MaxExpiresSeconds {
		return "", fmt.Errorf("sign url: %w: expiry must be between 1 and %d seconds from now", ErrInvalidInput, MaxExpiresSeconds)
	}

	u := *s.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	u.RawPath = ""

	timestamp := now.Unix()
	sig := stowrysign.Sign(s.secretKey, method, u.Path, timestamp, expires)

	query := url.Values{}
	query.Set(stowrysign.StowryCredentialParam, s.accessKey)
	query.Set(stowrysign.StowryDateParam, strconv.FormatInt(timestamp, 10))
	query.Set(stowrysign.StowryExpiresParam, strconv.FormatInt(expires, 10))
	query.Set(stowrysign.StowrySignatureParam, sig)
	u.RawQuery = query.Encode()

	return u.String(), nil
}

// GrantVerifier checks requests carrying a signed grant.
type GrantVerifier struct {
	secrets SecretStore
	now     func() time.Time
}

// NewGrantVerifier creates a verifier resolving access keys through secrets.
func NewGrantVerifier(secrets SecretStore) *GrantVerifier {
	return &GrantVerifier{secrets: secrets, now: time.Now}
}

// Verify validates the signature carried in r's query against r's method and
// path. Every failure wraps ErrUnauthorized.
func (v *GrantVerifier) Verify(r *http.Request) error {
	query := r.URL.Query()

	credential := query.Get(stowrysign.StowryCredentialParam)
	date := query.Get(stowrysign.StowryDateParam)
	expiresParam := query.Get(stowrysign.StowryExpiresParam)
	signature := query.Get(stowrysign.StowrySignatureParam)

	if credential == "" || date == "" || expiresParam == "" || signature == "" {
		return fmt.Errorf("missing required signature parameters: %w", ErrUnauthorized)
	}

	timestamp, err := strconv.ParseInt(date, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s format: %w", stowrysign.StowryDateParam, ErrUnauthorized)
	}

	expires, err := strconv.ParseInt(expiresParam, 10, 64)
	if err != nil || expires <= 0 || expires > MaxExpiresSeconds {
		return fmt.Errorf("invalid %s: must be between 1 and %d: %w", stowrysign.StowryExpiresParam, MaxExpiresSeconds, ErrUnauthorized)
	}

	if v.now().Unix() > timestamp+expires {
		return fmt.Errorf("signature expired: %w", ErrUnauthorized)
	}

	secretKey, err := v.secrets.Lookup(credential)
	if err != nil {
		return fmt.Errorf("invalid access key: %w", err)
	}

	expected := stowrysign.Sign(secretKey, r.Method, r.URL.Path, timestamp, expires)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("signature mismatch: %w", ErrUnauthorized)
	}

	return nil
}
