package storegate_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/sagarc03/storegate"
	"github.com/sagarc03/storegate/keybackend"
	stowrysign "github.com/sagarc03/stowry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccessKey = "STOREGATETEST"
	testSecretKey = "testsecret123"
)

func TestMethodForPermission(t *testing.T) {
	tests := []struct {
		perm    storegate.Permission
		want    string
		wantErr bool
	}{
		{perm: storegate.PermissionRead, want: http.MethodGet},
		{perm: storegate.PermissionWrite, want: http.MethodPut},
		{perm: storegate.PermissionDelete, want: http.MethodDelete},
		{perm: storegate.PermissionReadWrite, wantErr: true},
		{perm: "bogus", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(string(tt.perm), func(t *testing.T) {
			got, err := storegate.MethodForPermission(tt.perm)
			if tt.wantErr {
				assert.ErrorIs(t, err, storegate.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewGrantSigner(t *testing.T) {
	tests := []struct {
		name      string
		baseURL   string
		accessKey string
		secretKey string
		wantErr   bool
	}{
		{name: "valid", baseURL: "http://localhost:8080", accessKey: "a", secretKey: "s"},
		{name: "with path prefix", baseURL: "https://files.example.com/gw/", accessKey: "a", secretKey: "s"},
		{name: "missing scheme", baseURL: "localhost:8080", accessKey: "a", secretKey: "s", wantErr: true},
		{name: "empty url", baseURL: "", accessKey: "a", secretKey: "s", wantErr: true},
		{name: "missing access key", baseURL: "http://localhost", secretKey: "s", wantErr: true},
		{name: "missing secret key", baseURL: "http://localhost", accessKey: "a", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer, err := storegate.NewGrantSigner(tt.baseURL, tt.accessKey, tt.secretKey)
			if tt.wantErr {
				assert.ErrorIs(t, err, storegate.ErrInvalidConfiguration)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, signer)
		})
	}
}

func TestGrantSigner_SignedURL(t *testing.T) {
	signer, err := storegate.NewGrantSigner("http://localhost:8080", testAccessKey, testSecretKey)
	require.NoError(t, err)

	t.Run("write grant", func(t *testing.T) {
		raw, err := signer.SignedURL("/objects/uploads/report.pdf", storegate.PermissionWrite, time.Now().Add(storegate.GrantTTL))
		require.NoError(t, err)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "localhost:8080", u.Host)
		assert.Equal(t, "/objects/uploads/report.pdf", u.Path)

		q := u.Query()
		assert.Equal(t, testAccessKey, q.Get(stowrysign.StowryCredentialParam))

		expires, err := strconv.ParseInt(q.Get(stowrysign.StowryExpiresParam), 10, 64)
		require.NoError(t, err)
		assert.InDelta(t, 600, expires, 1)

		timestamp, err := strconv.ParseInt(q.Get(stowrysign.StowryDateParam), 10, 64)
		require.NoError(t, err)
		want := stowrysign.Sign(testSecretKey, http.MethodPut, "/objects/uploads/report.pdf", timestamp, expires)
		assert.Equal(t, want, q.Get(stowrysign.StowrySignatureParam))
	})

	t.Run("escapes object names", func(t *testing.T) {
		raw, err := signer.SignedURL("/objects/uploads/a%b.txt", storegate.PermissionRead, time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.Contains(t, raw, "/objects/uploads/a%25b.txt?")
	})

	t.Run("read write is rejected", func(t *testing.T) {
		_, err := signer.SignedURL("/objects/uploads/a.txt", storegate.PermissionReadWrite, time.Now().Add(time.Minute))
		assert.ErrorIs(t, err, storegate.ErrInvalidInput)
	})

	t.Run("expiry in the past", func(t *testing.T) {
		_, err := signer.SignedURL("/objects/uploads/a.txt", storegate.PermissionWrite, time.Now().Add(-time.Minute))
		assert.ErrorIs(t, err, storegate.ErrInvalidInput)
	})

	t.Run("expiry beyond seven days", func(t *testing.T) {
		_, err := signer.SignedURL("/objects/uploads/a.txt", storegate.PermissionWrite, time.Now().Add(8*24*time.Hour))
		assert.ErrorIs(t, err, storegate.ErrInvalidInput)
	})
}

func TestGrantVerifier_Verify(t *testing.T) {
	store := keybackend.NewMapSecretStore(map[string]string{
		testAccessKey: testSecretKey,
	})

	verifier := storegate.NewGrantVerifier(store)

	validTimestamp := time.Now().Unix()
	validExpires := int64(900)
	validSignature := stowrysign.Sign(testSecretKey, "GET", "/objects/uploads/test.txt", validTimestamp, validExpires)

	expiredTimestamp := time.Now().Add(-2 * time.Hour).Unix()
	expiredSignature := stowrysign.Sign(testSecretKey, "GET", "/objects/uploads/test.txt", expiredTimestamp, validExpires)

	tests := []struct {
		name      string
		method    string
		query     url.Values
		wantError string
	}{
		{
			name:      "empty query",
			query:     url.Values{},
			wantError: "missing required signature parameters",
		},
		{
			name: "missing credential",
			query: url.Values{
				"X-Stowry-Date":      []string{fmt.Sprintf("%d", validTimestamp)},
				"X-Stowry-Expires":   []string{fmt.Sprintf("%d", validExpires)},
				"X-Stowry-Signature": []string{validSignature},
			},
			wantError: "missing required signature parameters",
		},
		{
			name: "invalid date",
			query: url.Values{
				"X-Stowry-Credential": []string{testAccessKey},
				"X-Stowry-Date":       []string{"yesterday"},
				"X-Stowry-Expires":    []string{fmt.Sprintf("%d", validExpires)},
				"X-Stowry-Signature":  []string{validSignature},
			},
			wantError: "invalid X-Stowry-Date",
		},
		{
			name: "zero expires",
			query: url.Values{
				"X-Stowry-Credential": []string{testAccessKey},
				"X-Stowry-Date":       []string{fmt.Sprintf("%d", validTimestamp)},
				"X-Stowry-Expires":    []string{"0"},
				"X-Stowry-Signature":  []string{validSignature},
			},
			wantError: "invalid X-Stowry-Expires",
		},
		{
			name: "expires too large",
			query: url.Values{
				"X-Stowry-Credential": []string{testAccessKey},
				"X-Stowry-Date":       []string{fmt.Sprintf("%d", validTimestamp)},
				"X-Stowry-Expires":    []string{"604801"},
				"X-Stowry-Signature":  []string{validSignature},
			},
			wantError: "invalid X-Stowry-Expires",
		},
		{
			name: "expired",
			query: url.Values{
				"X-Stowry-Credential": []string{testAccessKey},
				"X-Stowry-Date":       []string{fmt.Sprintf("%d", expiredTimestamp)},
				"X-Stowry-Expires":    []string{fmt.Sprintf("%d", validExpires)},
				"X-Stowry-Signature":  []string{expiredSignature},
			},
			wantError: "signature expired",
		},
		{
			name: "access key not found",
			query: url.Values{
				"X-Stowry-Credential": []string{"WRONGKEY"},
				"X-Stowry-Date":       []string{fmt.Sprintf("%d", validTimestamp)},
				"X-Stowry-Expires":    []string{fmt.Sprintf("%d", validExpires)},
				"X-Stowry-Signature":  []string{validSignature},
			},
			wantError: "access key not found",
		},
		{
			name: "signature mismatch",
			query: url.Values{
				"X-Stowry-Credential": []string{testAccessKey},
				"X-Stowry-Date":       []string{fmt.Sprintf("%d", validTimestamp)},
				"X-Stowry-Expires":    []string{fmt.Sprintf("%d", validExpires)},
				"X-Stowry-Signature":  []string{"wrongsignature123"},
			},
			wantError: "signature mismatch",
		},
		{
			name:   "method mismatch",
			method: http.MethodPut,
			query: url.Values{
				"X-Stowry-Credential": []string{testAccessKey},
				"X-Stowry-Date":       []string{fmt.Sprintf("%d", validTimestamp)},
				"X-Stowry-Expires":    []string{fmt.Sprintf("%d", validExpires)},
				"X-Stowry-Signature":  []string{validSignature},
			},
			wantError: "signature mismatch",
		},
		{
			name: "valid signature",
			query: url.Values{
				"X-Stowry-Credential": []string{testAccessKey},
				"X-Stowry-Date":       []string{fmt.Sprintf("%d", validTimestamp)},
				"X-Stowry-Expires":    []string{fmt.Sprintf("%d", validExpires)},
				"X-Stowry-Signature":  []string{validSignature},
			},
			wantError: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req := &http.Request{
				Method: method,
				URL: &url.URL{
					Path:     "/objects/uploads/test.txt",
					RawQuery: tt.query.Encode(),
				},
				Host:   "localhost:8080",
				Header: http.Header{},
			}
			err := verifier.Verify(req)

			if tt.wantError == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, storegate.ErrUnauthorized)
				assert.Contains(t, err.Error(), tt.wantError)
			}
		})
	}
}

func TestGrantSigner_RoundTrip(t *testing.T) {
	store := keybackend.NewMapSecretStore(map[string]string{testAccessKey: testSecretKey})
	verifier := storegate.NewGrantVerifier(store)

	signer, err := storegate.NewGrantSigner("http://localhost:8080", testAccessKey, testSecretKey)
	require.NoError(t, err)

	raw, err := signer.SignedURL("/objects/uploads/nested/report 2025.pdf", storegate.PermissionWrite, time.Now().Add(storegate.GrantTTL))
	require.NoError(t, err)

	t.Run("put is accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, raw, nil)
		assert.NoError(t, verifier.Verify(req))
	})

	t.Run("get is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, raw, nil)
		assert.ErrorIs(t, verifier.Verify(req), storegate.ErrUnauthorized)
	})

	t.Run("other object is rejected", func(t *testing.T) {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		u.Path = "/objects/uploads/other.pdf"
		req := httptest.NewRequest(http.MethodPut, u.String(), nil)
		assert.ErrorIs(t, verifier.Verify(req), storegate.ErrUnauthorized)
	})
}
