// Package sigv4 computes AWS Signature Version 4 request signatures.
package sigv4

import (
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/jacentio/stratum/internal/creds"
)

const (
	algorithm  = "AWS4-HMAC-SHA256"
	timeFormat = "20060102T150405Z"
	dateFormat = "20060102"
)

// Signer signs HTTP requests. The zero value signs with SHA-256.
type Signer struct {
	// NewHash constructs the hash primitive. Nil means NewSHA256.
	NewHash func(key []byte) Hash
}

// Request describes one outgoing HTTP request to sign.
type Request struct {
	Method  string
	URL     *url.URL
	Query   url.Values
	Headers http.Header
	Body    []byte
	Service string
	Region  string
	Creds   creds.Credentials

	// Time is the signing time; the zero value means now. Signing is
	// deterministic for a fixed Time.
	Time time.Time
}

// Sign returns the full header set to transmit: the input headers plus
// Host, X-Amz-Date, Authorization, and X-Amz-Security-Token when a
// session token is present. Every returned header is part of the
// signed set; transmitting anything else for these names invalidates
// the signature remotely.
func (s Signer) Sign(req Request) http.Header {
	newHash := s.NewHash
	if newHash == nil {
		newHash = NewSHA256
	}

	t := req.Time
	if t.IsZero() {
		t = time.Now()
	}
	t = t.UTC()
	amzDate := t.Format(timeFormat)
	dateStamp := t.Format(dateFormat)

	headers := make(http.Header, len(req.Headers)+4)
	for k, vs := range req.Headers {
		headers[http.CanonicalHeaderKey(k)] = vs
	}
	headers.Set("Host", req.URL.Host)
	headers.Set("X-Amz-Date", amzDate)
	if req.Creds.SessionToken != "" {
		headers.Set("X-Amz-Security-Token", req.Creds.SessionToken)
	}

	canonHeaders, signedHeaders := canonicalHeaders(headers)

	// One unkeyed instance serves both payload digests, reset between.
	digest := newHash(nil)
	digest.Update(req.Body)
	payloadHash := hex.EncodeToString(digest.Digest())

	canonical := strings.Join([]string{
		req.Method,
		canonicalURI(req.URL),
		canonicalQuery(req.Query),
		canonHeaders,
		signedHeaders,
		payloadHash,
	}, "\n")

	digest.Reset()
	digest.Update([]byte(canonical))
	canonicalHash := hex.EncodeToString(digest.Digest())

	scope := strings.Join([]string{dateStamp, req.Region, req.Service, "aws4_request"}, "/")
	stringToSign := strings.Join([]string{algorithm, amzDate, scope, canonicalHash}, "\n")

	key := signingKey(newHash, req.Creds.SecretAccessKey, dateStamp, req.Region, req.Service)
	mac := newHash(key)
	mac.Update([]byte(stringToSign))
	signature := hex.EncodeToString(mac.Digest())

	headers.Set("Authorization", algorithm+
		" Credential="+req.Creds.AccessKeyID+"/"+scope+
		", SignedHeaders="+signedHeaders+
		", Signature="+signature)

	return headers
}

// signingKey derives the request-scoped key: an HMAC chain seeded with
// "AWS4" + secret over date, region, service, and the terminator.
func signingKey(newHash func(key []byte) Hash, secret, dateStamp, region, service string) []byte {
	key := []byte("AWS4" + secret)
	for _, part := range []string{dateStamp, region, service, "aws4_request"} {
		mac := newHash(key)
		mac.Update([]byte(part))
		key = mac.Digest()
	}
	return key
}

func canonicalURI(u *url.URL) string {
	if p := u.EscapedPath(); p != "" {
		return p
	}
	return "/"
}

// canonicalQuery renders query parameters sorted by name with strict
// RFC 3986 percent-encoding (url.Values.Encode would emit '+' for
// spaces, which the signing algorithm rejects).
func canonicalQuery(q url.Values) string {
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		vs := append([]string(nil), q[k]...)
		sort.Strings(vs)
		for _, v := range vs {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(uriEncode(k))
			b.WriteByte('=')
			b.WriteString(uriEncode(v))
		}
	}
	return b.String()
}

func uriEncode(s string) string {
	const hexDigits = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0xf])
		}
	}
	return b.String()
}

// canonicalHeaders returns the canonical header block and the sorted
// signed-header list: lowercase names, trimmed values, sorted by name.
func canonicalHeaders(h http.Header) (string, string) {
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, strings.ToLower(k))
	}
	sort.Strings(names)

	var block strings.Builder
	for _, name := range names {
		values := h[http.CanonicalHeaderKey(name)]
		trimmed := make([]string, len(values))
		for i, v := range values {
			trimmed[i] = strings.Join(strings.Fields(v), " ")
		}
		block.WriteString(name)
		block.WriteByte(':')
		block.WriteString(strings.Join(trimmed, ","))
		block.WriteByte('\n')
	}
	return block.String(), strings.Join(names, ";")
}
