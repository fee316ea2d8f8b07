package adapter

import (
	"crypto/hmac"
	"crypto/md5" //nolint:gosec // the vendor protocol fixes md5 for the body digest
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestSigner adds the primary bureau's HMAC-SHA512 signature headers.
//
// The signed message is userId + unix seconds + the lowercased URL without
// its scheme + the lowercased method + nonce + the hex md5 of the body
// (empty for bodiless requests). The digest is keyed with the secret and
// sent base64 encoded.
type RequestSigner struct {
	userID string
	secret []byte
	now    func() time.Time
	nonce  func() string
}

// NewRequestSigner creates a signer for the given credentials.
func NewRequestSigner(userID, secret string) *RequestSigner {
	return &RequestSigner{
		userID: userID,
		secret: []byte(secret),
		now:    time.Now,
		nonce:  func() string { return uuid.New().String() },
	}
}

// WithClock replaces the time and nonce sources. Used by tests.
func (s *RequestSigner) WithClock(now func() time.Time, nonce func() string) *RequestSigner {
	cp := *s
	cp.now = now
	cp.nonce = nonce
	return &cp
}

// Signature computes the base64 signature and returns it with the timestamp
// and nonce it covers.
func (s *RequestSigner) Signature(method, rawURL string, body []byte) (sig, timestamp, nonce string) {
	timestamp = strconv.FormatInt(s.now().Unix(), 10)
	nonce = s.nonce()

	var bodyMD5 string
	if len(body) > 0 {
		sum := md5.Sum(body) //nolint:gosec // see import
		bodyMD5 = hex.EncodeToString(sum[:])
	}

	var msg strings.Builder
	msg.WriteString(s.userID)
	msg.WriteString(timestamp)
	msg.WriteString(stripScheme(rawURL))
	msg.WriteString(strings.ToLower(method))
	msg.WriteString(nonce)
	msg.WriteString(bodyMD5)

	mac := hmac.New(sha512.New, s.secret)
	mac.Write([]byte(msg.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), timestamp, nonce
}

// Sign sets the UserId, CurrentTimestamp, Authorization and Nonce headers.
func (s *RequestSigner) Sign(req *http.Request, body []byte) error {
	sig, ts, nonce := s.Signature(req.Method, req.URL.String(), body)
	req.Header.Set("UserId", s.userID)
	req.Header.Set("CurrentTimestamp", ts)
	req.Header.Set("Authorization", "Signature "+sig)
	req.Header.Set("Nonce", nonce)
	return nil
}

func stripScheme(rawURL string) string {
	lower := strings.ToLower(rawURL)
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(lower, scheme) {
			return lower[len(scheme):]
		}
	}
	return lower
}
