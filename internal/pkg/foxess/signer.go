package foxess

import (
	"net/http"
	"strconv"
	"time"

	"github.com/anicoll/foxess-integration/pkg/hasher"
)

// Signer produces the per request headers for the signed api. Signatures are never cached
// because the vendor rejects stale timestamps.
type Signer struct {
	apiKey string
	now    func() time.Time
}

func NewSigner(apiKey string) *Signer {
	return &Signer{apiKey: apiKey, now: time.Now}
}

func (s *Signer) sign(path string) requestEditor {
	return func(req *http.Request) {
		ts := s.now().UnixMilli()
		req.Header.Set("token", s.apiKey)
		req.Header.Set("timestamp", strconv.FormatInt(ts, 10))
		req.Header.Set("signature", hasher.Signature(path, s.apiKey, ts))
	}
}
