package sepay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// SignatureHeader is the inbound webhook signature header sent by Sepay.
const SignatureHeader = "X-Sepay-Signature"

// VerifyWebhook checks that rawBody was produced by the gateway holding
// secret. The comparison is constant time; any malformed input yields false,
// indistinguishable from a plain mismatch. Callers must decide separately
// what an empty secret means (verification skipped, never "verified").
func VerifyWebhook(rawBody []byte, providedSignature, secret string) bool {
	if secret == "" || providedSignature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(providedSignature))
}

// ComputeSignature returns the hex HMAC-SHA256 digest of body under secret.
// Used by the sandbox simulator to produce callbacks the verifier accepts.
func ComputeSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignPayload signs an outbound request payload: keys sorted, each rendered
// as key=<JSON value> and joined with "&", then HMAC-SHA256 hex under secret.
// The concatenation scheme follows the gateway's documented placeholder and
// is deterministic for a given payload.
func SignPayload(payload map[string]interface{}, secret string) (string, error) {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		encoded, err := json.Marshal(payload[k])
		if err != nil {
			return "", fmt.Errorf("encode signature field %s: %w", k, err)
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, encoded))
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strings.Join(parts, "&")))
	return hex.EncodeToString(mac.Sum(nil)), nil
}
