package wompi

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jaevor/go-nanoid"
)

// SignatureService computes the SHA-256 integrity signatures Wompi requires on
// outbound transactions and verifies the checksums it attaches to webhook
// events.
type SignatureService struct {
	integritySecret string
	eventsSecret    string
	production      bool
	newSuffix       func() string
}

func NewSignatureService(integritySecret, eventsSecret string, production bool) *SignatureService {
	suffix, err := nanoid.CustomASCII("0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ", 6)
	if err != nil {
		// CustomASCII only fails on a bad alphabet/length, which is fixed here.
		panic(err)
	}
	return &SignatureService{
		integritySecret: integritySecret,
		eventsSecret:    eventsSecret,
		production:      production,
		newSuffix:       suffix,
	}
}

// GenerateSignature builds the outbound integrity signature. The
// concatenation order is fixed by the gateway: reference, amount, currency,
// optional expiration time, secret.
func (s *SignatureService) GenerateSignature(reference string, amountInCents int64, currency, expirationTime string) (string, error) {
	if s.integritySecret == "" {
		return "", errors.New("integrity secret is not configured")
	}

	var b strings.Builder
	b.WriteString(reference)
	b.WriteString(strconv.FormatInt(amountInCents, 10))
	b.WriteString(currency)
	if expirationTime != "" {
		b.WriteString(expirationTime)
	}
	b.WriteString(s.integritySecret)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:]), nil
}

// VerifyEventChecksum recomputes the webhook checksum from the property paths
// the event itself names and compares it case-insensitively against the
// received header value. It never returns an error: any failure counts as an
// invalid signature. A missing events secret is tolerated outside production
// so sandbox webhooks can be exercised without one.
func (s *SignatureService) VerifyEventChecksum(event *Event, receivedChecksum string) bool {
	if s.eventsSecret == "" {
		if s.production {
			log.Println("wompi: events secret missing in production, rejecting webhook")
			return false
		}
		log.Println("wompi: events secret not configured, skipping checksum validation")
		return true
	}

	if receivedChecksum == "" {
		log.Println("wompi: webhook arrived without checksum header")
		return false
	}

	var b strings.Builder
	for _, property := range event.Signature.Properties {
		b.WriteString(formatSignatureValue(lookupNested(event.Data, property)))
	}
	b.WriteString(strconv.FormatInt(event.Timestamp, 10))
	b.WriteString(s.eventsSecret)

	sum := sha256.Sum256([]byte(b.String()))
	calculated := strings.ToUpper(hex.EncodeToString(sum[:]))

	return calculated == strings.ToUpper(receivedChecksum)
}

// GenerateReference produces a globally unique opaque reference. The gateway
// rejects reuse, so every attempt needs a fresh one.
func (s *SignatureService) GenerateReference(prefix string) string {
	if prefix == "" {
		prefix = "ENCARGATE"
	}
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%d-%s", prefix, id, time.Now().UnixMilli(), s.newSuffix())
}

// lookupNested resolves a dotted path such as "transaction.amount_in_cents"
// inside the event data.
func lookupNested(data map[string]interface{}, path string) interface{} {
	var current interface{} = data
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

func formatSignatureValue(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		// JSON numbers decode as float64; amounts are integral cents.
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprint(value)
	}
}
