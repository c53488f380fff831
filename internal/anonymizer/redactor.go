package anonymizer

import (
	"regexp"
	"strings"
)

// Placeholder tokens substituted for detected spans. They contain no letters
// matched by the detection patterns, so redaction is idempotent.
const (
	EmailPlaceholder   = "[EMAIL_REDACTED]"
	PhonePlaceholder   = "[PHONE_REDACTED]"
	IDPlaceholder      = "[ID_REDACTED]"
	AddressPlaceholder = "[ADDRESS_REDACTED]"
	NamePlaceholder    = "[NAME_REDACTED]"
)

var placeholderToken = regexp.MustCompile(`^\[[A-Z_]+\]$`)

// wordTrim strips punctuation that clings to tokens in running text.
var wordTrim = regexp.MustCompile(`^[^\p{L}\d]+|[^\p{L}\d]+$`)

// Redactor replaces sensitive spans in free text with placeholder tokens.
//
// Structured patterns run first (email, phone, account/ID, address) so a
// later token-level name check can never partially match inside an already
// replaced span. Token-level name redaction uses a stricter confidence floor
// than column decisions because replacing words inside running text is the
// higher-risk operation.
type Redactor struct {
	cfg        *CompiledConfig
	classifier *Classifier
}

// NewRedactor creates a redactor sharing the run's classifier cache.
func NewRedactor(cfg *CompiledConfig, classifier *Classifier) *Redactor {
	return &Redactor{cfg: cfg, classifier: classifier}
}

// Redact returns text with sensitive spans replaced. Empty input is
// returned as-is.
func (r *Redactor) Redact(text string) string {
	if text == "" {
		return text
	}

	redacted := r.cfg.email.ReplaceAllString(text, EmailPlaceholder)
	redacted = r.cfg.phones.replaceAll(redacted, PhonePlaceholder)
	if r.cfg.DetectIDs {
		redacted = r.cfg.account.replaceAll(redacted, IDPlaceholder)
	}
	if r.cfg.DetectAddresses {
		redacted = r.cfg.address.replaceAll(redacted, AddressPlaceholder)
	}
	return r.redactNames(redacted)
}

// RedactAddresses replaces only address spans, used for address columns kept
// in place rather than dropped.
func (r *Redactor) RedactAddresses(text string) string {
	if text == "" {
		return text
	}
	return r.cfg.address.replaceAll(text, AddressPlaceholder)
}

// redactNames tokenizes the text and replaces tokens the classifier flags
// with high confidence.
func (r *Redactor) redactNames(text string) string {
	words := strings.Fields(text)
	changed := false
	for i, word := range words {
		if placeholderToken.MatchString(word) {
			continue
		}
		clean := wordTrim.ReplaceAllString(word, "")
		if len([]rune(clean)) < r.cfg.MinNameLength {
			continue
		}
		result := r.classifier.Classify(clean)
		if result.IsMatch && result.Confidence > r.cfg.TextNameFloor {
			words[i] = NamePlaceholder
			changed = true
		}
	}
	if !changed {
		return text
	}
	return strings.Join(words, " ")
}
