package anonymizer

import (
	"fmt"
	"regexp"
)

// Mode controls how aggressively columns are flagged for removal.
type Mode string

const (
	ModeStrict     Mode = "strict"
	ModeBalanced   Mode = "balanced"
	ModePermissive Mode = "permissive"
)

// Config contains the tunable parameters of the anonymization pipeline.
// It is immutable once compiled; build one per run with Compile.
type Config struct {
	// Dual confidence thresholds for name classification.
	StrictThreshold float64 `yaml:"strict_threshold" mapstructure:"strict_threshold"`
	LooseThreshold  float64 `yaml:"loose_threshold" mapstructure:"loose_threshold"`

	// Candidate length bounds.
	MinNameLength int `yaml:"min_name_length" mapstructure:"min_name_length"`
	MaxNameLength int `yaml:"max_name_length" mapstructure:"max_name_length"`

	// Entropy signal tuning.
	EntropyThreshold float64 `yaml:"entropy_threshold" mapstructure:"entropy_threshold"`

	// Weight of the capitalization signal. Kept low on purpose so that
	// lowercase names are never penalized out of detection.
	CapitalizationWeight float64 `yaml:"capitalization_weight" mapstructure:"capitalization_weight"`

	// Column scoring blend weights (ratio / confidence / column-name hint).
	RatioWeight      float64 `yaml:"ratio_weight" mapstructure:"ratio_weight"`
	ConfidenceWeight float64 `yaml:"confidence_weight" mapstructure:"confidence_weight"`
	HintWeight       float64 `yaml:"hint_weight" mapstructure:"hint_weight"`

	Mode Mode `yaml:"mode" mapstructure:"mode"`

	DetectUncommonNames bool `yaml:"detect_uncommon_names" mapstructure:"detect_uncommon_names"`
	DetectAddresses     bool `yaml:"detect_addresses" mapstructure:"detect_addresses"`
	DetectIDs           bool `yaml:"detect_ids" mapstructure:"detect_ids"`

	// Confidence floor for replacing single tokens inside running text.
	// Stricter than column-level decisions because in-text redaction is
	// higher risk.
	TextNameFloor float64 `yaml:"text_name_floor" mapstructure:"text_name_floor"`

	// Number of values sampled per column.
	SampleSize int `yaml:"sample_size" mapstructure:"sample_size"`

	// Optional ONNX NER model path. Empty disables the NER signal.
	NERModelPath string `yaml:"ner_model_path" mapstructure:"ner_model_path"`

	// Custom pattern families. Empty slices fall back to the defaults.
	AccountPatterns   []string `yaml:"account_patterns" mapstructure:"account_patterns"`
	SensitivePatterns []string `yaml:"sensitive_patterns" mapstructure:"sensitive_patterns"`
	AddressPatterns   []string `yaml:"address_patterns" mapstructure:"address_patterns"`
}

// DefaultConfig returns the tuned defaults. The blend weights and thresholds
// are empirical; they are exposed in Config rather than hard-coded so callers
// can adjust them.
func DefaultConfig() Config {
	return Config{
		StrictThreshold:      0.9,
		LooseThreshold:       0.6,
		MinNameLength:        2,
		MaxNameLength:        50,
		EntropyThreshold:     2.5,
		CapitalizationWeight: 0.3,
		RatioWeight:          0.6,
		ConfidenceWeight:     0.3,
		HintWeight:           0.1,
		Mode:                 ModeBalanced,
		DetectUncommonNames:  true,
		DetectAddresses:      true,
		DetectIDs:            true,
		TextNameFloor:        0.6,
		SampleSize:           1000,
	}
}

var defaultAccountPatterns = []string{
	`\b\d{10,20}\b`,                              // long account numbers
	`\b[A-Z]{2}\d{2}[A-Z0-9]{10,30}\b`,           // IBAN
	`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`, // card numbers
	`\b\d{3}-\d{2}-\d{4}\b`,                      // US SSN
	`\b\d{13}\b`,                                 // French NIR
	`\b[A-Z]{1,2}\d{6,12}[A-Z]?\b`,               // bank identifiers
}

var defaultSensitivePatterns = []string{
	`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,7}\b`,  // emails
	`\b(?:0[1-9]|(?:\+33|0033)[1-9])(?:[-.\s]?\d{2}){4}\b`, // French phones
	`\+\d{1,3}[-.\s]?\d{4,14}\b`,                           // international phones
	`\b\d{5}\b`,                                            // French postal codes
}

var defaultAddressPatterns = []string{
	`(?i)\b\d+\s+(?:rue|avenue|boulevard|place|allée|impasse|chemin|route)\s+[A-Za-zÀ-ÿ\s]+`,
	`(?i)\b\d+\s+[A-Za-zÀ-ÿ\s]+(?:street|avenue|boulevard|road|lane|drive|court)\b`,
	`\b\d{5}\s+[A-Za-zÀ-ÿ-]+\b`, // postal code + city
	`\b[A-Za-zÀ-ÿ-]+\s+\d{5}\b`, // city + postal code
}

// patternSet holds one compiled regex family.
type patternSet struct {
	exprs []*regexp.Regexp
}

func (ps *patternSet) matchAny(s string) bool {
	for _, re := range ps.exprs {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func (ps *patternSet) replaceAll(s, placeholder string) string {
	for _, re := range ps.exprs {
		s = re.ReplaceAllString(s, placeholder)
	}
	return s
}

// CompiledConfig is a Config with every pattern family compiled. Building it
// is the only place pattern errors can surface; the scan stages never fail on
// patterns.
type CompiledConfig struct {
	Config

	account        *patternSet
	sensitive      *patternSet
	address        *patternSet
	email          *regexp.Regexp
	phones         *patternSet
	international  map[string]*patternSet
	nameStructure  *regexp.Regexp
	initials       *regexp.Regexp
	accentedLetter *regexp.Regexp
}

// Compile validates cfg and compiles all pattern families. A malformed custom
// pattern fails here, not mid-scan.
func Compile(cfg Config) (*CompiledConfig, error) {
	if cfg.StrictThreshold < cfg.LooseThreshold {
		return nil, fmt.Errorf("strict threshold %.2f below loose threshold %.2f", cfg.StrictThreshold, cfg.LooseThreshold)
	}
	if cfg.MinNameLength < 1 || cfg.MaxNameLength < cfg.MinNameLength {
		return nil, fmt.Errorf("invalid name length bounds [%d, %d]", cfg.MinNameLength, cfg.MaxNameLength)
	}
	switch cfg.Mode {
	case ModeStrict, ModeBalanced, ModePermissive:
	default:
		return nil, fmt.Errorf("invalid anonymization mode: %q (must be strict, balanced, or permissive)", cfg.Mode)
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = DefaultConfig().SampleSize
	}

	cc := &CompiledConfig{Config: cfg}

	var err error
	if cc.account, err = compileSet("account", orDefault(cfg.AccountPatterns, defaultAccountPatterns)); err != nil {
		return nil, err
	}
	if cc.sensitive, err = compileSet("sensitive", orDefault(cfg.SensitivePatterns, defaultSensitivePatterns)); err != nil {
		return nil, err
	}
	if cc.address, err = compileSet("address", orDefault(cfg.AddressPatterns, defaultAddressPatterns)); err != nil {
		return nil, err
	}

	cc.international = make(map[string]*patternSet, len(internationalNamePatterns))
	for origin, patterns := range internationalNamePatterns {
		set, err := compileSet("international/"+origin, patterns)
		if err != nil {
			return nil, err
		}
		cc.international[origin] = set
	}

	cc.email = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,7}\b`)
	phoneSet, err := compileSet("phone", []string{
		`\b(?:0[1-9]|(?:\+33|0033)[1-9])(?:[-.\s]?\d{2}){4}\b`,
		`\+\d{1,3}[-.\s]?\d{4,14}\b`,
		`\b\d{10}\b`,
	})
	if err != nil {
		return nil, err
	}
	cc.phones = phoneSet

	cc.nameStructure = regexp.MustCompile(`^[A-Za-zÀ-ÿ]+(?:[-'\s][A-Za-zÀ-ÿ]+)*$`)
	cc.initials = regexp.MustCompile(`\b[A-Z]\.\s*[A-Z]\.?\s*[A-Za-zÀ-ÿ]+`)
	cc.accentedLetter = regexp.MustCompile(`[àáâãäåæçèéêëìíîïðñòóôõöøùúûüýþÿ]`)

	return cc, nil
}

func compileSet(family string, patterns []string) (*patternSet, error) {
	set := &patternSet{exprs: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s pattern %q: %w", family, p, err)
		}
		set.exprs = append(set.exprs, re)
	}
	return set, nil
}

func orDefault(custom, fallback []string) []string {
	if len(custom) > 0 {
		return custom
	}
	return fallback
}

// adaptiveThreshold derives the column decision threshold from the mode and
// the column-name hint. Strict mode lowers the bar (flags more), permissive
// raises it; balanced nudges the bar down only when the column name itself is
// already suggestive.
func (cc *CompiledConfig) adaptiveThreshold(hintScore float64) float64 {
	base := cc.StrictThreshold
	switch cc.Mode {
	case ModeStrict:
		return base * 0.8
	case ModePermissive:
		return base * 1.2
	}
	if hintScore > 0.5 {
		return base * 0.9
	}
	return base
}

// accountThreshold is the hit-ratio bar for flagging account/ID columns.
// Financial identifiers are rarer per row than names, hence the lower bar.
func (cc *CompiledConfig) accountThreshold() float64 {
	if cc.Mode == ModePermissive {
		return 0.3
	}
	return 0.2
}
