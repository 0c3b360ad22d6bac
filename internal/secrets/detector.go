package secrets

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	gitleaksconfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
)

const (
	detectorInitializationErrorTemplateConstant = "initialize secret detector: %w"
	minimumSecretLengthConstant                 = 4
)

// Finding describes one detected secret.
type Finding struct {
	RuleID string
	Secret string
}

// Detector scans text for secrets. The gitleaks configuration is parsed on first
// use; each scan runs against a fresh gitleaks detector so findings never accumulate.
type Detector struct {
	initializationGuard sync.Once
	configuration       gitleaksconfig.Config
	initializationError error
}

// NewDetector constructs a Detector with the gitleaks default rules.
func NewDetector() *Detector {
	return &Detector{}
}

// Detect returns every finding in text ordered by descending secret length,
// so callers replacing secrets handle overlapping matches correctly.
func (detector *Detector) Detect(text string) ([]Finding, error) {
	if len(strings.TrimSpace(text)) == 0 {
		return nil, nil
	}

	configuration, configurationError := detector.loadConfiguration()
	if configurationError != nil {
		return nil, configurationError
	}

	gitleaksDetector := detect.NewDetector(configuration)
	seenSecrets := map[string]struct{}{}
	findings := []Finding{}
	for _, gitleaksFinding := range gitleaksDetector.DetectString(text) {
		secret := gitleaksFinding.Secret
		if len(secret) == 0 {
			secret = gitleaksFinding.Match
		}
		if len(secret) < minimumSecretLengthConstant {
			continue
		}
		if _, seen := seenSecrets[secret]; seen {
			continue
		}
		seenSecrets[secret] = struct{}{}
		findings = append(findings, Finding{RuleID: gitleaksFinding.RuleID, Secret: secret})
	}

	sort.SliceStable(findings, func(first int, second int) bool {
		return len(findings[first].Secret) > len(findings[second].Secret)
	})
	return findings, nil
}

// Find returns the distinct secret values found in text.
func (detector *Detector) Find(text string) ([]string, error) {
	findings, detectError := detector.Detect(text)
	if detectError != nil {
		return nil, detectError
	}
	secrets := make([]string, 0, len(findings))
	for _, finding := range findings {
		secrets = append(secrets, finding.Secret)
	}
	return secrets, nil
}

func (detector *Detector) loadConfiguration() (gitleaksconfig.Config, error) {
	detector.initializationGuard.Do(func() {
		defaultDetector, creationError := detect.NewDetectorDefaultConfig()
		if creationError != nil {
			detector.initializationError = fmt.Errorf(detectorInitializationErrorTemplateConstant, creationError)
			return
		}
		detector.configuration = defaultDetector.Config
	})
	return detector.configuration, detector.initializationError
}
