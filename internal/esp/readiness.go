package esp

import (
	"github.com/dealerops/console-api/internal/domain"
)

// ResolveSyncReadiness decides whether custom-value push sync may
// proceed for a provider, and if not, why. It is the single decision
// point the console branches on: push enabled, re-authorize prompt,
// provider-unsupported notice, or not-connected notice. Exactly one of
// those four states is active for any input.
func ResolveSyncReadiness(supportsCustomValues bool, status domain.ProviderConnectionStatus, requiredScopes []string) domain.SyncReadiness {
	if requiredScopes == nil {
		requiredScopes = []string{}
	}

	hasRequired := hasAllScopes(status.Scopes, requiredScopes)

	return domain.SyncReadiness{
		SupportsCustomValues: supportsCustomValues,
		HasRequiredScopes:    hasRequired,
		NeedsReauthorization: status.OAuthConnected && supportsCustomValues && !hasRequired,
		ReadyForSync:         supportsCustomValues && status.Connected && hasRequired,
		RequiredScopes:       requiredScopes,
	}
}

// MissingScopes returns the required scopes absent from granted, in
// required order. Used to build the re-authorization prompt.
func MissingScopes(granted, required []string) []string {
	have := make(map[string]bool, len(granted))
	for _, s := range granted {
		have[s] = true
	}
	var missing []string
	for _, s := range required {
		if !have[s] {
			missing = append(missing, s)
		}
	}
	return missing
}

// hasAllScopes reports whether required is a subset of granted. An
// empty required list is trivially satisfied.
func hasAllScopes(granted, required []string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]bool, len(granted))
	for _, s := range granted {
		have[s] = true
	}
	for _, s := range required {
		if !have[s] {
			return false
		}
	}
	return true
}
