// Package sanitize scrubs operator-entered text before it is stored and
// later rendered on the captive portal.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	descriptionPolicyOnce sync.Once
	descriptionPolicy     *bluemonday.Policy
)

func Text(input string) string {
	return html.EscapeString(strings.TrimSpace(input))
}

func TextPtr(input *string) *string {
	if input == nil {
		return nil
	}
	value := Text(*input)
	return &value
}

// Description keeps the limited rich text plan descriptions may carry.
// Everything else, script tags included, is stripped.
func Description(input string) string {
	value := strings.TrimSpace(input)
	if value == "" {
		return ""
	}
	return getDescriptionPolicy().Sanitize(value)
}

func getDescriptionPolicy() *bluemonday.Policy {
	descriptionPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowElements("p", "br", "ul", "ol", "li", "strong", "em")
		descriptionPolicy = policy
	})

	return descriptionPolicy
}
