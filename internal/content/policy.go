// Package content decides how remote paint content is treated before it
// reaches a display.
//
// Remote output is structured markup. Trusted passes it through verbatim,
// which is only correct when the remote side is trusted to emit safe markup.
// Sanitized runs it through a bluemonday policy first.
package content

import (
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const (
	NameTrusted   = "trusted"
	NameSanitized = "sanitized"
)

// Policy prepares remote content for painting.
type Policy interface {
	Name() string
	Prepare(content string) string
}

type trusted struct{}

// Trusted returns the policy that paints content verbatim.
func Trusted() Policy { return trusted{} }

func (trusted) Name() string                  { return NameTrusted }
func (trusted) Prepare(content string) string { return content }

type sanitized struct {
	policy *bluemonday.Policy
}

// Sanitized returns the policy that strips scripts, handlers and other unsafe
// markup while keeping the elements terminal output is rendered with.
func Sanitized() Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("span", "div", "pre")
	p.AllowAttrs("class").OnElements("span", "div", "pre")
	return sanitized{policy: p}
}

func (sanitized) Name() string { return NameSanitized }

func (s sanitized) Prepare(content string) string {
	return s.policy.Sanitize(content)
}

// Parse returns the policy with the given name.
func Parse(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameTrusted, "":
		return Trusted(), nil
	case NameSanitized:
		return Sanitized(), nil
	default:
		return nil, fmt.Errorf("unknown content policy %q", name)
	}
}
