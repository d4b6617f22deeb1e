package session

import (
	"strings"
	"time"
)

const (
	// ChallengeTTL is the countdown a verification code starts with.
	ChallengeTTL = 300 * time.Second
	// CodeLength is the number of digits in a verification code.
	CodeLength = 6
)

// Challenge is the time-boxed OTP verification step that follows
// registration and OTP-handoff logins. It is cooperative: remaining time
// is derived from the injected clock on demand, no background timer runs.
// The challenge owns the countdown; the session manager owns the
// verification call.
type Challenge struct {
	target   string
	deadline time.Time
	now      func() time.Time
	code     string
	armed    bool
}

// NewChallenge creates a challenge for the contact the code was sent to.
// Exactly one of email/phone backs the target. A nil clock uses time.Now.
func NewChallenge(target string, now func() time.Time) *Challenge {
	if now == nil {
		now = time.Now
	}
	return &Challenge{
		target:   target,
		deadline: now().Add(ChallengeTTL),
		now:      now,
		armed:    true,
	}
}

// Target returns the contact the code was sent to.
func (c *Challenge) Target() string { return c.target }

// Code returns the current sanitized code entry.
func (c *Challenge) Code() string { return c.code }

// Input replaces the code entry with a sanitized form of raw: non-digits
// stripped, truncated to CodeLength. submit is true the moment the entry
// reaches exactly CodeLength digits, and fires once per completed entry;
// it re-arms only after the entry drops below full length again. Manual
// submission stays possible by reading Code directly.
func (c *Challenge) Input(raw string) (code string, submit bool) {
	var b strings.Builder
	for _, r := range raw {
		if r < '0' || r > '9' {
			continue
		}
		b.WriteRune(r)
		if b.Len() == CodeLength {
			break
		}
	}
	c.code = b.String()

	if len(c.code) < CodeLength {
		c.armed = true
		return c.code, false
	}
	if c.armed {
		c.armed = false
		return c.code, true
	}
	return c.code, false
}

// Remaining returns the time left on the countdown, clamped at zero.
func (c *Challenge) Remaining() time.Duration {
	d := c.deadline.Sub(c.now())
	if d < 0 {
		return 0
	}
	return d
}

// Expired reports whether the countdown has reached zero.
func (c *Challenge) Expired() bool { return c.Remaining() == 0 }

// CanResend reports resend eligibility: only once the countdown is spent.
func (c *Challenge) CanResend() bool { return c.Remaining() == 0 }

// Resend resets the countdown and disables itself again. It does not
// cancel a code already in flight at the gateway; reconciling superseded
// codes is the gateway's concern.
func (c *Challenge) Resend() bool {
	if !c.CanResend() {
		return false
	}
	c.deadline = c.now().Add(ChallengeTTL)
	return true
}
