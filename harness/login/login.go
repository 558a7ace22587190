// Package login provides harnesses that drive the DUT's interactive login
// prompt over a console session.
package login

import (
	"time"

	"github.com/embedded-ci/dut-campaign/harness"
	"github.com/embedded-ci/dut-campaign/session"
	"github.com/embedded-ci/dut-campaign/types"
)

const (
	loginPrompt    = "Login:"
	passwordPrompt = "Password:"

	// promptTimeout bounds the wait for the shell prompt after credentials
	// are submitted. Both the positive and the negative assertions use it:
	// a successful login must show the prompt within the bound, a rejected
	// one must not.
	promptTimeout = time.Second

	// echoTimeout bounds the wait for the DUT to echo typed input back.
	echoTimeout = 2 * time.Second
)

// Credentials is one login/password pair under test.
type Credentials struct {
	User     string
	Password string
}

// LogIn types the credentials into the login prompt: it sends the login,
// waits for the DUT to echo it back, waits for the password prompt and sends
// the password. It does not judge whether the login was accepted.
func LogIn(s session.Session, creds Credentials) error {
	if err := s.Send(creds.User); err != nil {
		return err
	}

	result, err := s.Expect([]string{creds.User}, echoTimeout)
	if err != nil {
		return err
	}
	if result.TimedOut {
		return harness.Errorf("cannot enter login to login prompt")
	}

	result, err = s.Expect([]string{passwordPrompt}, echoTimeout)
	if err != nil {
		return err
	}
	if result.TimedOut {
		return harness.Errorf("password prompt did not appear")
	}

	return s.Send(creds.Password)
}

// AssertLogin requires the credentials to be accepted: the shell prompt must
// appear within the bound.
func AssertLogin(s session.Session, creds Credentials, shellPrompt string) error {
	if err := LogIn(s, creds); err != nil {
		return err
	}

	result, err := s.Expect([]string{shellPrompt}, promptTimeout)
	if err != nil {
		return err
	}
	if result.TimedOut {
		return harness.Errorf("login should pass but failed")
	}
	return nil
}

// AssertLoginFail requires the credentials to be rejected: the shell prompt
// must not appear within the bound. The absent prompt is the expected signal,
// not an error.
func AssertLoginFail(s session.Session, creds Credentials, shellPrompt string) error {
	if err := LogIn(s, creds); err != nil {
		return err
	}

	result, err := s.Expect([]string{shellPrompt}, promptTimeout)
	if err != nil {
		return err
	}
	if result.Matched() {
		return harness.Errorf("login should fail but passed")
	}
	return nil
}

// AssertLoginEmpty sends an empty login line and requires the login prompt to
// be displayed again, proving the DUT re-prompts instead of accepting an
// empty username.
func AssertLoginEmpty(s session.Session) error {
	if err := s.Send(""); err != nil {
		return err
	}

	result, err := s.Expect([]string{loginPrompt}, echoTimeout)
	if err != nil {
		return err
	}
	if result.TimedOut {
		return harness.Errorf("empty login doesn't repeat logging")
	}
	return nil
}

// Scenario selects which login interaction a Harness performs.
type Scenario string

const (
	ScenarioValid   Scenario = "valid"
	ScenarioInvalid Scenario = "invalid"
	ScenarioEmpty   Scenario = "empty"
)

// Harness runs one login scenario as a campaign test.
type Harness struct {
	name        string
	session     session.Session
	creds       Credentials
	shellPrompt string
	scenario    Scenario
}

// New builds a login harness for the given scenario.
func New(name string, s session.Session, creds Credentials, shellPrompt string, scenario Scenario) *Harness {
	return &Harness{
		name:        name,
		session:     s,
		creds:       creds,
		shellPrompt: shellPrompt,
		scenario:    scenario,
	}
}

// Run implements harness.Harness.
func (h *Harness) Run() (*types.TestResult, error) {
	var err error
	switch h.scenario {
	case ScenarioInvalid:
		err = AssertLoginFail(h.session, h.creds, h.shellPrompt)
	case ScenarioEmpty:
		err = AssertLoginEmpty(h.session)
	default:
		err = AssertLogin(h.session, h.creds, h.shellPrompt)
	}
	if err != nil {
		return nil, err
	}
	return types.NewTestResult(h.name), nil
}
