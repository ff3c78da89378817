package justdial

import (
	"context"
	"fmt"

	"github.com/manifoldco/promptui"

	"justdial-scraper/utils"
)

// loginCookies are cookie names whose presence means the session is logged in.
var loginCookies = []string{"JDTID", "JDSID", "sid", "jd_sid", "JDINF"}

// IsLoggedIn reports whether any known login cookie is present.
func IsLoggedIn(cookies map[string]string) bool {
	for _, name := range loginCookies {
		if _, ok := cookies[name]; ok {
			return true
		}
	}
	return false
}

// Prompter asks the operator to act and blocks until they confirm.
type Prompter interface {
	Prompt(message string) error
}

// TerminalPrompter prompts on the controlling terminal.
type TerminalPrompter struct{}

func (TerminalPrompter) Prompt(message string) error {
	p := promptui.Prompt{Label: message}
	_, err := p.Run()
	return err
}

// LoginGate checks the session's login state and, when needed, waits for the
// operator to log in through the prompter, up to maxAttempts prompts.
type LoginGate struct {
	session     Session
	prompter    Prompter
	maxAttempts int
	logger      *utils.Logger
}

func NewLoginGate(session Session, prompter Prompter, maxAttempts int, logger *utils.Logger) *LoginGate {
	return &LoginGate{
		session:     session,
		prompter:    prompter,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Check reads the session cookies. A cookie read failure counts as logged out.
func (g *LoginGate) Check(ctx context.Context) bool {
	cookies, err := g.session.Cookies(ctx)
	if err != nil {
		g.logger.Warn("[session] Error reading cookies to detect login: %v", err)
		return false
	}
	return IsLoggedIn(cookies)
}

// EnsureLoggedIn returns nil once a login is detected, or ErrLoginRequired
// after maxAttempts unsuccessful prompts.
func (g *LoginGate) EnsureLoggedIn(ctx context.Context) error {
	for attempt := 0; ; attempt++ {
		if g.Check(ctx) {
			if attempt > 0 {
				g.logger.Info("[session] Detected login via cookies.")
			}
			return nil
		}
		if attempt >= g.maxAttempts || g.prompter == nil {
			return ErrLoginRequired
		}
		g.logger.Warn("[session] Not logged in (attempt %d/%d)", attempt+1, g.maxAttempts)
		if err := g.prompter.Prompt("Please login into Justdial in the browser, then press Enter"); err != nil {
			return fmt.Errorf("%w: %v", ErrLoginRequired, err)
		}
	}
}
