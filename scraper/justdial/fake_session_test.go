package justdial

import (
	"context"
	"errors"
	"fmt"
	"time"

	"justdial-scraper/models"
	"justdial-scraper/utils"
)

// fakeSession is an in-memory Session. Each drain reveals the next batch of
// pairs, standing in for listing responses arriving while scrolling.
type fakeSession struct {
	navigated  []string
	onNavigate func(url string) error
	cookies    map[string]string
	cookieErr  error

	nextData string
	batches  [][]models.CollectedPair
	drains   int
	drainErr error

	nodes map[string]string

	scrolls   []int
	scrollErr error
	failAfter int

	hookInstalls int
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		cookies: map[string]string{"JDTID": "t"},
		nodes:   make(map[string]string),
	}
}

func (f *fakeSession) Navigate(_ context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	if f.onNavigate != nil {
		return f.onNavigate(url)
	}
	return nil
}

func (f *fakeSession) Cookies(context.Context) (map[string]string, error) {
	if f.cookieErr != nil {
		return nil, f.cookieErr
	}
	out := make(map[string]string, len(f.cookies))
	for k, v := range f.cookies {
		out[k] = v
	}
	return out, nil
}

func (f *fakeSession) Evaluate(_ context.Context, expression string, res any) error {
	switch expression {
	case hookScript:
		f.hookInstalls++
		if p, ok := res.(*bool); ok {
			*p = true
		}
		return nil
	case nextDataScript:
		if p, ok := res.(*string); ok {
			*p = f.nextData
		}
		return nil
	case drainScript:
		if f.drainErr != nil {
			return f.drainErr
		}
		p, ok := res.(*[]models.CollectedPair)
		if !ok {
			return fmt.Errorf("unexpected drain target %T", res)
		}
		*p = f.revealed()
		f.drains++
		return nil
	}
	return errors.New("unexpected script")
}

func (f *fakeSession) revealed() []models.CollectedPair {
	if len(f.batches) == 0 {
		return nil
	}
	idx := min(f.drains, len(f.batches)-1)
	var out []models.CollectedPair
	for _, b := range f.batches[:idx+1] {
		out = append(out, b...)
	}
	return out
}

func (f *fakeSession) ElementHTML(_ context.Context, id string) (string, error) {
	html, ok := f.nodes[id]
	if !ok {
		return "", ErrElementNotFound
	}
	return html, nil
}

func (f *fakeSession) ScrollBy(_ context.Context, pixels int) error {
	if f.scrollErr != nil && len(f.scrolls) >= f.failAfter {
		return f.scrollErr
	}
	f.scrolls = append(f.scrolls, pixels)
	return nil
}

// fakePrompter logs the operator in after a number of prompts.
type fakePrompter struct {
	session    *fakeSession
	loginAfter int
	calls      int
	err        error
}

func (p *fakePrompter) Prompt(string) error {
	p.calls++
	if p.err != nil {
		return p.err
	}
	if p.loginAfter > 0 && p.calls >= p.loginAfter {
		p.session.cookies["JDSID"] = "s"
	}
	return nil
}

func pair(id, token string) models.CollectedPair {
	return models.CollectedPair{ItemID: id, SecondaryToken: token}
}

func listingNode(id, title, rating, address string) string {
	return fmt.Sprintf(`<div id=%q class="resultbox">
		<a href="/Thane/%s" title=%q><h3>%s</h3></a>
		<ul><li class="resultbox_totalrate__x1">%s</li></ul>
		<address>%s</address>
	</div>`, id, id, title, title, rating, address)
}

func noSleep(time.Duration) {}

func testLogger() *utils.Logger { return utils.NewLogger() }
