package justdial

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"

	"justdial-scraper/models"
	"justdial-scraper/utils"
)

const defaultOrigin = "https://www.justdial.com"

var (
	phoneRegexp = regexp.MustCompile(`\d{10,15}`)

	// query keys checked when the redirect target path carries no number
	phoneQueryKeys = []string{"phone", "phoneNumber", "text"}
)

// ResolverConfig controls the resolution HTTP client.
type ResolverConfig struct {
	BaseURL   string
	UserAgent string
	Origin    string
	Timeout   time.Duration
	DelayMin  time.Duration
	DelayMax  time.Duration
}

// Resolution is the outcome of resolving one pair.
type Resolution struct {
	Target     string
	Phone      *string
	Status     models.ResolutionStatus
	StatusCode int
	Err        error
}

// Resolver turns a (docid, scd) pair into a phone number by reading the
// redirect target of the click-to-chat endpoint without following it.
type Resolver struct {
	cfg     ResolverConfig
	client  *resty.Client
	limiter *utils.RateLimiter
	logger  *utils.Logger
}

// NewResolver creates a Resolver. Requests are spaced by a randomized delay
// in [DelayMin, DelayMax).
func NewResolver(cfg ResolverConfig, logger *utils.Logger) *Resolver {
	if cfg.Origin == "" {
		cfg.Origin = defaultOrigin
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Origin", cfg.Origin)
	client.SetRedirectPolicy(resty.RedirectPolicyFunc(
		func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	))
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		logger.Debug("[resolve] GET %s", req.URL)
		return nil
	})
	client.OnError(func(req *resty.Request, err error) {
		logger.Debug("[resolve] %s failed: %v", req.URL, err)
	})

	return &Resolver{
		cfg:     cfg,
		client:  client,
		limiter: utils.NewRateLimiter(cfg.DelayMin, cfg.DelayMax),
		logger:  logger,
	}
}

// BuildResolveURL returns the resolver URL for one pair.
func BuildResolveURL(base, itemID, token string) string {
	return fmt.Sprintf("%s?dd=%s&wp=%s", base, url.QueryEscape(itemID), url.QueryEscape(token))
}

// ExtractPhone returns the first 10 to 15 digit run in target, falling back
// to the phone, phoneNumber and text query parameters. It returns "" when no
// number is present.
func ExtractPhone(target string) string {
	if target == "" {
		return ""
	}
	if m := phoneRegexp.FindString(target); m != "" {
		return m
	}
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	q := u.Query()
	for _, key := range phoneQueryKeys {
		if m := phoneRegexp.FindString(q.Get(key)); m != "" {
			return m
		}
	}
	return ""
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// Resolve performs one non-following GET for the pair. Network failures and
// non-redirect responses yield an unresolved Resolution, never an error.
func (r *Resolver) Resolve(ctx context.Context, pair models.CollectedPair, cookies map[string]string, referer string) Resolution {
	r.limiter.Wait()

	target := BuildResolveURL(r.cfg.BaseURL, pair.ItemID, pair.SecondaryToken)
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Referer", referer).
		SetCookies(toHTTPCookies(cookies)).
		Get(target)
	if err != nil {
		r.logger.Warn("[resolve] %s: request failed: %v", pair.ItemID, err)
		return Resolution{Status: models.ResolutionUnresolved, Err: err}
	}

	code := resp.StatusCode()
	if !isRedirect(code) {
		r.logger.Warn("[resolve] %s: expected a redirect, got HTTP %d", pair.ItemID, code)
		return Resolution{Status: models.ResolutionUnresolved, StatusCode: code}
	}

	location := resp.Header().Get("Location")
	if location == "" {
		r.logger.Warn("[resolve] %s: HTTP %d without Location", pair.ItemID, code)
		return Resolution{Status: models.ResolutionUnresolved, StatusCode: code}
	}

	res := Resolution{Target: location, StatusCode: code, Status: models.ResolutionNoNumber}
	if phone := ExtractPhone(location); phone != "" {
		res.Phone = &phone
		res.Status = models.ResolutionResolved
	}
	return res
}

// Apply copies the resolution outcome onto the record.
func (res Resolution) Apply(rec *models.Record) {
	rec.Phone = res.Phone
	rec.Resolution = res.Status
}

func toHTTPCookies(cookies map[string]string) []*http.Cookie {
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*http.Cookie, 0, len(names))
	for _, name := range names {
		out = append(out, &http.Cookie{Name: name, Value: cookies[name]})
	}
	return out
}
