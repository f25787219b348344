package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/lukemcguire/sitepulse/result"
)

// linkJob is a reference selected for probing.
type linkJob struct {
	ref        Reference
	foundOn    string
	isExternal bool
}

// linkOutcome is what probing one reference produced. A job that was never
// issued because the run ended has notChecked and cause set and nothing else.
type linkOutcome struct {
	statusCode int
	broken     *result.BrokenLink
	redirect   *result.Redirect
	notChecked bool
	cause      error
}

// checkLink probes a single reference: HEAD first, GET when the server
// rejects HEAD. Redirects are reported, not followed, unless the crawler is
// configured to follow them.
func (c *Crawler) checkLink(ctx context.Context, job linkJob) (out linkOutcome) {
	if ctx.Err() != nil {
		return linkOutcome{notChecked: true, cause: context.Cause(ctx)}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			err = context.Cause(ctx)
		}
		return linkOutcome{notChecked: true, cause: err}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.send(reqCtx, http.MethodHead, job.ref.URL)
	if err == nil && (resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented) {
		_ = resp.Body.Close()
		resp, err = c.send(reqCtx, http.MethodGet, job.ref.URL)
	}
	c.limiter.ObserveRTT(time.Since(start))

	if err != nil {
		return linkOutcome{broken: &result.BrokenLink{
			URL:           job.ref.URL,
			FoundOn:       job.foundOn,
			Href:          job.ref.Href,
			Error:         err.Error(),
			ErrorCategory: result.ClassifyError(err, 0),
			IsExternal:    job.isExternal,
		}}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
	}()

	out.statusCode = resp.StatusCode
	finalURL := resp.Request.URL.String()
	redirected := finalURL != job.ref.URL && resp.Request.Response != nil

	switch {
	case isRedirect(resp.StatusCode):
		out.redirect = &result.Redirect{
			URL:        job.ref.URL,
			FoundOn:    job.foundOn,
			StatusCode: resp.StatusCode,
			Target:     location(resp),
		}
	case redirected:
		out.redirect = &result.Redirect{
			URL:        job.ref.URL,
			FoundOn:    job.foundOn,
			StatusCode: resp.Request.Response.StatusCode,
			Target:     finalURL,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		out.broken = &result.BrokenLink{
			URL:           job.ref.URL,
			FoundOn:       job.foundOn,
			Href:          job.ref.Href,
			StatusCode:    resp.StatusCode,
			Error:         result.StatusText(resp.StatusCode),
			ErrorCategory: result.ClassifyError(nil, resp.StatusCode),
			IsExternal:    job.isExternal,
		}
		if redirected {
			out.broken.RedirectTarget = finalURL
		}
	}
	return out
}

// notCheckedLink records a reference the run ended before probing. A run
// that hit its deadline reports the link as timed out.
func notCheckedLink(ctx context.Context, job linkJob, cause error) result.BrokenLink {
	category := result.CategoryUnknown
	if _, ok := ctx.Deadline(); ok && !errors.Is(ctx.Err(), context.Canceled) {
		category = result.CategoryTimeout
	}
	return result.BrokenLink{
		URL:           job.ref.URL,
		FoundOn:       job.foundOn,
		Href:          job.ref.Href,
		Error:         fmt.Sprintf("not checked: %v", cause),
		ErrorCategory: category,
		IsExternal:    job.isExternal,
	}
}

func (c *Crawler) send(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.linkClient.Do(req)
	if err != nil {
		c.cfg.Logger.Debug("link request failed",
			zap.String("method", method),
			zap.String("url", rawURL),
			zap.Error(err),
		)
		return nil, err
	}
	return resp, nil
}

func isRedirect(code int) bool {
	return code >= 300 && code < 400
}

// location resolves the Location header against the request URL.
func location(resp *http.Response) string {
	loc := resp.Header.Get("Location")
	if loc == "" {
		return ""
	}
	target, err := url.Parse(loc)
	if err != nil {
		return loc
	}
	return resp.Request.URL.ResolveReference(target).String()
}
