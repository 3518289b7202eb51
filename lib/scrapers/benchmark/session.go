package benchmark

import (
	"context"
	"fmt"
	"strings"
	"time"

	"courtharvest-backend/lib/harvest"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const verificationTokenPrefix = "__RequestVerificationToken"

// Session is one authenticated conversation with the portal: a cookie
// jar holding the ASP.NET session and anti-forgery cookies, plus the
// matching form token that must be replayed on every POST.
type Session struct {
	FormToken string

	http   *resty.Client
	issued time.Time
	// primed records which search the portal last executed for this
	// session, since pagination reads server-side search state.
	primed string
}

func (s *Session) IssuedAt() time.Time {
	return s.issued
}

// Handshake starts a fresh portal session: it fetches the search page
// and extracts the anti-forgery token pair, implementing the handshake
// half of harvest.Source.
func (c *Client) Handshake(ctx context.Context) (harvest.Session, error) {
	ctx, span := tracer.Start(ctx, "benchmark.Handshake")
	defer span.End()

	http, err := c.newHttpClient()
	if err != nil {
		return nil, err
	}

	res, err := http.R().
		SetContext(ctx).
		Get(searchPagePath)
	if err != nil {
		return nil, fmt.Errorf("get search page: %w", err)
	}
	if res.StatusCode() >= 400 {
		return nil, fmt.Errorf(
			"%w: search page returned status %d",
			harvest.ErrAuthRejected, res.StatusCode(),
		)
	}

	cookieFound := false
	for _, cookie := range res.Cookies() {
		if strings.HasPrefix(cookie.Name, verificationTokenPrefix) {
			cookieFound = true
			break
		}
	}
	if !cookieFound {
		return nil, fmt.Errorf(
			"%w: no %s cookie on search page",
			harvest.ErrAuthRejected, verificationTokenPrefix,
		)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
	if err != nil {
		return nil, err
	}
	formToken, ok := doc.Find(`input[name="__RequestVerificationToken"]`).Attr("value")
	if !ok || formToken == "" {
		return nil, fmt.Errorf(
			"%w: no __RequestVerificationToken input on search page",
			harvest.ErrAuthRejected,
		)
	}

	return &Session{
		FormToken: formToken,
		http:      http,
		issued:    time.Now(),
	}, nil
}
