package benchmark

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"courtharvest-backend/lib/harvest"
	"courtharvest-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	detailsSummaryPath = "/BenchmarkWeb/CourtCase.aspx/DetailsSummary/"
	caseDocketsPath    = "/BenchmarkWeb/CourtCase.aspx/CaseDockets/"
)

// The case page embeds its AJAX credentials in an inline script.
var (
	cidPattern        = regexp.MustCompile(`var cid = (\d+)`)
	caseDigestPattern = regexp.MustCompile(`var caseDigest = '([^']+)'`)
)

type Party struct {
	Type     string
	Name     string
	Attorney string
}

type DocketEntry struct {
	Id     string
	Fields map[string]string
}

type CaseDetails struct {
	CaseNumber string
	CaseId     string
	// Digest is the per-case token the detail AJAX endpoints require.
	Digest  string
	Fields  map[string]string
	Parties []Party
	Charges []map[string]string
	Dockets []DocketEntry
}

// GetCaseDetails loads a case page and its summary and docket AJAX
// fragments through an established session. caseUrl may be relative to
// the portal root.
func (c *Client) GetCaseDetails(ctx context.Context, session *Session, caseUrl string) (CaseDetails, error) {
	ctx, span := tracer.Start(
		ctx, "benchmark.GetCaseDetails",
		trace.WithAttributes(attribute.String("url", caseUrl)),
	)
	defer span.End()

	res, err := session.http.R().
		SetContext(ctx).
		Get(c.absolute(caseUrl))
	if err != nil {
		return CaseDetails{}, fmt.Errorf("get case page: %w", err)
	}
	if res.StatusCode() >= 400 {
		return CaseDetails{}, fmt.Errorf("case page returned status %d", res.StatusCode())
	}
	body := res.String()

	cidMatch := cidPattern.FindStringSubmatch(body)
	digestMatch := caseDigestPattern.FindStringSubmatch(body)
	if cidMatch == nil || digestMatch == nil {
		return CaseDetails{}, fmt.Errorf(
			"%w: case page is missing its cid/caseDigest script",
			harvest.ErrProtocolViolation,
		)
	}

	details := CaseDetails{
		CaseId: cidMatch[1],
		Digest: digestMatch[1],
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return CaseDetails{}, err
	}
	details.CaseNumber = htmlutil.CleanCell(doc.Find("h2").First().Text())

	details.Fields, details.Parties, details.Charges, err =
		c.getCaseSummary(ctx, session, details.CaseId, details.Digest)
	if err != nil {
		return CaseDetails{}, err
	}
	details.Dockets, err = c.getCaseDockets(ctx, session, details.CaseId, details.Digest)
	if err != nil {
		return CaseDetails{}, err
	}
	return details, nil
}

func (c *Client) getFragment(ctx context.Context, session *Session, path, caseId, digest string) (*goquery.Document, error) {
	res, err := session.http.R().
		SetContext(ctx).
		SetHeader("x-requested-with", "XMLHttpRequest").
		SetQueryParam("digest", digest).
		Get(path + caseId)
	if err != nil {
		return nil, err
	}
	if res.StatusCode() >= 400 {
		return nil, fmt.Errorf("%s returned status %d", path, res.StatusCode())
	}
	return goquery.NewDocumentFromReader(strings.NewReader(res.String()))
}

func (c *Client) getCaseSummary(
	ctx context.Context,
	session *Session,
	caseId, digest string,
) (map[string]string, []Party, []map[string]string, error) {
	doc, err := c.getFragment(ctx, session, detailsSummaryPath, caseId, digest)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("get case summary: %w", err)
	}

	fields := map[string]string{}
	var key string
	doc.Find("dl.dl-horizontal").Children().Each(func(_ int, node *goquery.Selection) {
		switch goquery.NodeName(node) {
		case "dt":
			key = strings.TrimSuffix(htmlutil.CleanCell(node.Text()), ":")
		case "dd":
			if key == "" {
				return
			}
			// the portal pads blank values with &nbsp;
			if value := node.Text(); !htmlutil.IsEmptyCell(value) {
				fields[key] = htmlutil.CleanCell(value)
			}
			key = ""
		}
	})

	var parties []Party
	doc.Find("table#gridParties tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td").Map(func(_ int, cell *goquery.Selection) string {
			return htmlutil.CleanCell(cell.Text())
		})
		if len(cells) < 2 {
			return
		}
		party := Party{Type: cells[0], Name: cells[1]}
		if len(cells) >= 3 {
			party.Attorney = cells[2]
		}
		parties = append(parties, party)
	})

	charges := gridRows(doc.Find("table#gridCharges"))
	return fields, parties, charges, nil
}

func (c *Client) getCaseDockets(ctx context.Context, session *Session, caseId, digest string) ([]DocketEntry, error) {
	doc, err := c.getFragment(ctx, session, caseDocketsPath, caseId, digest)
	if err != nil {
		return nil, fmt.Errorf("get case dockets: %w", err)
	}

	headers := gridHeaders(doc.Find("table#gridDockets"))
	var dockets []DocketEntry
	doc.Find("table#gridDockets tbody tr").Each(func(_ int, row *goquery.Selection) {
		entry := DocketEntry{Fields: map[string]string{}}
		entry.Id, _ = row.Find("img[rel]").First().Attr("rel")
		row.Find("td").Each(func(i int, cell *goquery.Selection) {
			if i >= len(headers) || headers[i] == "" {
				return
			}
			entry.Fields[headers[i]] = htmlutil.CleanCell(cell.Text())
		})
		dockets = append(dockets, entry)
	})
	return dockets, nil
}

func gridHeaders(table *goquery.Selection) []string {
	return table.Find("thead th").Map(func(_ int, cell *goquery.Selection) string {
		return htmlutil.CleanCell(cell.Text())
	})
}

func gridRows(table *goquery.Selection) []map[string]string {
	headers := gridHeaders(table)
	var rows []map[string]string
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		fields := map[string]string{}
		row.Find("td").Each(func(i int, cell *goquery.Selection) {
			if i >= len(headers) || headers[i] == "" {
				return
			}
			fields[headers[i]] = htmlutil.CleanCell(cell.Text())
		})
		if len(fields) > 0 {
			rows = append(rows, fields)
		}
	})
	return rows
}
