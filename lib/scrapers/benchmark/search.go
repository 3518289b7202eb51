package benchmark

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"courtharvest-backend/lib/harvest"
	"courtharvest-backend/lib/timezone"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// defaultSearchForm mirrors the portal's search form defaults. Values
// can be overridden per query through Partition.Filters.
var defaultSearchForm = map[string]string{
	"type":       "CaseNumber",
	"search":     "",
	"courtTypes": "22,2,20,21,7,10",
	"partyTypes": "1,2,3,4,5",
	"divisions":  "1",
	"status":     "",
	"sortBy":     "1",
	"sortDesc":   "false",
	"searchtype": "all",
}

// paginatedResponse is the DataTables JSON envelope the results
// endpoint speaks.
type paginatedResponse struct {
	Draw            int        `json:"draw"`
	RecordsTotal    int        `json:"recordsTotal"`
	RecordsFiltered int        `json:"recordsFiltered"`
	Data            [][]string `json:"data"`
}

// search executes the search form, establishing server-side search
// state for the session. Pagination reads that state, so this must run
// once per session per partition before any page fetch.
func (c *Client) search(ctx context.Context, session *Session, partition harvest.Partition) error {
	ctx, span := tracer.Start(
		ctx, "benchmark.search",
		trace.WithAttributes(attribute.String("partition", partition.Label())),
	)
	defer span.End()

	form := map[string]string{}
	for key, value := range defaultSearchForm {
		form[key] = value
	}
	for key, value := range partition.Filters {
		form[key] = value
	}
	form["openedFrom"] = partition.Range.From.Format("2006-01-02")
	form["openedTo"] = partition.Range.To.Format("2006-01-02")
	for key, value := range partition.Fixed {
		form[key] = value
	}
	form["__RequestVerificationToken"] = session.FormToken

	res, err := session.http.R().
		SetContext(ctx).
		SetHeader("referer", c.absolute(searchPagePath)).
		SetFormData(form).
		Post(caseSearchPath)
	if err != nil {
		return fmt.Errorf("post search form: %w", err)
	}
	switch {
	case res.StatusCode() == 401 || res.StatusCode() == 403:
		return fmt.Errorf(
			"%w: search form returned status %d",
			harvest.ErrAuthRejected, res.StatusCode(),
		)
	case res.StatusCode() >= 400:
		return fmt.Errorf("search form returned status %d", res.StatusCode())
	}

	session.primed = partition.Label()
	return nil
}

// fetchResults pulls one page of the current session's search results
// through the DataTables AJAX endpoint.
func (c *Client) fetchResults(ctx context.Context, session *Session, offset, limit int) (paginatedResponse, error) {
	ctx, span := tracer.Start(
		ctx, "benchmark.fetchResults",
		trace.WithAttributes(
			attribute.Int("offset", offset),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	form := map[string]string{
		"draw":             strconv.Itoa(offset/max(limit, 1) + 1),
		"start":            strconv.Itoa(offset),
		"length":           strconv.Itoa(limit),
		"search[value]":    "",
		"search[regex]":    "false",
		"order[0][column]": "2",
		"order[0][dir]":    "asc",
		"_":                timezone.Now().Format("3:04:05 PM"),
	}
	for i := range c.opts.Columns {
		prefix := "columns[" + strconv.Itoa(i) + "]"
		form[prefix+"[data]"] = strconv.Itoa(i)
		form[prefix+"[name]"] = ""
		form[prefix+"[searchable]"] = "true"
		form[prefix+"[orderable]"] = strconv.FormatBool(i != 0)
		form[prefix+"[search][value]"] = ""
		form[prefix+"[search][regex]"] = "false"
	}

	res, err := session.http.R().
		SetContext(ctx).
		SetHeader("x-requested-with", "XMLHttpRequest").
		SetHeader("accept", "application/json, text/javascript, */*; q=0.01").
		SetHeader("referer", c.absolute(searchPagePath)).
		SetFormData(form).
		Post(resultsDataPath)
	if err != nil {
		return paginatedResponse{}, fmt.Errorf("post results query: %w", err)
	}
	switch {
	case res.StatusCode() == 401 || res.StatusCode() == 403:
		return paginatedResponse{}, fmt.Errorf(
			"%w: results query returned status %d",
			harvest.ErrAuthRejected, res.StatusCode(),
		)
	case res.StatusCode() >= 400:
		return paginatedResponse{}, fmt.Errorf("results query returned status %d", res.StatusCode())
	}

	var page paginatedResponse
	err = json.Unmarshal(res.Body(), &page)
	if err != nil {
		// an expired session gets the login page instead of JSON
		return paginatedResponse{}, fmt.Errorf(
			"%w: results query returned non-JSON body: %v",
			harvest.ErrAuthRejected, err,
		)
	}
	return page, nil
}

// FetchPage implements harvest.Source. The portal keeps search state
// server-side, so a session that has not yet run this partition's
// search (fresh after a handshake, or last used for a different
// partition) is primed first.
func (c *Client) FetchPage(
	ctx context.Context,
	partition harvest.Partition,
	session harvest.Session,
	offset, limit int,
) (harvest.ResultPage, error) {
	portalSession, ok := session.(*Session)
	if !ok {
		return harvest.ResultPage{}, fmt.Errorf(
			"%w: session is %T, not a benchmark session",
			harvest.ErrProtocolViolation, session,
		)
	}

	if portalSession.primed != partition.Label() {
		err := c.search(ctx, portalSession, partition)
		if err != nil {
			return harvest.ResultPage{}, err
		}
	}

	page, err := c.fetchResults(ctx, portalSession, offset, limit)
	if err != nil {
		return harvest.ResultPage{}, err
	}

	records := make([]harvest.RawRecord, 0, len(page.Data))
	for _, row := range page.Data {
		record := harvest.RawRecord{}
		for i, cell := range row {
			if i >= len(c.opts.Columns) || c.opts.Columns[i] == "" {
				continue
			}
			record[c.opts.Columns[i]] = cell
		}
		records = append(records, record)
	}

	truncated := c.opts.CapThreshold > 0 && page.RecordsTotal >= c.opts.CapThreshold
	return harvest.ResultPage{
		Records:   records,
		Offset:    offset,
		Total:     page.RecordsTotal,
		Truncated: truncated,
	}, nil
}
