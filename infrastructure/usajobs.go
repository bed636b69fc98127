package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"govres/domain"
)

// SearchParams are the USAJobs search filters the Ally exposes.
type SearchParams struct {
	Keyword        string `form:"keyword"`
	Location       string `form:"location"`
	PositionTitle  string `form:"title"`
	Organization   string `form:"organization"`
	ControlNumber  string `form:"-"`
	Page           int    `form:"page"`
	ResultsPerPage int    `form:"results_per_page"`
}

type SearchResult struct {
	Total int          `json:"total"`
	Jobs  []domain.Job `json:"jobs"`
}

// JobSearcher finds federal postings.
type JobSearcher interface {
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
	GetByControlNumber(ctx context.Context, controlNumber string) (domain.Job, error)
}

type USAJobsClient struct {
	baseURL   string
	apiKey    string
	userAgent string
	http      *http.Client
	attempts  int
	backoff   time.Duration
}

func NewUSAJobsClient(baseURL, apiKey, userAgent string) *USAJobsClient {
	return &USAJobsClient{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		apiKey:    apiKey,
		userAgent: userAgent,
		http:      &http.Client{Timeout: 30 * time.Second},
		attempts:  4,
		backoff:   500 * time.Millisecond,
	}
}

func (c *USAJobsClient) Search(ctx context.Context, params SearchParams) (SearchResult, error) {
	q := url.Values{}
	setParam(q, "Keyword", params.Keyword)
	setParam(q, "LocationName", params.Location)
	setParam(q, "PositionTitle", params.PositionTitle)
	setParam(q, "Organization", params.Organization)
	setParam(q, "ControlNumber", params.ControlNumber)
	if params.Page > 0 {
		q.Set("Page", strconv.Itoa(params.Page))
	}
	perPage := params.ResultsPerPage
	if perPage <= 0 || perPage > 500 {
		perPage = 25
	}
	q.Set("ResultsPerPage", strconv.Itoa(perPage))

	body, err := Retry(ctx, c.attempts, c.backoff, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, "/api/search?"+q.Encode())
	})
	if err != nil {
		return SearchResult{}, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}

	var resp usajobsSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return SearchResult{}, fmt.Errorf("%w: failed to parse USAJobs response: %v", domain.ErrUpstream, err)
	}

	result := SearchResult{Total: resp.SearchResult.SearchResultCountAll}
	for _, item := range resp.SearchResult.SearchResultItems {
		result.Jobs = append(result.Jobs, item.Descriptor.toJob(item.MatchedObjectID))
	}
	return result, nil
}

func (c *USAJobsClient) GetByControlNumber(ctx context.Context, controlNumber string) (domain.Job, error) {
	res, err := c.Search(ctx, SearchParams{ControlNumber: controlNumber, ResultsPerPage: 1})
	if err != nil {
		return domain.Job{}, err
	}
	if len(res.Jobs) == 0 {
		return domain.Job{}, fmt.Errorf("%w: usajobs posting %s", domain.ErrNotFound, controlNumber)
	}
	return res.Jobs[0], nil
}

func (c *USAJobsClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if u, err := url.Parse(c.baseURL); err == nil {
		req.Host = u.Host
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Authorization-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("USAJobs request failed with status %d: %.200s", resp.StatusCode, string(body))
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, Permanent(err)
		}
		return nil, err
	}
	return body, nil
}

func setParam(q url.Values, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		q.Set(key, value)
	}
}

type usajobsSearchResponse struct {
	SearchResult struct {
		SearchResultCountAll int `json:"SearchResultCountAll"`
		SearchResultItems    []struct {
			MatchedObjectID string            `json:"MatchedObjectId"`
			Descriptor      usajobsDescriptor `json:"MatchedObjectDescriptor"`
		} `json:"SearchResultItems"`
	} `json:"SearchResult"`
}

type usajobsDescriptor struct {
	PositionID              string `json:"PositionID"`
	PositionTitle           string `json:"PositionTitle"`
	PositionURI             string `json:"PositionURI"`
	PositionLocationDisplay string `json:"PositionLocationDisplay"`
	OrganizationName        string `json:"OrganizationName"`
	DepartmentName          string `json:"DepartmentName"`
	QualificationSummary    string `json:"QualificationSummary"`
	ApplicationCloseDate    string `json:"ApplicationCloseDate"`
	PositionRemuneration    []struct {
		MinimumRange string `json:"MinimumRange"`
		MaximumRange string `json:"MaximumRange"`
	} `json:"PositionRemuneration"`
	UserArea struct {
		Details struct {
			MajorDuties  []string `json:"MajorDuties"`
			Evaluations  string   `json:"Evaluations"`
			Requirements string   `json:"Requirements"`
			LowGrade     string   `json:"LowGrade"`
			HighGrade    string   `json:"HighGrade"`
		} `json:"Details"`
	} `json:"UserArea"`
}

// toJob keys the posting by the control number USAJobs reports as
// MatchedObjectId, the value its ControlNumber filter accepts.
func (d usajobsDescriptor) toJob(controlNumber string) domain.Job {
	job := domain.Job{
		ControlNumber:         controlNumber,
		AnnouncementNumber:    d.PositionID,
		Title:                 d.PositionTitle,
		Department:            d.DepartmentName,
		Agency:                d.OrganizationName,
		Location:              d.PositionLocationDisplay,
		URL:                   d.PositionURI,
		LowGrade:              d.UserArea.Details.LowGrade,
		HighGrade:             d.UserArea.Details.HighGrade,
		Duties:                d.UserArea.Details.MajorDuties,
		Evaluations:           d.UserArea.Details.Evaluations,
		QualificationsSummary: d.QualificationSummary,
		Requirements:          d.UserArea.Details.Requirements,
	}
	if len(d.PositionRemuneration) > 0 {
		job.SalaryMin, _ = strconv.ParseFloat(d.PositionRemuneration[0].MinimumRange, 64)
		job.SalaryMax, _ = strconv.ParseFloat(d.PositionRemuneration[0].MaximumRange, 64)
	}
	if t, err := time.Parse("2006-01-02T15:04:05.0000", d.ApplicationCloseDate); err == nil {
		job.CloseDate = &t
	} else if t, err := time.Parse(time.RFC3339, d.ApplicationCloseDate); err == nil {
		job.CloseDate = &t
	}
	return job
}
