package research

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/patientiq/dashboard-api/internal/config"
	"github.com/patientiq/dashboard-api/internal/model"
	"github.com/patientiq/dashboard-api/internal/textutil"
	"github.com/patientiq/dashboard-api/pkg/circuitbreaker"
)

const (
	maxArticleChars = 5000
	pmcArticleURL   = "https://pmc.ncbi.nlm.nih.gov/articles/PMC%s/"
	pubmedURL       = "https://pubmed.ncbi.nlm.nih.gov/%s/"
	maxBodyBytes    = 8 << 20
)

var ErrTavilyNotConfigured = errors.New("tavily api key is not set")

// ExternalSearcher queries literature sources outside the local corpus.
type ExternalSearcher interface {
	Tavily(ctx context.Context, query string, maxResults int) ([]model.ExternalPaper, error)
	PubMed(ctx context.Context, query string, maxResults, daysBack int, includePMC bool) ([]model.ExternalPaper, error)
}

// ExternalClient talks to the Tavily search API and NCBI E-utilities.
type ExternalClient struct {
	http      *http.Client
	tavilyURL string
	tavilyKey string
	eutils    string
	ncbiKey   string
	pmcURL    string
	breaker   *circuitbreaker.CircuitBreaker
}

func NewExternalClient(cfg config.ResearchConfig) *ExternalClient {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ExternalClient{
		http:      &http.Client{Timeout: timeout},
		tavilyURL: cfg.TavilyURL,
		tavilyKey: cfg.TavilyAPIKey,
		eutils:    strings.TrimRight(cfg.EUtilsURL, "/"),
		ncbiKey:   cfg.NCBIAPIKey,
		pmcURL:    pmcArticleURL,
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "literature-search",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
		}),
	}
}

type tavilyRequest struct {
	Query             string `json:"query"`
	SearchDepth       string `json:"search_depth"`
	MaxResults        int    `json:"max_results"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyResponse struct {
	Results []struct {
		Title      string  `json:"title"`
		URL        string  `json:"url"`
		Content    string  `json:"content"`
		RawContent *string `json:"raw_content"`
		Score      float64 `json:"score"`
	} `json:"results"`
}

func (c *ExternalClient) Tavily(ctx context.Context, query string, maxResults int) ([]model.ExternalPaper, error) {
	if c.tavilyKey == "" {
		return nil, ErrTavilyNotConfigured
	}

	body, err := json.Marshal(tavilyRequest{
		Query:             query,
		SearchDepth:       "advanced",
		MaxResults:        maxResults,
		IncludeRawContent: true,
	})
	if err != nil {
		return nil, err
	}

	var out tavilyResponse
	err = c.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tavilyURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.tavilyKey)
		req.Header.Set("Content-Type", "application/json")
		raw, err := c.do(req)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, &out)
	})
	if err != nil {
		return nil, err
	}

	papers := make([]model.ExternalPaper, 0, len(out.Results))
	for _, r := range out.Results {
		text := r.Content
		if r.RawContent != nil && *r.RawContent != "" {
			text = *r.RawContent
		}
		title := r.Title
		if title == "" {
			title = "Untitled"
		}
		score := r.Score
		papers = append(papers, model.ExternalPaper{
			Title:           title,
			Author:          domainOf(r.URL),
			ArticleText:     truncateRunes(text, maxArticleChars),
			ArticleCitation: r.URL,
			PMCLink:         r.URL,
			SourceType:      "tavily",
			Score:           &score,
		})
	}
	log.Info().Int("results", len(papers)).Str("query", query).Msg("tavily search finished")
	return papers, nil
}

type esearchResponse struct {
	Result struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type esummaryItem struct {
	Title   string `json:"title"`
	Source  string `json:"source"`
	PubDate string `json:"pubdate"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
}

type elinkResult struct {
	LinkSetDbs []struct {
		LinkName string   `xml:"LinkName"`
		IDs      []string `xml:"Link>Id"`
	} `xml:"LinkSet>LinkSetDb"`
}

type efetchResult struct {
	AbstractTexts []string `xml:"PubmedArticle>MedlineCitation>Article>Abstract>AbstractText"`
}

// PubMed runs esearch for the newest matches, then enriches each PMID with
// its summary, PMC link, abstract and optionally the PMC full text. Only the
// esearch and esummary calls are fatal; enrichment failures leave fields empty.
func (c *ExternalClient) PubMed(ctx context.Context, query string, maxResults, daysBack int, includePMC bool) ([]model.ExternalPaper, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"term":    {query},
		"sort":    {"date"},
		"retmode": {"json"},
		"retmax":  {strconv.Itoa(maxResults)},
	}
	if daysBack > 0 {
		params.Set("datetype", "pdat")
		params.Set("reldate", strconv.Itoa(daysBack))
	}

	var search esearchResponse
	if err := c.getJSON(ctx, "esearch.fcgi", params, &search); err != nil {
		return nil, err
	}
	pmids := search.Result.IDList
	if len(pmids) == 0 {
		return []model.ExternalPaper{}, nil
	}

	var summary struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := c.getJSON(ctx, "esummary.fcgi", url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(pmids, ",")},
		"retmode": {"json"},
	}, &summary); err != nil {
		return nil, err
	}

	papers := make([]model.ExternalPaper, 0, len(pmids))
	for _, pmid := range pmids {
		var item esummaryItem
		if raw, ok := summary.Result[pmid]; ok {
			_ = json.Unmarshal(raw, &item)
		}

		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = "Untitled"
		}
		names := make([]string, 0, len(item.Authors))
		for _, a := range item.Authors {
			if a.Name != "" {
				names = append(names, a.Name)
			}
		}
		author := strings.TrimSpace(strings.Join(names, " "))
		if author == "" {
			author = "Unknown"
		}

		pmcLink := c.pmcLink(ctx, pmid)
		text := c.abstract(ctx, pmid)
		if pmcLink != "" && includePMC {
			if full := c.fullText(ctx, pmcLink); full != "" {
				text = full
			}
		}

		pubURL := fmt.Sprintf(pubmedURL, url.PathEscape(pmid))
		citation := joinNonEmpty(strings.TrimSpace(item.Source), strings.TrimSpace(item.PubDate), "PMID:"+pmid)
		link := pmcLink
		if link == "" {
			link = pubURL
		}

		papers = append(papers, model.ExternalPaper{
			Title:           title,
			Author:          author,
			ArticleText:     truncateRunes(strings.TrimSpace(text), maxArticleChars),
			ArticleCitation: citation,
			PMCLink:         link,
			PubMedURL:       pubURL,
			PMID:            pmid,
			SourceType:      "pubmed",
		})
	}
	return papers, nil
}

func (c *ExternalClient) pmcLink(ctx context.Context, pmid string) string {
	raw, err := c.get(ctx, "elink.fcgi", url.Values{
		"dbfrom":   {"pubmed"},
		"db":       {"pmc"},
		"linkname": {"pubmed_pmc"},
		"id":       {pmid},
		"retmode":  {"xml"},
	})
	if err != nil {
		log.Debug().Err(err).Str("pmid", pmid).Msg("elink failed")
		return ""
	}
	var res elinkResult
	if err := xml.Unmarshal(raw, &res); err != nil {
		return ""
	}
	for _, db := range res.LinkSetDbs {
		if strings.TrimSpace(db.LinkName) != "pubmed_pmc" || len(db.IDs) == 0 {
			continue
		}
		id := strings.TrimSpace(db.IDs[0])
		if _, err := strconv.ParseUint(id, 10, 64); err == nil {
			return fmt.Sprintf(c.pmcURL, id)
		}
	}
	return ""
}

func (c *ExternalClient) abstract(ctx context.Context, pmid string) string {
	raw, err := c.get(ctx, "efetch.fcgi", url.Values{
		"db":      {"pubmed"},
		"id":      {pmid},
		"retmode": {"xml"},
	})
	if err != nil {
		log.Debug().Err(err).Str("pmid", pmid).Msg("efetch failed")
		return ""
	}
	var res efetchResult
	if err := xml.Unmarshal(raw, &res); err != nil {
		return ""
	}
	parts := make([]string, 0, len(res.AbstractTexts))
	for _, p := range res.AbstractTexts {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n\n")
}

func (c *ExternalClient) fullText(ctx context.Context, link string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return ""
	}
	raw, err := c.do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", link).Msg("pmc fetch failed")
		return ""
	}
	return textutil.StripHTMLToText(string(raw))
}

func (c *ExternalClient) getJSON(ctx context.Context, endpoint string, params url.Values, v interface{}) error {
	return c.breaker.Execute(func() error {
		raw, err := c.get(ctx, endpoint, params)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, v)
	})
}

func (c *ExternalClient) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if c.ncbiKey != "" {
		params.Set("api_key", c.ncbiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.eutils+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *ExternalClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%s %s: status %d", req.Method, req.URL.Host, resp.StatusCode)
	}
	return body, nil
}

func domainOf(raw string) string {
	rest := raw
	if i := strings.Index(rest, "//"); i >= 0 {
		rest = rest[i+2:]
	}
	if i := strings.Index(rest, "/"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// truncateRunes cuts s to max characters without splitting a rune.
func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
