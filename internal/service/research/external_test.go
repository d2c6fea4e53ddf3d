package research

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patientiq/dashboard-api/internal/config"
)

func TestTavily_MapsResults(t *testing.T) {
	var got tavilyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tv-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"results":[
			{"title":"","url":"https://www.thoracic.org/guide/asthma","content":"short","raw_content":"long body","score":0.8},
			{"title":"COPD update","url":"https://example.org/copd","content":"summary","raw_content":null,"score":0.5}
		]}`))
	}))
	defer srv.Close()

	c := NewExternalClient(config.ResearchConfig{TavilyURL: srv.URL, TavilyAPIKey: "tv-key"})
	papers, err := c.Tavily(context.Background(), "asthma biologics", 2)
	require.NoError(t, err)

	assert.Equal(t, "advanced", got.SearchDepth)
	assert.True(t, got.IncludeRawContent)
	assert.Equal(t, 2, got.MaxResults)

	require.Len(t, papers, 2)
	assert.Equal(t, "Untitled", papers[0].Title)
	assert.Equal(t, "www.thoracic.org", papers[0].Author)
	assert.Equal(t, "long body", papers[0].ArticleText)
	assert.Equal(t, "https://www.thoracic.org/guide/asthma", papers[0].PMCLink)
	assert.Equal(t, "tavily", papers[0].SourceType)
	assert.Equal(t, "summary", papers[1].ArticleText)
	require.NotNil(t, papers[1].Score)
	assert.Equal(t, 0.5, *papers[1].Score)
}

func TestTavily_NotConfigured(t *testing.T) {
	c := NewExternalClient(config.ResearchConfig{})
	_, err := c.Tavily(context.Background(), "q", 3)
	assert.ErrorIs(t, err, ErrTavilyNotConfigured)
}

func TestPubMed_FullPipeline(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "pubmed", q.Get("db"))
		assert.Equal(t, "date", q.Get("sort"))
		assert.Equal(t, "pdat", q.Get("datetype"))
		assert.Equal(t, "30", q.Get("reldate"))
		_, _ = w.Write([]byte(`{"esearchresult":{"idlist":["111","222"]}}`))
	})
	mux.HandleFunc("/esummary.fcgi", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "111,222", r.URL.Query().Get("id"))
		_, _ = w.Write([]byte(`{"result":{"uids":["111","222"],
			"111":{"title":"Asthma trial","source":"Lancet","pubdate":"2024 Jan","authors":[{"name":"Smith J"},{"name":"Lee K"}]},
			"222":{"title":"","source":"","pubdate":"","authors":[]}}}`))
	})
	mux.HandleFunc("/elink.fcgi", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "111" {
			_, _ = w.Write([]byte(`<eLinkResult><LinkSet></LinkSet></eLinkResult>`))
			return
		}
		_, _ = w.Write([]byte(`<eLinkResult><LinkSet><LinkSetDb><DbTo>pmc</DbTo><LinkName>pubmed_pmc</LinkName><Link><Id>999</Id></Link></LinkSetDb></LinkSet></eLinkResult>`))
	})
	mux.HandleFunc("/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<PubmedArticleSet><PubmedArticle><MedlineCitation><Article><Abstract>
			<AbstractText>Background text.</AbstractText><AbstractText>Results text.</AbstractText>
		</Abstract></Article></MedlineCitation></PubmedArticle></PubmedArticleSet>`))
	})
	mux.HandleFunc("/pmc/PMC999/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><script>x()</script><p>Full   text body.</p></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewExternalClient(config.ResearchConfig{EUtilsURL: srv.URL})
	c.pmcURL = srv.URL + "/pmc/PMC%s/"

	papers, err := c.PubMed(context.Background(), "asthma", 2, 30, true)
	require.NoError(t, err)
	require.Len(t, papers, 2)

	first := papers[0]
	assert.Equal(t, "Asthma trial", first.Title)
	assert.Equal(t, "Smith J Lee K", first.Author)
	assert.Equal(t, "Lancet 2024 Jan PMID:111", first.ArticleCitation)
	assert.Equal(t, srv.URL+"/pmc/PMC999/", first.PMCLink)
	assert.Equal(t, "Full text body.", first.ArticleText)
	assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/111/", first.PubMedURL)
	assert.Equal(t, "pubmed", first.SourceType)

	second := papers[1]
	assert.Equal(t, "Untitled", second.Title)
	assert.Equal(t, "Unknown", second.Author)
	assert.Equal(t, "PMID:222", second.ArticleCitation)
	assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/222/", second.PMCLink)
	assert.Equal(t, "Background text.\n\nResults text.", second.ArticleText)
}

func TestPubMed_NoHits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/esearch.fcgi"))
		assert.Empty(t, r.URL.Query().Get("reldate"))
		_, _ = w.Write([]byte(`{"esearchresult":{"idlist":[]}}`))
	}))
	defer srv.Close()

	c := NewExternalClient(config.ResearchConfig{EUtilsURL: srv.URL})
	papers, err := c.PubMed(context.Background(), "rare", 3, 0, true)
	require.NoError(t, err)
	assert.Empty(t, papers)
}

func TestPubMed_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewExternalClient(config.ResearchConfig{EUtilsURL: srv.URL})
	_, err := c.PubMed(context.Background(), "asthma", 3, 0, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
