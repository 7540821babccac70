package solr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/gzip"
)

// Config configures an HTTPClient.
type Config struct {
	// REQUIRED: comma-separated list of store base URLs,
	// for example "http://solr1:8983/solr,http://solr2:8983/solr".
	Locator string

	// REQUIRED: collection the client is bound to.
	Collection string

	// OPTIONAL: credentials applied to every request.
	Auth Authenticator

	// OPTIONAL: replace the locator URLs with the cluster's live nodes
	// reported by the connect handshake.
	UseLiveNodes bool

	// OPTIONAL: timeout of a single HTTP request. Zero means no timeout.
	Timeout time.Duration

	// OPTIONAL: number of transport-level retries. Zero disables retrying.
	RetryMax int

	// OPTIONAL: underlying HTTP client.
	HTTPClient *http.Client

	// OPTIONAL: logger; defaults to slog.Default().
	Logger *slog.Logger
}

// HTTPClient is a Client speaking the store's JSON HTTP API.
// Requests are spread round-robin over the known nodes.
type HTTPClient struct {
	collection string
	nodes      []string
	next       atomic.Uint64
	http       *retryablehttp.Client
	auth       Authenticator
	logger     *slog.Logger
}

var _ Client = (*HTTPClient)(nil)

// ParseLocator splits a comma-separated locator into normalized base URLs.
func ParseLocator(locator string) ([]string, error) {
	var nodes []string
	for _, part := range strings.Split(locator, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		u, err := url.Parse(part)
		if err != nil {
			return nil, fmt.Errorf("invalid locator %q: %w", part, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("invalid locator %q: scheme must be http or https", part)
		}
		if u.Host == "" {
			return nil, fmt.Errorf("invalid locator %q: missing host", part)
		}
		nodes = append(nodes, strings.TrimRight(u.String(), "/"))
	}
	if len(nodes) == 0 {
		return nil, errors.New("locator is empty")
	}
	return nodes, nil
}

// Dial creates a client bound to cfg.Collection and performs the connect
// handshake: the cluster must answer and know the collection.
func Dial(ctx context.Context, cfg Config) (*HTTPClient, error) {
	if cfg.Collection == "" {
		return nil, Errorf(KindConfiguration, "dial", "", "collection is required")
	}
	nodes, err := ParseLocator(cfg.Locator)
	if err != nil {
		return nil, NewError(KindConfiguration, "dial", cfg.Collection, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	auth := cfg.Auth
	if auth == nil {
		auth = NoAuth()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.Logger = logger
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if cfg.HTTPClient != nil {
		// The timeout below must not leak into the caller's client.
		hc := *cfg.HTTPClient
		rc.HTTPClient = &hc
	}
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}

	c := &HTTPClient{
		collection: cfg.Collection,
		nodes:      nodes,
		http:       rc,
		auth:       auth,
		logger:     logger,
	}

	live, err := c.connect(ctx)
	if err != nil {
		return nil, NewError(KindConnection, "connect", cfg.Collection, err)
	}
	if cfg.UseLiveNodes && len(live) > 0 {
		c.nodes = live
	}

	logger.Info("Connected to collection",
		"collection", cfg.Collection,
		"nodes", len(c.nodes),
	)
	return c, nil
}

// Collection implements Client.
func (c *HTTPClient) Collection() string { return c.collection }

// Nodes returns the base URLs requests are sent to.
func (c *HTTPClient) Nodes() []string {
	out := make([]string, len(c.nodes))
	copy(out, c.nodes)
	return out
}

type clusterStatusResponse struct {
	Cluster struct {
		Collections map[string]json.RawMessage `json:"collections"`
		LiveNodes   []string                   `json:"live_nodes"`
	} `json:"cluster"`
}

// connect asks each node in turn for the cluster status of the collection.
func (c *HTTPClient) connect(ctx context.Context) ([]string, error) {
	params := url.Values{}
	params.Set("action", "CLUSTERSTATUS")
	params.Set("collection", c.collection)
	params.Set("wt", "json")

	var lastErr error
	for _, node := range c.nodes {
		var resp clusterStatusResponse
		err := c.doNode(ctx, node, http.MethodGet, "admin/collections", params, nil, &resp)
		if err != nil {
			lastErr = err
			continue
		}
		if _, ok := resp.Cluster.Collections[c.collection]; !ok {
			return nil, fmt.Errorf("collection %q not found", c.collection)
		}
		return liveNodeURLs(node, resp.Cluster.LiveNodes), nil
	}
	return nil, lastErr
}

// liveNodeURLs converts node names ("host:port_context") into base URLs
// using the scheme of the node that answered.
func liveNodeURLs(base string, names []string) []string {
	scheme := "http"
	if u, err := url.Parse(base); err == nil && u.Scheme != "" {
		scheme = u.Scheme
	}
	urls := make([]string, 0, len(names))
	for _, name := range names {
		hostPort, root, _ := strings.Cut(name, "_")
		if hostPort == "" {
			continue
		}
		u := scheme + "://" + hostPort
		if root != "" {
			u += "/" + strings.ReplaceAll(root, "_", "/")
		}
		urls = append(urls, u)
	}
	return urls
}

// Add implements Client.
func (c *HTTPClient) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	body, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("encode documents: %w", err)
	}
	return c.update(ctx, body)
}

// Request implements Client.
func (c *HTTPClient) Request(ctx context.Context, req *UpdateRequest) error {
	if req.Len() == 0 {
		return nil
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode update request: %w", err)
	}
	return c.update(ctx, body)
}

// DeleteByQuery implements Client.
func (c *HTTPClient) DeleteByQuery(ctx context.Context, query string) error {
	body, err := json.Marshal(map[string]any{
		"delete": map[string]string{"query": query},
	})
	if err != nil {
		return err
	}
	return c.update(ctx, body)
}

// Commit implements Client.
func (c *HTTPClient) Commit(ctx context.Context) error {
	return c.update(ctx, []byte(`{"commit":{}}`))
}

// Rollback implements Client.
func (c *HTTPClient) Rollback(ctx context.Context) error {
	return c.update(ctx, []byte(`{"rollback":{}}`))
}

func (c *HTTPClient) update(ctx context.Context, body []byte) error {
	params := url.Values{}
	params.Set("wt", "json")
	return c.do(ctx, http.MethodPost, c.collection+"/update", params, body, nil)
}

type selectResponse struct {
	Response struct {
		NumFound int64      `json:"numFound"`
		Start    int64      `json:"start"`
		Docs     []Document `json:"docs"`
	} `json:"response"`
	FacetCounts struct {
		FacetFields map[string][]any `json:"facet_fields"`
	} `json:"facet_counts"`
}

// Query implements Client.
func (c *HTTPClient) Query(ctx context.Context, q *Query) (*QueryResponse, error) {
	var resp selectResponse
	if err := c.do(ctx, http.MethodGet, c.collection+"/select", queryParams(q), nil, &resp); err != nil {
		return nil, err
	}

	out := &QueryResponse{
		NumFound: resp.Response.NumFound,
		Start:    resp.Response.Start,
		Docs:     resp.Response.Docs,
	}
	if q.FacetField != "" {
		buckets, err := facetBuckets(resp.FacetCounts.FacetFields[q.FacetField])
		if err != nil {
			return nil, fmt.Errorf("facet %s: %w", q.FacetField, err)
		}
		out.Facets = buckets
	}
	return out, nil
}

func queryParams(q *Query) url.Values {
	params := url.Values{}
	params.Set("wt", "json")
	query := q.Q
	if query == "" {
		query = MatchAll
	}
	params.Set("q", query)
	for _, fq := range q.FilterQueries {
		if fq != "" {
			params.Add("fq", fq)
		}
	}
	params.Set("start", strconv.Itoa(q.Start))
	params.Set("rows", strconv.Itoa(q.Rows))
	if len(q.Fields) > 0 {
		params.Set("fl", strings.Join(q.Fields, ","))
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}
	if q.FacetField != "" {
		params.Set("facet", "true")
		params.Set("facet.field", q.FacetField)
		params.Set("facet.limit", "-1")
		params.Set("facet.mincount", "1")
	}
	return params
}

// facetBuckets decodes the flat [value, count, value, count, ...] list.
func facetBuckets(flat []any) ([]FacetBucket, error) {
	if len(flat)%2 != 0 {
		return nil, errors.New("odd number of facet entries")
	}
	buckets := make([]FacetBucket, 0, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		var count int64
		switch v := flat[i+1].(type) {
		case json.Number:
			n, err := v.Int64()
			if err != nil {
				return nil, err
			}
			count = n
		case float64:
			count = int64(v)
		default:
			return nil, fmt.Errorf("unexpected facet count %T", flat[i+1])
		}
		buckets = append(buckets, FacetBucket{Value: fmt.Sprint(flat[i]), Count: count})
	}
	return buckets, nil
}

func (c *HTTPClient) node() string {
	n := c.next.Add(1) - 1
	return c.nodes[n%uint64(len(c.nodes))]
}

func (c *HTTPClient) do(ctx context.Context, method, path string, params url.Values, body []byte, out any) error {
	return c.doNode(ctx, c.node(), method, path, params, body, out)
}

type errorResponse struct {
	Error struct {
		Msg  string `json:"msg"`
		Code int    `json:"code"`
	} `json:"error"`
}

func (c *HTTPClient) doNode(ctx context.Context, node, method, path string, params url.Values, body []byte, out any) error {
	u := node + "/" + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var raw interface{}
	if body != nil {
		raw = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, raw)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.auth.Apply(req.Request); err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var r io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("gzip response: %w", err)
		}
		defer zr.Close()
		r = zr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		remote := &RemoteError{Status: resp.StatusCode}
		var er errorResponse
		if data, err := io.ReadAll(r); err == nil && len(data) > 0 {
			if json.Unmarshal(data, &er) == nil {
				remote.Msg = er.Error.Msg
				remote.Code = er.Error.Code
			} else {
				remote.Msg = strings.TrimSpace(string(data))
			}
		}
		return remote
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, r)
		return nil
	}
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
