package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// A Client is a connection to the repository's entity REST API.
// It can be shared between multiple goroutines.
//
// The client logs in with the given credentials on first use and keeps the
// access token. Should the server reject the token, the client logs in once
// more and repeats the request.
type Client struct {
	// The repository server this connection is to, e.g. "https://eu.example.com"
	HostURL string

	Username string
	Password string
	Tenant   string

	limiter *rate.Limiter
	client  *http.Client

	m     sync.Mutex // protects token
	token string
}

var (
	// ensure Client satisfies the Catalog interface
	_ Catalog = &Client{}
)

// NewClient returns a client for the server at hostURL. Requests are paced to
// at most rps per second, with the given burst. A rps of zero or less
// disables pacing.
func NewClient(hostURL string, opts Options) *Client {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	return &Client{
		HostURL:  strings.TrimSuffix(hostURL, "/"),
		Username: opts.Username,
		Password: opts.Password,
		Tenant:   opts.Tenant,
		limiter:  rate.NewLimiter(limit, burst),
		client: &http.Client{
			Timeout: 10 * time.Minute, // arbitrary
		},
	}
}

// the names the entity API uses for each entity type in URL paths
var entityPaths = map[EntityType]string{
	StructuralObject:  "structural-objects",
	InformationObject: "information-objects",
}

// Folder returns the folder with the given reference.
func (c *Client) Folder(ctx context.Context, ref Ref) (Folder, error) {
	v, err := c.doJason(ctx, "GET", "/api/entity/structural-objects/"+url.PathEscape(string(ref)), nil)
	if err != nil {
		return Folder{}, errors.Wrapf(err, "folder %s", ref)
	}
	return parseFolder(v), nil
}

// Identifier returns the entities having the given identifier.
func (c *Client) Identifier(ctx context.Context, namespace, value string) ([]Entity, error) {
	q := url.Values{}
	q.Set("type", namespace)
	q.Set("value", value)
	v, err := c.doJason(ctx, "GET", "/api/entity/entities/by-identifier?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "identifier %s=%s", namespace, value)
	}
	list, _ := v.GetObjectArray("entities")
	var result []Entity
	for _, e := range list {
		ref, _ := e.GetString("ref")
		typ, _ := e.GetString("type")
		title, _ := e.GetString("title")
		result = append(result, Entity{Ref: Ref(ref), Type: EntityType(typ), Title: title})
	}
	return result, nil
}

// CreateFolder makes a new folder under parent.
func (c *Client) CreateFolder(ctx context.Context, title, description, securityTag string, parent Ref) (Folder, error) {
	body, _ := json.Marshal(map[string]string{
		"title":       title,
		"description": description,
		"securityTag": securityTag,
		"parent":      string(parent),
	})
	v, err := c.doJason(ctx, "POST", "/api/entity/structural-objects", body)
	if err != nil {
		return Folder{}, errors.Wrapf(err, "create folder %s", title)
	}
	return parseFolder(v), nil
}

// AddIdentifier attaches an identifier to the entity e.
func (c *Client) AddIdentifier(ctx context.Context, e Entity, namespace, value string) error {
	kind, ok := entityPaths[e.Type]
	if !ok {
		return errors.Errorf("add identifier: unknown entity type %q", e.Type)
	}
	body, _ := json.Marshal(map[string]string{
		"type":  namespace,
		"value": value,
	})
	path := "/api/entity/" + kind + "/" + url.PathEscape(string(e.Ref)) + "/identifiers"
	resp, err := c.call(ctx, "POST", path, body)
	if err != nil {
		return errors.Wrapf(err, "add identifier %s=%s", namespace, value)
	}
	resp.Body.Close()
	return nil
}

func parseFolder(v *jason.Object) Folder {
	var f Folder
	ref, _ := v.GetString("ref")
	f.Ref = Ref(ref)
	f.Title, _ = v.GetString("title")
	f.Description, _ = v.GetString("description")
	f.SecurityTag, _ = v.GetString("securityTag")
	parent, _ := v.GetString("parent")
	f.Parent = Ref(parent)
	return f
}

func (c *Client) doJason(ctx context.Context, method, path string, body []byte) (*jason.Object, error) {
	resp, err := c.call(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return jason.NewObjectFromReader(resp.Body)
}

// call performs an authenticated request and sorts out the response code.
// A successful response is returned with an open body.
func (c *Client) call(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		token, err := c.getToken(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := c.do(ctx, method, path, body, token)
		if err != nil {
			return nil, err
		}
		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil
		case resp.StatusCode == 401 && attempt == 0:
			// the token may have expired. log in again and retry
			drain(resp)
			c.clearToken(token)
			continue
		}
		drain(resp)
		switch resp.StatusCode {
		case 404:
			return nil, ErrNotFound
		case 401, 403:
			return nil, ErrNotAuthorized
		default:
			return nil, errors.Wrapf(ErrUnexpectedResp, "received status %d for %s %s", resp.StatusCode, method, path)
		}
	}
}

// do performs an http request using our client. The request is paced by the
// rate limiter.
func (c *Client) do(ctx context.Context, method, path string, body []byte, token string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, c.HostURL+path, r)
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Preservica-Access-Token", token)
	}
	return c.client.Do(req)
}

func (c *Client) getToken(ctx context.Context) (string, error) {
	c.m.Lock()
	defer c.m.Unlock()
	if c.token != "" {
		return c.token, nil
	}
	token, err := c.login(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	return token, nil
}

// clearToken forgets the token, unless another goroutine already replaced it.
func (c *Client) clearToken(token string) {
	c.m.Lock()
	if c.token == token {
		c.token = ""
	}
	c.m.Unlock()
}

func (c *Client) login(ctx context.Context) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	form := url.Values{}
	form.Set("username", c.Username)
	form.Set("password", c.Password)
	form.Set("tenant", c.Tenant)
	req, err := http.NewRequest("POST", c.HostURL+"/api/accesstoken/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "login")
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case 200:
		break
	case 401, 403:
		return "", ErrNotAuthorized
	default:
		return "", fmt.Errorf("login: received status %d", resp.StatusCode)
	}
	v, err := jason.NewObjectFromReader(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "login")
	}
	ok, _ := v.GetBoolean("success")
	token, _ := v.GetString("token")
	if !ok || token == "" {
		return "", ErrNotAuthorized
	}
	return token, nil
}

func drain(resp *http.Response) {
	io.Copy(ioutil.Discard, resp.Body)
	resp.Body.Close()
}
