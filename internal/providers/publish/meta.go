package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"server/internal/domain"
	"server/internal/infra/credentials"
)

const (
	metaDefaultTimeout   = 2 * time.Minute
	metaDefaultBaseURL   = "https://graph.facebook.com/v19.0"
	containerPollLimit   = 30
	containerPollDefault = 2 * time.Second
)

// Graph error codes that mean "try again later" rather than "broken".
// 4 and 17 are app/user level throttling, 613 is the calls-per-hour limit.
var metaTransientCodes = map[int]bool{4: true, 17: true, 613: true}

// MetaCredentialSource supplies the Graph token and account ids per call so
// rotated tokens take effect without a restart.
type MetaCredentialSource interface {
	MetaCredentials(ctx context.Context) (credentials.MetaCredentials, error)
}

// MetaOptions configures the shared Graph API client.
type MetaOptions struct {
	BaseURL      string
	HTTPClient   *http.Client
	Credentials  MetaCredentialSource
	PollInterval time.Duration
}

type graphClient struct {
	baseURL      string
	client       *http.Client
	creds        MetaCredentialSource
	pollInterval time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
}

type graphIDResponse struct {
	ID    string      `json:"id"`
	Error *graphError `json:"error"`
}

type graphStatusResponse struct {
	StatusCode string      `json:"status_code"`
	Error      *graphError `json:"error"`
}

type graphError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func newGraphClient(opts MetaOptions) (*graphClient, error) {
	if opts.Credentials == nil {
		return nil, fmt.Errorf("publish: meta credential source is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = metaDefaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: metaDefaultTimeout}
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = containerPollDefault
	}
	return &graphClient{
		baseURL:      baseURL,
		client:       client,
		creds:        opts.Credentials,
		pollInterval: interval,
		sleep: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		},
	}, nil
}

func (g *graphClient) post(ctx context.Context, path string, form url.Values) (*graphIDResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("publish: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	defer resp.Body.Close()

	var out graphIDResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("publish: decode graph response: %w", err)
	}
	if err := classifyGraph(resp.StatusCode, out.Error); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("publish: graph response missing id")
	}
	return &out, nil
}

func (g *graphClient) get(ctx context.Context, path string, query url.Values) (*graphStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("publish: build request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	defer resp.Body.Close()

	var out graphStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("publish: decode graph response: %w", err)
	}
	if err := classifyGraph(resp.StatusCode, out.Error); err != nil {
		return nil, err
	}
	return &out, nil
}

func classifyGraph(status int, gerr *graphError) error {
	if gerr != nil {
		if metaTransientCodes[gerr.Code] {
			return &domain.TransientError{Provider: "meta", Reason: gerr.Message}
		}
		return fmt.Errorf("publish: graph error %d (%s): %s", gerr.Code, gerr.Type, gerr.Message)
	}
	if status == http.StatusTooManyRequests || status >= 500 {
		return &domain.TransientError{Provider: "meta", Reason: http.StatusText(status)}
	}
	if status >= 300 {
		return fmt.Errorf("publish: graph http %d", status)
	}
	return nil
}

// InstagramPublisher publishes through the IG container flow: create a media
// container, wait until its processing finishes, then publish it.
type InstagramPublisher struct {
	graph *graphClient
}

// NewInstagramPublisher creates the instagram client.
func NewInstagramPublisher(opts MetaOptions) (*InstagramPublisher, error) {
	graph, err := newGraphClient(opts)
	if err != nil {
		return nil, err
	}
	return &InstagramPublisher{graph: graph}, nil
}

func (p *InstagramPublisher) Platform() domain.Platform { return domain.PlatformInstagram }

// Publish creates and publishes an IG container. Reels need the container to
// reach FINISHED before media_publish is accepted, so video containers are
// polled with a bounded loop.
func (p *InstagramPublisher) Publish(ctx context.Context, req Request) (*Result, error) {
	creds, err := p.graph.creds.MetaCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("publish: load meta credentials: %w", err)
	}
	if creds.AccessToken == "" || creds.IGUserID == "" {
		return nil, fmt.Errorf("publish: instagram is not configured")
	}

	form := url.Values{}
	form.Set("access_token", creds.AccessToken)
	form.Set("caption", req.Caption)
	if req.IsReel {
		form.Set("media_type", "REELS")
		form.Set("video_url", req.VideoURL)
		if req.ThumbnailURL != "" {
			form.Set("cover_url", req.ThumbnailURL)
		}
	} else {
		form.Set("image_url", req.ImageURL)
	}
	container, err := p.graph.post(ctx, "/"+creds.IGUserID+"/media", form)
	if err != nil {
		return nil, err
	}

	if req.IsReel {
		if err := p.waitForContainer(ctx, container.ID, creds.AccessToken); err != nil {
			return nil, err
		}
	}

	pub := url.Values{}
	pub.Set("access_token", creds.AccessToken)
	pub.Set("creation_id", container.ID)
	out, err := p.graph.post(ctx, "/"+creds.IGUserID+"/media_publish", pub)
	if err != nil {
		return nil, err
	}
	return &Result{PostID: out.ID}, nil
}

func (p *InstagramPublisher) waitForContainer(ctx context.Context, containerID, token string) error {
	query := url.Values{}
	query.Set("access_token", token)
	query.Set("fields", "status_code")
	for i := 0; i < containerPollLimit; i++ {
		status, err := p.graph.get(ctx, "/"+containerID, query)
		if err != nil {
			return err
		}
		switch status.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR", "EXPIRED":
			return fmt.Errorf("publish: instagram container %s", strings.ToLower(status.StatusCode))
		}
		if err := p.graph.sleep(ctx, p.graph.pollInterval); err != nil {
			return err
		}
	}
	return &domain.TransientError{Provider: "meta", Reason: "container still processing"}
}

var _ Publisher = (*InstagramPublisher)(nil)

// FacebookPublisher posts to the configured page.
type FacebookPublisher struct {
	graph *graphClient
}

// NewFacebookPublisher creates the facebook page client.
func NewFacebookPublisher(opts MetaOptions) (*FacebookPublisher, error) {
	graph, err := newGraphClient(opts)
	if err != nil {
		return nil, err
	}
	return &FacebookPublisher{graph: graph}, nil
}

func (p *FacebookPublisher) Platform() domain.Platform { return domain.PlatformFacebook }

// Publish posts a video to /{page}/videos or an image to /{page}/photos.
func (p *FacebookPublisher) Publish(ctx context.Context, req Request) (*Result, error) {
	creds, err := p.graph.creds.MetaCredentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("publish: load meta credentials: %w", err)
	}
	if creds.AccessToken == "" || creds.PageID == "" {
		return nil, fmt.Errorf("publish: facebook is not configured")
	}

	form := url.Values{}
	form.Set("access_token", creds.AccessToken)
	var path string
	if req.IsReel {
		path = "/" + creds.PageID + "/videos"
		form.Set("file_url", req.VideoURL)
		form.Set("description", req.Caption)
		if req.Title != "" {
			form.Set("title", req.Title)
		}
	} else {
		path = "/" + creds.PageID + "/photos"
		form.Set("url", req.ImageURL)
		form.Set("message", req.Caption)
	}
	out, err := p.graph.post(ctx, path, form)
	if err != nil {
		return nil, err
	}
	return &Result{PostID: out.ID}, nil
}

var _ Publisher = (*FacebookPublisher)(nil)
