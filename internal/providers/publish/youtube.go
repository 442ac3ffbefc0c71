package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"server/internal/domain"
	"server/internal/quota"
	"server/internal/retry"
)

const (
	youtubeDefaultTimeout = 10 * time.Minute
	youtubeDefaultBaseURL = "https://www.googleapis.com"

	// videos.insert costs 1600 units against the 10k daily API quota.
	youtubeUploadCost = 1600
)

// YouTubeTokenSource supplies the upload token per call.
type YouTubeTokenSource interface {
	YouTubeToken(ctx context.Context) (string, error)
}

// YouTubeOptions configures the upload client.
type YouTubeOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      YouTubeTokenSource
	Ledger     *quota.Ledger
	Retry      *retry.Envelope
}

// YouTubePublisher uploads videos through videos.insert. Uploads are the
// most expensive quota operation we make, so the client consults the local
// ledger before spending a call and records usage after a success. The
// ledger is advisory; a 403 quotaExceeded from the API is still mapped to a
// hard-cap error even when the local count disagrees.
type YouTubePublisher struct {
	baseURL string
	client  *http.Client
	token   YouTubeTokenSource
	ledger  *quota.Ledger
	retry   *retry.Envelope
}

type youtubeInsertResponse struct {
	ID string `json:"id"`
}

type youtubeErrorResponse struct {
	Error struct {
		Code   int `json:"code"`
		Errors []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewYouTubePublisher creates the upload client.
func NewYouTubePublisher(opts YouTubeOptions) (*YouTubePublisher, error) {
	if opts.Token == nil {
		return nil, fmt.Errorf("publish: youtube token source is required")
	}
	if opts.Ledger == nil {
		return nil, fmt.Errorf("publish: youtube quota ledger is required")
	}
	if opts.Retry == nil {
		return nil, fmt.Errorf("publish: youtube retry envelope is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = youtubeDefaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: youtubeDefaultTimeout}
	}
	return &YouTubePublisher{
		baseURL: baseURL,
		client:  client,
		token:   opts.Token,
		ledger:  opts.Ledger,
		retry:   opts.Retry,
	}, nil
}

func (p *YouTubePublisher) Platform() domain.Platform { return domain.PlatformYouTube }

// Publish uploads the referenced video. Transient failures are retried by
// the envelope; a hard cap (local ledger or API-reported) is surfaced with
// the next reset time and never retried.
func (p *YouTubePublisher) Publish(ctx context.Context, req Request) (*Result, error) {
	if req.VideoURL == "" {
		return nil, fmt.Errorf("%w: youtube publish requires a video", domain.ErrValidation)
	}
	if st := p.ledger.Status(); !st.CanAfford(youtubeUploadCost) {
		return nil, &domain.HardCapError{Provider: "youtube", ResetAt: st.ResetAt}
	}

	token, err := p.token.YouTubeToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("publish: load youtube token: %w", err)
	}
	if token == "" {
		return nil, fmt.Errorf("publish: youtube is not configured")
	}

	var result *Result
	err = p.retry.Execute(ctx, "youtube_upload", func(ctx context.Context) error {
		r, err := p.upload(ctx, token, req)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.ledger.Record(youtubeUploadCost)
	return result, nil
}

func (p *YouTubePublisher) upload(ctx context.Context, token string, req Request) (*Result, error) {
	media, err := p.fetchArtifact(ctx, req.VideoURL)
	if err != nil {
		return nil, err
	}
	defer media.Close()

	body, contentType, err := buildUploadBody(req, media)
	if err != nil {
		return nil, err
	}

	endpoint := p.baseURL + "/upload/youtube/v3/videos?uploadType=multipart&part=snippet,status"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("publish: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &domain.TransientError{Provider: "youtube", Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, p.classify(resp)
	}
	var out youtubeInsertResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("publish: decode youtube response: %w", err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("publish: youtube response missing video id")
	}
	return &Result{PostID: out.ID}, nil
}

// fetchArtifact streams the rendered video from storage.
func (p *YouTubePublisher) fetchArtifact(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("publish: build artifact request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &domain.TransientError{Provider: "youtube", Reason: "artifact fetch: " + err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("publish: artifact fetch: %s", resp.Status)
	}
	return resp.Body, nil
}

func buildUploadBody(req Request, media io.Reader) (io.Reader, string, error) {
	meta := map[string]any{
		"snippet": map[string]any{
			"title":       firstNonEmpty(req.Title, req.Caption),
			"description": req.Caption,
		},
		"status": map[string]any{
			"privacyStatus": "public",
		},
	}
	rawMeta, err := json.Marshal(meta)
	if err != nil {
		return nil, "", fmt.Errorf("publish: encode metadata: %w", err)
	}

	var head bytes.Buffer
	mw := multipart.NewWriter(&head)
	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	part, err := mw.CreatePart(metaHeader)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(rawMeta); err != nil {
		return nil, "", err
	}
	mediaHeader := textproto.MIMEHeader{}
	mediaHeader.Set("Content-Type", "video/mp4")
	if _, err := mw.CreatePart(mediaHeader); err != nil {
		return nil, "", err
	}

	boundary := mw.Boundary()
	// The media part is streamed, so the closing boundary is appended after
	// it instead of letting the writer own the whole body.
	tail := strings.NewReader("\r\n--" + boundary + "--\r\n")
	body := io.MultiReader(&head, media, tail)
	contentType := "multipart/related; boundary=" + boundary
	return body, contentType, nil
}

func (p *YouTubePublisher) classify(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed youtubeErrorResponse
	_ = json.Unmarshal(raw, &parsed)

	for _, e := range parsed.Error.Errors {
		switch e.Reason {
		case "quotaExceeded", "dailyLimitExceeded", "uploadLimitExceeded":
			return &domain.HardCapError{Provider: "youtube", ResetAt: p.ledger.Status().ResetAt}
		case "rateLimitExceeded", "userRateLimitExceeded":
			return &domain.TransientError{Provider: "youtube", Reason: e.Reason}
		}
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &domain.TransientError{Provider: "youtube", Reason: resp.Status}
	}
	msg := parsed.Error.Message
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	return fmt.Errorf("publish: youtube %s: %s", resp.Status, msg)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ Publisher = (*YouTubePublisher)(nil)
