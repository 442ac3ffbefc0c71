package publish

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"server/internal/domain"
	"server/internal/infra/credentials"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

type staticMetaCreds struct {
	creds credentials.MetaCredentials
}

func (s staticMetaCreds) MetaCredentials(ctx context.Context) (credentials.MetaCredentials, error) {
	return s.creds, nil
}

func metaTestOptions(transport roundTripFunc) MetaOptions {
	return MetaOptions{
		BaseURL:    "https://graph.test",
		HTTPClient: &http.Client{Transport: transport},
		Credentials: staticMetaCreds{creds: credentials.MetaCredentials{
			AccessToken: "tok",
			IGUserID:    "ig-1",
			PageID:      "pg-1",
		}},
		PollInterval: time.Millisecond,
	}
}

func TestInstagramPublishImage(t *testing.T) {
	var paths []string
	pub, err := NewInstagramPublisher(metaTestOptions(func(r *http.Request) (*http.Response, error) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/ig-1/media":
			if err := r.ParseForm(); err != nil {
				t.Fatal(err)
			}
			if got := r.PostForm.Get("image_url"); got != "https://cdn/img.png" {
				t.Fatalf("image_url = %q", got)
			}
			return jsonResponse(200, `{"id":"container-1"}`), nil
		case "/ig-1/media_publish":
			if err := r.ParseForm(); err != nil {
				t.Fatal(err)
			}
			if got := r.PostForm.Get("creation_id"); got != "container-1" {
				t.Fatalf("creation_id = %q", got)
			}
			return jsonResponse(200, `{"id":"post-9"}`), nil
		}
		t.Fatalf("unexpected path %s", r.URL.Path)
		return nil, nil
	}))
	if err != nil {
		t.Fatal(err)
	}
	res, err := pub.Publish(context.Background(), Request{ImageURL: "https://cdn/img.png", Caption: "hi"})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if res.PostID != "post-9" {
		t.Fatalf("PostID = %q, want post-9", res.PostID)
	}
	if len(paths) != 2 {
		t.Fatalf("paths = %v, want media then media_publish", paths)
	}
}

func TestInstagramPublishReelWaitsForContainer(t *testing.T) {
	polls := 0
	pub, err := NewInstagramPublisher(metaTestOptions(func(r *http.Request) (*http.Response, error) {
		switch {
		case r.URL.Path == "/ig-1/media":
			return jsonResponse(200, `{"id":"container-2"}`), nil
		case r.URL.Path == "/container-2":
			polls++
			if polls < 3 {
				return jsonResponse(200, `{"status_code":"IN_PROGRESS"}`), nil
			}
			return jsonResponse(200, `{"status_code":"FINISHED"}`), nil
		case r.URL.Path == "/ig-1/media_publish":
			return jsonResponse(200, `{"id":"post-10"}`), nil
		}
		t.Fatalf("unexpected path %s", r.URL.Path)
		return nil, nil
	}))
	if err != nil {
		t.Fatal(err)
	}
	res, err := pub.Publish(context.Background(), Request{VideoURL: "https://cdn/v.mp4", IsReel: true})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if res.PostID != "post-10" {
		t.Fatalf("PostID = %q", res.PostID)
	}
	if polls != 3 {
		t.Fatalf("polls = %d, want 3", polls)
	}
}

func TestGraphThrottleCodeIsTransient(t *testing.T) {
	pub, err := NewInstagramPublisher(metaTestOptions(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(400, `{"error":{"message":"rate limited","type":"OAuthException","code":4}}`), nil
	}))
	if err != nil {
		t.Fatal(err)
	}
	_, err = pub.Publish(context.Background(), Request{ImageURL: "https://cdn/img.png"})
	if !domain.IsTransient(err) {
		t.Fatalf("error = %v, want transient", err)
	}
}

func TestGraphInvalidTokenIsPermanent(t *testing.T) {
	pub, err := NewInstagramPublisher(metaTestOptions(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(401, `{"error":{"message":"bad token","type":"OAuthException","code":190}}`), nil
	}))
	if err != nil {
		t.Fatal(err)
	}
	_, err = pub.Publish(context.Background(), Request{ImageURL: "https://cdn/img.png"})
	if err == nil || domain.IsTransient(err) {
		t.Fatalf("error = %v, want permanent failure", err)
	}
}

func TestFacebookPublishVideo(t *testing.T) {
	pub, err := NewFacebookPublisher(metaTestOptions(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/pg-1/videos" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if got := r.PostForm.Get("file_url"); got != "https://cdn/v.mp4" {
			t.Fatalf("file_url = %q", got)
		}
		return jsonResponse(200, `{"id":"fb-1"}`), nil
	}))
	if err != nil {
		t.Fatal(err)
	}
	res, err := pub.Publish(context.Background(), Request{VideoURL: "https://cdn/v.mp4", IsReel: true, Caption: "cap"})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if res.PostID != "fb-1" {
		t.Fatalf("PostID = %q", res.PostID)
	}
}

func TestNewSetRejectsDuplicates(t *testing.T) {
	pub, err := NewFacebookPublisher(metaTestOptions(func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"id":"x"}`), nil
	}))
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate platform")
		}
	}()
	NewSet(pub, pub)
}
