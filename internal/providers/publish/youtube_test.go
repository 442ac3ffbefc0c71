package publish

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/quota"
	"server/internal/retry"
)

type staticToken string

func (s staticToken) YouTubeToken(ctx context.Context) (string, error) {
	return string(s), nil
}

func newYouTubeForTest(t *testing.T, ledger *quota.Ledger, transport roundTripFunc) *YouTubePublisher {
	t.Helper()
	pub, err := NewYouTubePublisher(YouTubeOptions{
		BaseURL:    "https://yt.test",
		HTTPClient: &http.Client{Transport: transport},
		Token:      staticToken("yt-token"),
		Ledger:     ledger,
		Retry:      retry.New(3, time.Millisecond, time.Millisecond, zerolog.Nop()),
	})
	if err != nil {
		t.Fatal(err)
	}
	return pub
}

func TestYouTubePublishRecordsQuota(t *testing.T) {
	ledger := quota.New(10000, 0, "UTC")
	pub := newYouTubeForTest(t, ledger, func(r *http.Request) (*http.Response, error) {
		switch {
		case r.Method == http.MethodGet:
			return jsonResponse(200, "fake-video-bytes"), nil
		case strings.HasPrefix(r.URL.Path, "/upload/youtube/v3/videos"):
			if got := r.Header.Get("Authorization"); got != "Bearer yt-token" {
				t.Fatalf("Authorization = %q", got)
			}
			if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/related") {
				t.Fatalf("Content-Type = %q", ct)
			}
			return jsonResponse(200, `{"id":"vid-1"}`), nil
		}
		t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		return nil, nil
	})

	res, err := pub.Publish(context.Background(), Request{VideoURL: "https://cdn/v.mp4", Title: "t", Caption: "c"})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if res.PostID != "vid-1" {
		t.Fatalf("PostID = %q", res.PostID)
	}
	if got := ledger.Status().Used; got != youtubeUploadCost {
		t.Fatalf("ledger used = %d, want %d", got, youtubeUploadCost)
	}
}

func TestYouTubePublishBlockedByLocalLedger(t *testing.T) {
	ledger := quota.New(1000, 0, "UTC")
	pub := newYouTubeForTest(t, ledger, func(r *http.Request) (*http.Response, error) {
		t.Fatal("no request expected when the ledger blocks")
		return nil, nil
	})

	_, err := pub.Publish(context.Background(), Request{VideoURL: "https://cdn/v.mp4"})
	var hardCap *domain.HardCapError
	if !errors.As(err, &hardCap) {
		t.Fatalf("error = %v, want HardCapError", err)
	}
	if hardCap.ResetAt.IsZero() {
		t.Fatal("ResetAt not populated")
	}
}

func TestYouTubeQuotaExceededIsHardCapNotRetried(t *testing.T) {
	ledger := quota.New(10000, 0, "UTC")
	uploads := 0
	pub := newYouTubeForTest(t, ledger, func(r *http.Request) (*http.Response, error) {
		if r.Method == http.MethodGet {
			return jsonResponse(200, "bytes"), nil
		}
		uploads++
		return jsonResponse(403, `{"error":{"code":403,"message":"quota","errors":[{"reason":"quotaExceeded"}]}}`), nil
	})

	_, err := pub.Publish(context.Background(), Request{VideoURL: "https://cdn/v.mp4"})
	if !domain.IsHardCap(err) {
		t.Fatalf("error = %v, want hard cap", err)
	}
	if uploads != 1 {
		t.Fatalf("uploads = %d, hard cap must not be retried", uploads)
	}
	if got := ledger.Status().Used; got != 0 {
		t.Fatalf("ledger used = %d, failed upload must not record usage", got)
	}
}

func TestYouTubeServerErrorIsRetried(t *testing.T) {
	ledger := quota.New(10000, 0, "UTC")
	uploads := 0
	pub := newYouTubeForTest(t, ledger, func(r *http.Request) (*http.Response, error) {
		if r.Method == http.MethodGet {
			return jsonResponse(200, "bytes"), nil
		}
		uploads++
		if uploads < 2 {
			return jsonResponse(503, `{}`), nil
		}
		return jsonResponse(200, `{"id":"vid-2"}`), nil
	})

	res, err := pub.Publish(context.Background(), Request{VideoURL: "https://cdn/v.mp4"})
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if res.PostID != "vid-2" {
		t.Fatalf("PostID = %q", res.PostID)
	}
	if uploads != 2 {
		t.Fatalf("uploads = %d, want one retry", uploads)
	}
}
