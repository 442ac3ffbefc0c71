package domain

import "time"

// Variant selects the content format produced for a job.
type Variant string

const (
	VariantLight Variant = "light"
	VariantDark  Variant = "dark"
	VariantPost  Variant = "post"
)

// IsReel reports whether the variant is one of the video reel formats.
func (v Variant) IsReel() bool {
	return v == VariantLight || v == VariantDark
}

// Valid reports whether the variant is one the pipeline knows how to produce.
func (v Variant) Valid() bool {
	return v == VariantLight || v == VariantDark || v == VariantPost
}

// Platform identifies a publishing destination.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformYouTube   Platform = "youtube"
)

// KnownPlatforms lists every platform the publisher can target.
var KnownPlatforms = []Platform{PlatformInstagram, PlatformFacebook, PlatformYouTube}

// JobStatus enumerates generation job lifecycle states.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusGenerating JobStatus = "generating"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the job can no longer change state on its own.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// BrandOutputStatus enumerates per-brand progress within a job.
type BrandOutputStatus string

const (
	BrandOutputPending    BrandOutputStatus = "pending"
	BrandOutputGenerating BrandOutputStatus = "generating"
	BrandOutputCompleted  BrandOutputStatus = "completed"
	BrandOutputFailed     BrandOutputStatus = "failed"
	BrandOutputScheduled  BrandOutputStatus = "scheduled"
	BrandOutputPublished  BrandOutputStatus = "published"
)

// Succeeded reports whether the brand produced usable artifacts. Scheduled and
// published are downstream states of a completed generation, so they count.
func (s BrandOutputStatus) Succeeded() bool {
	return s == BrandOutputCompleted || s == BrandOutputScheduled || s == BrandOutputPublished
}

// BrandOutput holds the artifacts and progress for one brand inside a job.
type BrandOutput struct {
	Status        BrandOutputStatus `json:"status"`
	ThumbnailURL  string            `json:"thumbnail_url,omitempty"`
	VideoURL      string            `json:"video_url,omitempty"`
	BackgroundURL string            `json:"background_url,omitempty"`
	Caption       string            `json:"caption,omitempty"`
	PlatformTitle string            `json:"platform_title,omitempty"`
	Error         string            `json:"error,omitempty"`
	Message       string            `json:"message,omitempty"`
}

// GenerationJob is one content-creation request fanned out across brands.
type GenerationJob struct {
	ID              string
	UserID          string
	Title           string
	Lines           []string
	BrandIDs        []string
	Variant         Variant
	Hint            string
	Platforms       []Platform
	Status          JobStatus
	Step            string
	Progress        int
	ErrorMessage    string
	BrandOutputs    map[string]*BrandOutput
	CancelRequested bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Output returns the BrandOutput for the given brand, allocating the map and
// entry if missing so every requested brand always has an entry.
func (j *GenerationJob) Output(brandID string) *BrandOutput {
	if j.BrandOutputs == nil {
		j.BrandOutputs = make(map[string]*BrandOutput, len(j.BrandIDs))
	}
	out, ok := j.BrandOutputs[brandID]
	if !ok {
		out = &BrandOutput{Status: BrandOutputPending}
		j.BrandOutputs[brandID] = out
	}
	return out
}

// SucceededBrands counts brands whose generation succeeded.
func (j *GenerationJob) SucceededBrands() int {
	n := 0
	for _, out := range j.BrandOutputs {
		if out != nil && out.Status.Succeeded() {
			n++
		}
	}
	return n
}
