// Package credentials reads third-party API tokens from the
// integration_tokens table so keys can be rotated without a deploy.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"server/internal/infra"
	"server/internal/sqlinline"
)

const (
	ProviderGemini  = "gemini"
	ProviderMeta    = "meta"
	ProviderYouTube = "youtube"
)

// MetaCredentials is everything a Graph API call needs.
type MetaCredentials struct {
	AccessToken string
	IGUserID    string
	PageID      string
}

type Store struct {
	sql infra.SQLExecutor
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql}
}

func (s *Store) GeminiAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderGemini)
}

// YouTubeToken returns the upload token, or empty when not configured.
func (s *Store) YouTubeToken(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderYouTube)
}

// MetaCredentials returns the Graph token plus the account ids stored in the
// row's properties.
func (s *Store) MetaCredentials(ctx context.Context) (MetaCredentials, error) {
	token, props, err := s.tokenWithProps(ctx, ProviderMeta)
	if err != nil {
		return MetaCredentials{}, err
	}
	return MetaCredentials{
		AccessToken: token,
		IGUserID:    strings.TrimSpace(props["ig_user_id"]),
		PageID:      strings.TrimSpace(props["page_id"]),
	}, nil
}

func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) tokenWithProps(ctx context.Context, provider string) (string, map[string]string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationTokenProps, provider)
	var (
		token string
		raw   []byte
	)
	if err := row.Scan(&token, &raw); err != nil {
		if infra.IsNoRows(err) {
			return "", map[string]string{}, nil
		}
		return "", nil, err
	}
	props := map[string]string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &props); err != nil {
			return "", nil, err
		}
	}
	return strings.TrimSpace(token), props, nil
}

func (s *Store) SetGeminiAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("gemini api key is required")
	}
	return s.upsert(ctx, ProviderGemini, key, nil)
}

// SetMetaCredentials stores the Graph token together with the account ids.
func (s *Store) SetMetaCredentials(ctx context.Context, creds MetaCredentials) error {
	token := strings.TrimSpace(creds.AccessToken)
	if token == "" {
		return errors.New("meta access token is required")
	}
	return s.upsert(ctx, ProviderMeta, token, map[string]any{
		"ig_user_id": strings.TrimSpace(creds.IGUserID),
		"page_id":    strings.TrimSpace(creds.PageID),
	})
}

func (s *Store) SetYouTubeToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("youtube token is required")
	}
	return s.upsert(ctx, ProviderYouTube, token, nil)
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw)
	return err
}
