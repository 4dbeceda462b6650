package clipstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/narrator/pkg/audio"
)

// Clip file extensions tried in order.
var clipExtensions = []string{".wav", ".mp3"}

// DirSource reads clips laid out as <root>/<languageCode>/<clipId>.wav or
// .mp3.
type DirSource struct {
	root string
}

// NewDirSource returns a source rooted at dir.
func NewDirSource(dir string) (*DirSource, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to open clip directory: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("clip directory %s is not a directory", dir)
	}
	return &DirSource{root: dir}, nil
}

// FetchClips reads every requested clip. A missing clip fails the call.
func (s *DirSource) FetchClips(ctx context.Context, ids []string, languageCode string) ([]audio.Clip, error) {
	clips := make([]audio.Clip, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := s.read(id, languageCode)
		if err != nil {
			return nil, err
		}
		clips = append(clips, audio.Clip{ID: id, LanguageCode: languageCode, Data: data})
	}
	return clips, nil
}

func (s *DirSource) read(id, languageCode string) ([]byte, error) {
	if id == "" || filepath.Base(id) != id {
		return nil, fmt.Errorf("%w: invalid clip id %q", audio.ErrClipNotFound, id)
	}
	for _, ext := range clipExtensions {
		data, err := os.ReadFile(filepath.Join(s.root, languageCode, id+ext))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("unable to read clip %s/%s: %w", languageCode, id, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s/%s", audio.ErrClipNotFound, languageCode, id)
}

// HTTPSource fetches clips from the backend API:
//
//	GET <base>/clips?languageCode=en&id=c1&id=c2
//
// answers [{"id": "c1", "languageCode": "en", "data": "<base64>"}, ...].
// Requests are throttled by a token bucket.
type HTTPSource struct {
	base    *url.URL
	client  *http.Client
	limiter *rate.Limiter
}

// HTTPOptions tune an HTTPSource.
type HTTPOptions struct {
	RequestsPerSecond float64
	Timeout           time.Duration
	Client            *http.Client
}

// NewHTTPSource creates a source for the backend at baseURL.
func NewHTTPSource(baseURL string, opts HTTPOptions) (*HTTPSource, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid clip backend URL %q", baseURL)
	}

	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &HTTPSource{
		base:    u,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
	}, nil
}

type clipPayload struct {
	ID           string `json:"id"`
	LanguageCode string `json:"languageCode"`
	Data         []byte `json:"data"`
}

// FetchClips requests all ids in one call and returns them in request
// order.
func (s *HTTPSource) FetchClips(ctx context.Context, ids []string, languageCode string) ([]audio.Clip, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := s.base.JoinPath("clips")
	q := url.Values{"languageCode": {languageCode}, "id": ids}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch clips: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("clip backend: HTTP status %d", resp.StatusCode)
	}

	var payloads []clipPayload
	if err := json.NewDecoder(resp.Body).Decode(&payloads); err != nil {
		return nil, fmt.Errorf("unable to decode clip response: %w", err)
	}
	log.Debug("Fetched clips", "count", len(payloads), "language", languageCode, "duration", time.Since(start))

	byID := make(map[string][]byte, len(payloads))
	for _, p := range payloads {
		byID[p.ID] = p.Data
	}

	clips := make([]audio.Clip, 0, len(ids))
	for _, id := range ids {
		data, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s/%s", audio.ErrClipNotFound, languageCode, id)
		}
		clips = append(clips, audio.Clip{ID: id, LanguageCode: languageCode, Data: data})
	}
	return clips, nil
}
