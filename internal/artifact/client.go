package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/idanshimon/protect-web/internal/config"
)

const (
	// DefaultTimeout bounds a single HTTP request, including the body.
	DefaultTimeout = 10 * time.Minute
	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "protect-web/" + config.RequiredVersion

	tokenPath    = "services/oauth2/token"
	fileListPath = "download/v1/filelist"
	filePath     = "download/v1/file"
	signatureExt = ".sig"
)

// Client talks to the remote distribution service.
type Client struct {
	apiBase      string
	servicesBase string
	httpClient   *http.Client
	verifier     *Verifier
	logger       config.Logger
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// APIBase is the API root, e.g. https://api.developer.arxan.com/.
	APIBase string
	// ServicesBase defaults to APIBase + "services/".
	ServicesBase string
	// HTTPClient defaults to an otelhttp-instrumented client.
	HTTPClient *http.Client
	// Verifier enables detached signature checks when non-nil.
	Verifier *Verifier
	Logger   config.Logger
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIBase == "" {
		return nil, fmt.Errorf("APIBase is required")
	}
	apiBase := strings.TrimRight(cfg.APIBase, "/") + "/"
	servicesBase := cfg.ServicesBase
	if servicesBase == "" {
		servicesBase = apiBase + "services/"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	return &Client{
		apiBase:      apiBase,
		servicesBase: strings.TrimRight(servicesBase, "/") + "/",
		httpClient:   httpClient,
		verifier:     cfg.Verifier,
		logger:       config.OrNop(cfg.Logger),
	}, nil
}

// Authenticate exchanges the API key and secret for an access token using
// the OAuth2 client-credentials grant.
func (c *Client) Authenticate(ctx context.Context, key, secret string) (AccessToken, error) {
	cc := clientcredentials.Config{
		ClientID:     key,
		ClientSecret: secret,
		TokenURL:     c.apiBase + tokenPath,
		AuthStyle:    oauth2.AuthStyleInParams,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := cc.Token(ctx)
	if err != nil {
		return AccessToken{}, newRedactedError(ErrAuthentication, err, "could not obtain an access token", key, secret)
	}

	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	c.logger.Debug("authenticated", "token_type", tokenType)
	return AccessToken{TokenType: tokenType, Token: tok.AccessToken}, nil
}

// ResolveArtifact picks the package for platform from the server's file
// list. Entries are filtered by platform, then by the protect-web filename
// prefix, and the first match wins.
func (c *Client) ResolveArtifact(ctx context.Context, token AccessToken, product, version, platform string) (Descriptor, error) {
	query := url.Values{"product": {product}, "version": {version}}
	body, err := c.get(ctx, token, fileListPath, query)
	if err != nil {
		return Descriptor{}, entitlementError(version, redactToken(err, token))
	}
	defer body.Close()

	var files []FileEntry
	if err := json.NewDecoder(body).Decode(&files); err != nil {
		return Descriptor{}, entitlementError(version, fmt.Errorf("decode file list: %w", err))
	}

	desc, ok := selectArtifact(files, platform)
	if !ok {
		return Descriptor{}, noArtifactError(version)
	}
	c.logger.Debug("resolved artifact", "filename", desc.Filename, "platform", desc.Platform,
		"signed", desc.SignatureFilename != "")
	return desc, nil
}

func selectArtifact(files []FileEntry, platform string) (Descriptor, bool) {
	var candidates []FileEntry
	for _, f := range files {
		if f.Platform == platform {
			candidates = append(candidates, f)
		}
	}

	for _, f := range candidates {
		if !strings.HasPrefix(f.Filename, config.ArtifactPrefix) || strings.HasSuffix(f.Filename, signatureExt) {
			continue
		}
		desc := Descriptor{Filename: f.Filename, Platform: f.Platform}
		for _, s := range candidates {
			if s.Filename == f.Filename+signatureExt {
				desc.SignatureFilename = s.Filename
				break
			}
		}
		return desc, true
	}
	return Descriptor{}, false
}

// FetchArtifact wipes destDir, downloads the package into it and, for
// archives, extracts it in place. Disk images are left as downloaded.
func (c *Client) FetchArtifact(ctx context.Context, token AccessToken, product, version string, desc Descriptor, destDir string) error {
	if err := os.RemoveAll(destDir); err != nil {
		return fmt.Errorf("%w: clear install location: %v", ErrDownload, err)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("%w: create install location: %v", ErrDownload, err)
	}

	pkgPath := filepath.Join(destDir, filepath.Base(desc.Filename))
	if err := c.downloadFile(ctx, token, product, version, desc.Filename, pkgPath); err != nil {
		return downloadError(version, redactToken(err, token))
	}

	if err := c.verifyPackage(ctx, token, product, version, desc, pkgPath); err != nil {
		return err
	}

	kind := archiveKindOf(desc.Filename)
	if kind == ArchiveNone || desc.IsDiskImage() {
		return nil
	}

	if err := extractArchive(kind, pkgPath, destDir); err != nil {
		return downloadError(version, fmt.Errorf("extract %s: %w", desc.Filename, err))
	}
	if err := os.Remove(pkgPath); err != nil {
		c.logger.Warn("could not remove extracted archive", "path", pkgPath, "error", err)
	}
	return nil
}

func (c *Client) verifyPackage(ctx context.Context, token AccessToken, product, version string, desc Descriptor, pkgPath string) error {
	if c.verifier == nil {
		return nil
	}
	if desc.SignatureFilename == "" {
		c.logger.Warn("keyring configured but no signature published", "filename", desc.Filename)
		return nil
	}

	sigPath := pkgPath + signatureExt
	if err := c.downloadFile(ctx, token, product, version, desc.SignatureFilename, sigPath); err != nil {
		return downloadError(version, redactToken(err, token))
	}
	defer os.Remove(sigPath)

	if err := c.verifier.VerifyDetached(pkgPath, sigPath); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrVerification, desc.Filename, err)
	}
	c.logger.Info("package signature verified", "filename", desc.Filename)
	return nil
}

func (c *Client) downloadFile(ctx context.Context, token AccessToken, product, version, filename, dest string) error {
	query := url.Values{"product": {product}, "version": {version}, "filename": {filename}}
	body, err := c.get(ctx, token, filePath, query)
	if err != nil {
		return err
	}
	defer body.Close()
	return writeFileAtomic(dest, body)
}

// get issues an authorized GET against the services root and returns the
// body of a 2xx response.
func (c *Client) get(ctx context.Context, token AccessToken, path string, query url.Values) (io.ReadCloser, error) {
	reqURL := c.servicesBase + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("authorization", token.Authorization())
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return resp.Body, nil
}

func downloadError(version string, cause error) error {
	return fmt.Errorf("%w: failed to download %s. Error message: %v", ErrDownload, productLabel(version), cause)
}

func redactToken(err error, token AccessToken) error {
	if err == nil {
		return nil
	}
	return &RedactedError{message: redact(err.Error(), token.Token), wrapped: err}
}
