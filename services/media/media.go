package media

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/cloudinary/cloudinary-go/v2"
	"go.uber.org/zap"
)

const (
	// DefaultDownloadHost serves public Firebase Storage objects.
	DefaultDownloadHost = "https://firebasestorage.googleapis.com"

	bucketScheme     = "gs://"
	cloudinaryScheme = "cloudinary://"
)

// Normalizer turns stored media references into fetchable HTTP(S) URLs.
// References already using http or https pass through unchanged.
type Normalizer struct {
	downloadHost string
	cld          *cloudinary.Cloudinary
	signer       *urlSigner
	logger       *zap.Logger
}

type urlSigner struct {
	accessID   string
	privateKey []byte
	ttl        time.Duration
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithDownloadHost overrides the host public bucket URLs are built on.
func WithDownloadHost(host string) Option {
	return func(n *Normalizer) {
		n.downloadHost = strings.TrimRight(host, "/")
	}
}

// WithCloudinary resolves cloudinary://<publicID> references through cld.
func WithCloudinary(cld *cloudinary.Cloudinary) Option {
	return func(n *Normalizer) {
		n.cld = cld
	}
}

// ErrSigningDisabled is returned by SignedURL when no signing key is configured.
var ErrSigningDisabled = errors.New("signed media URLs are not configured")

// WithSignedURLs enables SignedURL with V2 signed URLs valid for ttl. URL
// keeps returning public download URLs.
func WithSignedURLs(clientEmail, privateKey string, ttl time.Duration) Option {
	return func(n *Normalizer) {
		if clientEmail == "" || privateKey == "" || ttl <= 0 {
			return
		}
		n.signer = &urlSigner{
			accessID:   clientEmail,
			privateKey: []byte(strings.ReplaceAll(privateKey, `\n`, "\n")),
			ttl:        ttl,
		}
	}
}

// NewNormalizer builds a Normalizer. A nil logger is replaced with a no-op logger.
func NewNormalizer(logger *zap.Logger, opts ...Option) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Normalizer{downloadHost: DefaultDownloadHost, logger: logger}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// URL normalizes a single reference. Unknown schemes are returned as-is.
func (n *Normalizer) URL(ref string) string {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return ""
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return ref
	case strings.HasPrefix(ref, bucketScheme):
		bucket, object, ok := ParseBucketRef(ref)
		if !ok {
			n.logger.Warn("Malformed bucket media reference", zap.String("ref", ref))
			return ref
		}
		return PublicURL(n.downloadHost, bucket, object)
	case strings.HasPrefix(ref, cloudinaryScheme):
		return n.cloudinaryURL(ref)
	default:
		return ref
	}
}

// URLs normalizes every reference, keeping order and dropping empty entries.
func (n *Normalizer) URLs(refs []string) []string {
	if refs == nil {
		return nil
	}
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if u := n.URL(ref); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// SignedURL returns a time-limited URL for a gs:// reference in a bucket
// without public read. Unlike URL, the object path keeps its "/" separators,
// as signed storage URLs are path-style.
func (n *Normalizer) SignedURL(ref string) (string, error) {
	if n.signer == nil {
		return "", ErrSigningDisabled
	}
	bucket, object, ok := ParseBucketRef(strings.TrimSpace(ref))
	if !ok {
		return "", fmt.Errorf("malformed bucket media reference %q", ref)
	}
	signed, err := n.signedURL(bucket, object)
	if err != nil {
		return "", fmt.Errorf("failed to sign media URL: %w", err)
	}
	return signed, nil
}

func (n *Normalizer) signedURL(bucket, object string) (string, error) {
	return storage.SignedURL(bucket, object, &storage.SignedURLOptions{
		GoogleAccessID: n.signer.accessID,
		PrivateKey:     n.signer.privateKey,
		Method:         "GET",
		Expires:        time.Now().Add(n.signer.ttl),
	})
}

func (n *Normalizer) cloudinaryURL(ref string) string {
	publicID := strings.TrimPrefix(ref, cloudinaryScheme)
	if n.cld == nil || publicID == "" {
		n.logger.Warn("Cloudinary media reference without a configured client", zap.String("ref", ref))
		return ref
	}
	a, err := n.cld.Image(publicID)
	if err != nil {
		n.logger.Warn("Failed to build cloudinary asset", zap.String("ref", ref), zap.Error(err))
		return ref
	}
	u, err := a.String()
	if err != nil {
		n.logger.Warn("Failed to build cloudinary URL", zap.String("ref", ref), zap.Error(err))
		return ref
	}
	return u
}

// ParseBucketRef splits gs://bucket/object/path into bucket and object path.
func ParseBucketRef(ref string) (bucket, object string, ok bool) {
	rest := strings.TrimPrefix(ref, bucketScheme)
	if rest == ref {
		return "", "", false
	}
	idx := strings.Index(rest, "/")
	if idx <= 0 || idx == len(rest)-1 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}

// PublicURL builds the download URL of a bucket object. The object path is
// escaped as a single path segment, so "/" becomes %2F.
func PublicURL(host, bucket, object string) string {
	return fmt.Sprintf("%s/v0/b/%s/o/%s?alt=media", host, bucket, EscapeObjectPath(object))
}

// EscapeObjectPath percent-encodes everything except ASCII letters, digits
// and "-_.~".
func EscapeObjectPath(p string) string {
	return strings.ReplaceAll(url.QueryEscape(p), "+", "%20")
}
