package publish

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/yungbote/unwrapped-proof/internal/domain"
	"github.com/yungbote/unwrapped-proof/internal/pkg/faults"
	"github.com/yungbote/unwrapped-proof/internal/platform/logger"
)

// Uploader is the object-storage seam; production passes the GCS bucket
// service, tests pass a capture fake.
type Uploader interface {
	UploadFile(ctx context.Context, bucket, key string, file io.Reader) error
}

// Publisher serializes a run's raw view, encrypts it and uploads the sealed
// artifact to the destination named by the run's file URL.
type Publisher struct {
	uploader Uploader
	log      *logger.Logger
	tempDir  string
}

func NewPublisher(uploader Uploader, baseLog *logger.Logger) *Publisher {
	return &Publisher{
		uploader: uploader,
		log:      baseLog.With("service", "Publisher"),
	}
}

// Result carries both artifact checksums: Encrypted identifies the stored
// blob, Decrypted lets a holder of the passphrase verify the plaintext.
type Result struct {
	EncryptedChecksum string
	DecryptedChecksum string
}

// Publish writes the canonical serialization of view, checksums it, seals it
// under passphrase and uploads the sealed bytes. Destination must be an https
// URL whose first host label names the bucket and whose path names the key.
// Validation failures surface before any upload is attempted.
func (p *Publisher) Publish(ctx context.Context, view domain.RawView, destination, passphrase string) (*Result, error) {
	bucket, key, err := parseDestination(destination)
	if err != nil {
		return nil, err
	}

	plaintext, err := json.Marshal(view)
	if err != nil {
		return nil, faults.New(faults.KindValidation, 0, err)
	}
	sealed, err := Encrypt(plaintext, passphrase)
	if err != nil {
		return nil, faults.New(faults.KindPublish, 0, err)
	}

	res := &Result{
		EncryptedChecksum: checksum(sealed),
		DecryptedChecksum: checksum(plaintext),
	}

	// Stage the artifact on disk first so a failed upload leaves a local
	// copy for diagnosis inside the enclave.
	dir, err := os.MkdirTemp(p.tempDir, "proof-artifact-")
	if err != nil {
		return nil, faults.New(faults.KindPublish, 0, err)
	}
	defer os.RemoveAll(dir)

	artifactPath := filepath.Join(dir, key)
	if err := os.MkdirAll(filepath.Dir(artifactPath), 0o700); err != nil {
		return nil, faults.New(faults.KindPublish, 0, err)
	}
	if err := os.WriteFile(artifactPath, sealed, 0o600); err != nil {
		return nil, faults.New(faults.KindPublish, 0, err)
	}

	if err := p.uploader.UploadFile(ctx, bucket, key, bytes.NewReader(sealed)); err != nil {
		return nil, faults.New(faults.KindPublish, 0, err)
	}

	p.log.Info("artifact published",
		"bucket", bucket,
		"key", key,
		"size_bytes", len(sealed),
		"encrypted_checksum", res.EncryptedChecksum,
	)
	return res, nil
}

// parseDestination splits an https object URL of the form
// https://<bucket>.<endpoint>/<key> into bucket and key.
func parseDestination(destination string) (bucket, key string, err error) {
	u, parseErr := url.Parse(destination)
	if parseErr != nil {
		return "", "", faults.New(faults.KindValidation, 0, parseErr)
	}
	if u.Scheme != "https" {
		return "", "", faults.Newf(faults.KindValidation, "destination must be https, got %q", u.Scheme)
	}
	host := u.Hostname()
	label, _, found := strings.Cut(host, ".")
	if !found || label == "" {
		return "", "", faults.Newf(faults.KindValidation, "destination host %q does not name a bucket", host)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", faults.Newf(faults.KindValidation, "destination %q has no object key", destination)
	}
	return label, key, nil
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
