package publish

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"testing"

	"github.com/yungbote/unwrapped-proof/internal/domain"
	"github.com/yungbote/unwrapped-proof/internal/pkg/faults"
	"github.com/yungbote/unwrapped-proof/internal/platform/logger"
)

type captureUploader struct {
	bucket string
	key    string
	body   []byte
	calls  int
	err    error
}

func (u *captureUploader) UploadFile(_ context.Context, bucket, key string, file io.Reader) error {
	u.calls++
	u.bucket = bucket
	u.key = key
	body, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	u.body = body
	return u.err
}

func testPublisher(t *testing.T, uploader Uploader) *Publisher {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	p := NewPublisher(uploader, log)
	p.tempDir = t.TempDir()
	return p
}

func testView() domain.RawView {
	return domain.RawView{
		Version: domain.RawViewVersion,
		User:    domain.RawViewUser{IDHash: "abc123"},
		Stats:   domain.RawViewStats{TotalMinutes: 1200, TrackCount: 2},
		Tracks: []domain.RawViewTrack{
			{TrackID: "t1", ArtistID: "a1", DurationMS: 180000, ListenedAt: "2026-01-01T00:00:00Z"},
		},
	}
}

func TestPublishUploadsSealedArtifact(t *testing.T) {
	uploader := &captureUploader{}
	p := testPublisher(t, uploader)

	res, err := p.Publish(context.Background(), testView(),
		"https://proof-bucket.storage.example.com/contributions/run-1.bin", "passphrase")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if uploader.bucket != "proof-bucket" {
		t.Errorf("bucket = %q, want proof-bucket", uploader.bucket)
	}
	if uploader.key != "contributions/run-1.bin" {
		t.Errorf("key = %q, want contributions/run-1.bin", uploader.key)
	}

	// Encrypted checksum matches the uploaded bytes.
	sum := sha256.Sum256(uploader.body)
	if got := hex.EncodeToString(sum[:]); got != res.EncryptedChecksum {
		t.Errorf("encrypted checksum mismatch: %s vs %s", got, res.EncryptedChecksum)
	}

	// Decrypted checksum matches the canonical serialization, which must
	// round-trip back to the view.
	plaintext, err := Decrypt(uploader.body, "passphrase")
	if err != nil {
		t.Fatalf("Decrypt uploaded artifact: %v", err)
	}
	sum = sha256.Sum256(plaintext)
	if got := hex.EncodeToString(sum[:]); got != res.DecryptedChecksum {
		t.Errorf("decrypted checksum mismatch: %s vs %s", got, res.DecryptedChecksum)
	}
	var roundTripped domain.RawView
	if err := json.Unmarshal(plaintext, &roundTripped); err != nil {
		t.Fatalf("artifact is not valid JSON: %v", err)
	}
	if roundTripped.Version != domain.RawViewVersion || roundTripped.User.IDHash != "abc123" {
		t.Fatalf("unexpected artifact content: %+v", roundTripped)
	}
	if bytes.Contains(uploader.body, []byte("abc123")) {
		t.Fatal("uploaded artifact leaks plaintext")
	}
}

func TestPublishRejectsBadDestination(t *testing.T) {
	cases := []string{
		"http://proof-bucket.example.com/key.bin", // not https
		"https://bucketonly/key.bin",              // host has no labels to split
		"https://proof-bucket.example.com/",       // no object key
		"://not-a-url",
	}
	for _, destination := range cases {
		uploader := &captureUploader{}
		p := testPublisher(t, uploader)
		_, err := p.Publish(context.Background(), testView(), destination, "pass")
		if faults.KindOf(err) != faults.KindValidation {
			t.Errorf("destination %q: expected validation fault, got %v", destination, err)
		}
		if uploader.calls != 0 {
			t.Errorf("destination %q: upload attempted despite invalid destination", destination)
		}
	}
}

func TestPublishUploadFailure(t *testing.T) {
	uploader := &captureUploader{err: io.ErrUnexpectedEOF}
	p := testPublisher(t, uploader)

	_, err := p.Publish(context.Background(), testView(),
		"https://proof-bucket.example.com/key.bin", "pass")
	if faults.KindOf(err) != faults.KindPublish {
		t.Fatalf("expected publish fault, got %v", err)
	}
}
