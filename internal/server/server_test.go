package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"backend-mongoliatrails/internal/config"
	"backend-mongoliatrails/internal/notify"
	"backend-mongoliatrails/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestHealthRoute(t *testing.T) {
	s := NewServer(config.Config{JWTSecret: "secret", ServerPort: ":0"}, nil, nil)
	defer s.Close()

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := s.App.Test(req)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 status")
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := NewServer(config.Config{JWTSecret: "secret"}, nil, nil)
	defer s.Close()

	for _, path := range []string{"/api/admin/bookings", "/api/admin/comments", "/api/admin/settings", "/api/admin/trips"} {
		resp, err := s.App.Test(httptest.NewRequest(http.MethodGet, path, nil))
		if err != nil {
			t.Fatalf("test request: %v", err)
		}
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, resp.StatusCode)
		}
	}
}

func TestBookingRequiresToken(t *testing.T) {
	s := NewServer(config.Config{JWTSecret: "secret"}, nil, nil)
	defer s.Close()

	resp, err := s.App.Test(httptest.NewRequest(http.MethodPost, "/api/bookings", nil))
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestBookingOptionsWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewServer(config.Config{JWTSecret: "secret"}, nil, client)
	defer s.Close()

	without := bookingOptions(&Server{Cfg: s.Cfg, Stream: s.Stream}, nil)
	with := bookingOptions(s, nil)
	if len(with) != len(without)+1 {
		t.Fatalf("expected idempotency option when redis is configured")
	}
}

func TestNewNotifierDisabled(t *testing.T) {
	n := newNotifier(config.Config{})
	multi, ok := n.(notify.Multi)
	if !ok || len(multi) != 1 {
		t.Fatalf("expected only the disabled telegram notifier, got %T", n)
	}
}

func TestNewUploaderFallsBackToDisk(t *testing.T) {
	if _, ok := newUploader(config.Config{UploadDir: t.TempDir()}).(*storage.LocalUploader); !ok {
		t.Fatalf("expected local uploader")
	}
	up := newUploader(config.Config{S3Region: "ap-northeast-2", S3Bucket: "b", S3AccessKeyID: "k", S3SecretAccessKey: "s"})
	if _, ok := up.(*storage.S3Uploader); !ok {
		t.Fatalf("expected s3 uploader")
	}
}
