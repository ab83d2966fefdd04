package service

import (
	"strings"
	"testing"
)

var testExts = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "bmp": true, "webp": true,
}

const testMaxSize = 50 * 1024 * 1024

func TestValidateUpload_Size(t *testing.T) {
	t.Run("rejects oversized upload with both sizes in message", func(t *testing.T) {
		c := UploadCandidate{
			Filename:    "huge.jpg",
			Size:        60 * 1024 * 1024,
			ContentType: "image/jpeg",
		}
		verr := validateUpload(c, testMaxSize, testExts)
		if verr == nil {
			t.Fatal("expected rejection for oversized upload")
		}
		if !strings.Contains(verr.Reason, "60.0MB") {
			t.Errorf("expected actual size in message, got %q", verr.Reason)
		}
		if !strings.Contains(verr.Reason, "50.0MB") {
			t.Errorf("expected maximum size in message, got %q", verr.Reason)
		}
	})

	t.Run("accepts upload exactly at the limit", func(t *testing.T) {
		c := UploadCandidate{
			Filename:    "edge.jpg",
			Size:        testMaxSize,
			ContentType: "image/jpeg",
		}
		if verr := validateUpload(c, testMaxSize, testExts); verr != nil {
			t.Errorf("unexpected rejection: %v", verr)
		}
	})

	t.Run("zero declared size is not rejected", func(t *testing.T) {
		c := UploadCandidate{
			Filename:    "stream.jpg",
			Size:        0,
			ContentType: "image/jpeg",
		}
		if verr := validateUpload(c, testMaxSize, testExts); verr != nil {
			t.Errorf("unexpected rejection: %v", verr)
		}
	})
}

func TestValidateUpload_MimeType(t *testing.T) {
	allowed := []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "image/bmp", "image/webp"}
	for _, mime := range allowed {
		t.Run("accepts "+mime, func(t *testing.T) {
			c := UploadCandidate{Filename: "pic.jpg", Size: 1024, ContentType: mime}
			if verr := validateUpload(c, testMaxSize, testExts); verr != nil {
				t.Errorf("unexpected rejection: %v", verr)
			}
		})
	}

	rejected := []string{"application/pdf", "text/html", "image/svg+xml", "video/mp4"}
	for _, mime := range rejected {
		t.Run("rejects "+mime, func(t *testing.T) {
			c := UploadCandidate{Filename: "pic.jpg", Size: 1024, ContentType: mime}
			verr := validateUpload(c, testMaxSize, testExts)
			if verr == nil {
				t.Fatal("expected rejection")
			}
			if !strings.Contains(verr.Reason, mime) {
				t.Errorf("expected MIME type in message, got %q", verr.Reason)
			}
		})
	}
}

func TestValidateUpload_Extension(t *testing.T) {
	t.Run("rejects unrecognized extension without trusted mime", func(t *testing.T) {
		c := UploadCandidate{Filename: "document.pdf", Size: 1024, ContentType: ""}
		verr := validateUpload(c, testMaxSize, testExts)
		if verr == nil {
			t.Fatal("expected rejection")
		}
		if !strings.Contains(verr.Reason, ".pdf") {
			t.Errorf("expected extension in message, got %q", verr.Reason)
		}
	})

	t.Run("tolerates unrecognized extension when mime passed", func(t *testing.T) {
		c := UploadCandidate{Filename: "photo.heic", Size: 1024, ContentType: "image/jpeg"}
		if verr := validateUpload(c, testMaxSize, testExts); verr != nil {
			t.Errorf("unexpected rejection: %v", verr)
		}
	})

	t.Run("tolerates placeholder filenames", func(t *testing.T) {
		for _, name := range []string{"blob", "image", "blob-1234", ""} {
			c := UploadCandidate{Filename: name, Size: 1024, ContentType: ""}
			if verr := validateUpload(c, testMaxSize, testExts); verr != nil {
				t.Errorf("unexpected rejection for %q: %v", name, verr)
			}
		}
	})

	t.Run("rejects filename without any dot", func(t *testing.T) {
		c := UploadCandidate{Filename: "myphoto", Size: 1024, ContentType: ""}
		if verr := validateUpload(c, testMaxSize, testExts); verr == nil {
			t.Fatal("expected rejection")
		}
	})
}

func TestValidateUpload_RuleOrder(t *testing.T) {
	// Size rejection wins over a bad MIME type.
	c := UploadCandidate{
		Filename:    "huge.pdf",
		Size:        100 * 1024 * 1024,
		ContentType: "application/pdf",
	}
	verr := validateUpload(c, testMaxSize, testExts)
	if verr == nil {
		t.Fatal("expected rejection")
	}
	if !strings.Contains(verr.Reason, "exceeds maximum") {
		t.Errorf("expected size rejection first, got %q", verr.Reason)
	}
}

func TestIsPlaceholderName(t *testing.T) {
	placeholders := []string{"", "blob", "Blob", "BLOB", "image", "unknown", "file", "blob:12345", "blobabc"}
	for _, name := range placeholders {
		if !isPlaceholderName(name) {
			t.Errorf("expected %q to be a placeholder", name)
		}
	}

	real := []string{"holiday.jpg", "my-image.png", "bloc.jpg", "imagery.png"}
	for _, name := range real {
		if isPlaceholderName(name) {
			t.Errorf("expected %q to not be a placeholder", name)
		}
	}
}
