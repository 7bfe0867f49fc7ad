package storage

import "testing"

func TestValidateSize(t *testing.T) {
	cases := []struct {
		size int64
		want bool
	}{
		{0, false},
		{-1, false},
		{1, true},
		{MaxUploadSize, true},
		{MaxUploadSize + 1, false},
	}
	for _, tc := range cases {
		if got := ValidateSize(tc.size); got != tc.want {
			t.Errorf("ValidateSize(%d) = %v, want %v", tc.size, got, tc.want)
		}
	}
}

func TestValidateFileType(t *testing.T) {
	allowed := []string{"photo.jpg", "doc.PDF", "clip.mp4", "notes.txt"}
	for _, name := range allowed {
		if !ValidateFileType(name) {
			t.Errorf("ValidateFileType(%q) = false, want true", name)
		}
	}
	rejected := []string{"script.sh", "archive.zip", "binary.exe", "noext"}
	for _, name := range rejected {
		if ValidateFileType(name) {
			t.Errorf("ValidateFileType(%q) = true, want false", name)
		}
	}
}

func TestContentTypeForFilename(t *testing.T) {
	if got := ContentTypeForFilename("a.png"); got != "image/png" {
		t.Errorf("ContentTypeForFilename(a.png) = %q", got)
	}
	if got := ContentTypeForFilename("a.unknown"); got != "application/octet-stream" {
		t.Errorf("ContentTypeForFilename(a.unknown) = %q", got)
	}
}

func TestObjectKeys(t *testing.T) {
	if got := AttachmentKey("club1", "msg1", "file.png"); got != "attachments/club1/msg1/file.png" {
		t.Errorf("AttachmentKey = %q", got)
	}
	if got := ProofKey("task1", "proof.pdf"); got != "proofs/task1/proof.pdf" {
		t.Errorf("ProofKey = %q", got)
	}
	// Path components in the filename must not escape the prefix.
	if got := AttachmentKey("club1", "msg1", "../../../etc/passwd"); got != "attachments/club1/msg1/passwd" {
		t.Errorf("AttachmentKey with traversal = %q", got)
	}
}
