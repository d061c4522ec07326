package vault

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/yungbote/filevault-backend/internal/platform/logger"
)

// SHA-256 of ASCII "Hello, World!" with no trailing newline.
const helloWorldDigest = "dffd6021bb2bd5b0af676290809ec3a53191dd81c7f70a4b28688a362182986f"

func testVault(t *testing.T, maxBytes int64) Vault {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	v, err := NewLocalVault(t.TempDir(), maxBytes, log)
	if err != nil {
		t.Fatalf("init vault: %v", err)
	}
	return v
}

func TestSaveHelloWorld(t *testing.T) {
	t.Parallel()
	v := testVault(t, 25<<20)

	res, err := v.Save(context.Background(), "greeting.txt", strings.NewReader("Hello, World!"), 13)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if res.Digest != helloWorldDigest {
		t.Fatalf("digest=%s want=%s", res.Digest, helloWorldDigest)
	}
	if res.Size != 13 {
		t.Fatalf("size=%d want=13", res.Size)
	}

	keyPattern := regexp.MustCompile(`^uploads/\d{4}/\d{2}/\d{2}/` + res.Digest[:16] + `_greeting\.txt$`)
	if !keyPattern.MatchString(res.Key) {
		t.Fatalf("key=%q does not match %v", res.Key, keyPattern)
	}

	rc, err := v.Open(context.Background(), res.Key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(got) != "Hello, World!" {
		t.Fatalf("content=%q want=%q", got, "Hello, World!")
	}
}

func TestSaveIdempotentForIdenticalContent(t *testing.T) {
	t.Parallel()
	v := testVault(t, 25<<20)
	ctx := context.Background()

	first, err := v.Save(ctx, "a.bin", bytes.NewReader([]byte("same bytes")), -1)
	if err != nil {
		t.Fatalf("first Save: %v", err)
	}
	second, err := v.Save(ctx, "a.bin", bytes.NewReader([]byte("same bytes")), -1)
	if err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if first.Digest != second.Digest {
		t.Fatalf("digests differ: %s vs %s", first.Digest, second.Digest)
	}
	if first.Key != second.Key {
		t.Fatalf("keys differ: %s vs %s", first.Key, second.Key)
	}

	// Both attempts resolve to one committed artifact and no leftover
	// temporaries.
	dir := filepath.Dir(first.Location)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read day dir: %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("day dir entries=%v want exactly one artifact", names)
	}
}

func TestSaveRejectsOversizeDeclaredSize(t *testing.T) {
	t.Parallel()
	v := testVault(t, 64)

	_, err := v.Save(context.Background(), "big.bin", strings.NewReader("never read"), 65)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("err=%v want ErrFileTooLarge", err)
	}
}

func TestSaveEnforcesCeilingDuringCopy(t *testing.T) {
	t.Parallel()
	v := testVault(t, 64)
	ctx := context.Background()

	// Exactly at the ceiling is accepted.
	atLimit := bytes.Repeat([]byte("x"), 64)
	if _, err := v.Save(ctx, "limit.bin", bytes.NewReader(atLimit), -1); err != nil {
		t.Fatalf("Save at ceiling: %v", err)
	}

	// One byte over is rejected even when the declared size lies.
	over := bytes.Repeat([]byte("y"), 65)
	_, err := v.Save(ctx, "over.bin", bytes.NewReader(over), 10)
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("err=%v want ErrFileTooLarge", err)
	}
}

func TestSaveFailureLeavesNoFinalArtifact(t *testing.T) {
	t.Parallel()
	v := testVault(t, 1<<20)
	lv := v.(*localVault)

	r := io.MultiReader(strings.NewReader("partial"), errReader{})
	_, err := v.Save(context.Background(), "broken.bin", r, -1)
	if err == nil {
		t.Fatalf("expected error from failing stream")
	}

	var finals []string
	walkErr := filepath.Walk(lv.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && !strings.HasPrefix(info.Name(), ".tmp-") {
			finals = append(finals, p)
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk root: %v", walkErr)
	}
	if len(finals) != 0 {
		t.Fatalf("final-path artifacts after failed save: %v", finals)
	}
}

func TestSanitizeName(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{"clean-name_1.txt", "clean-name_1.txt"},
		{"with space.png", "with_space.png"},
		{"семейное.jpg", "________.jpg"},
		{"a/b\\c.txt", "a_b_c.txt"},
		{"shell;$(rm).sh", "shell___rm_.sh"},
	}
	for _, tc := range cases {
		if got := SanitizeName(tc.in); got != tc.want {
			t.Fatalf("SanitizeName(%q)=%q want=%q", tc.in, got, tc.want)
		}
	}
}

func TestArtifactNameSanitizesStemAndExt(t *testing.T) {
	t.Parallel()
	digest := strings.Repeat("ab", 32)
	got := artifactName(digest, "my photo (1).jp g")
	want := digest[:16] + "_my_photo__1_.jp_g"
	if got != want {
		t.Fatalf("artifactName=%q want=%q", got, want)
	}
}

func TestSaveHeadCapturesLeadingBytes(t *testing.T) {
	t.Parallel()
	v := testVault(t, 1<<20)

	payload := append([]byte("HEAD"), bytes.Repeat([]byte("z"), headProbeSize)...)
	res, err := v.Save(context.Background(), "h.bin", bytes.NewReader(payload), -1)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if len(res.Head) != headProbeSize {
		t.Fatalf("head len=%d want=%d", len(res.Head), headProbeSize)
	}
	if !bytes.HasPrefix(res.Head, []byte("HEAD")) {
		t.Fatalf("head does not start with payload prefix")
	}
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) {
	return 0, fmt.Errorf("stream aborted")
}
