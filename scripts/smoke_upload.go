// Smoke test for a running server: posts the same generated file N times
// concurrently, checks every response carries the expected digest, and
// prints latency stats. The digest existence index should end up with
// exactly one row for the file no matter how many uploads race.
//
// Usage:
//
//	go run scripts/smoke_upload.go -url http://localhost:8080 -n 50 -c 8
package main

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/filevault-backend/internal/pkg/httpx"
)

const maxUploadAttempts = 3

type uploadResponse struct {
	Hash     string `json:"hash"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	SavedAt  string `json:"saved_at"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	total := flag.Int("n", 50, "number of uploads")
	concurrency := flag.Int("c", 8, "concurrent uploads")
	sizeKB := flag.Int("size-kb", 64, "generated file size in KiB")
	flag.Parse()

	payload := make([]byte, *sizeKB*1024)
	if _, err := rand.Read(payload); err != nil {
		fmt.Fprintf(os.Stderr, "generate payload: %v\n", err)
		os.Exit(1)
	}
	sum := sha256.Sum256(payload)
	wantDigest := hex.EncodeToString(sum[:])

	client := &http.Client{Timeout: 60 * time.Second}

	var mu sync.Mutex
	latencies := make([]time.Duration, 0, *total)
	var mismatches int

	g := new(errgroup.Group)
	g.SetLimit(*concurrency)
	for i := 0; i < *total; i++ {
		g.Go(func() error {
			start := time.Now()
			res, err := postUpload(client, *baseURL+"/api/upload", "smoke.bin", payload)
			elapsed := time.Since(start)
			if err != nil {
				return err
			}
			mu.Lock()
			latencies = append(latencies, elapsed)
			if res.Hash != wantDigest {
				mismatches++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "upload failed: %v\n", err)
		os.Exit(1)
	}

	if err := verifyExistence(client, *baseURL, wantDigest); err != nil {
		fmt.Fprintf(os.Stderr, "existence check failed: %v\n", err)
		os.Exit(1)
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	fmt.Printf("uploads=%d digest=%s mismatches=%d\n", len(latencies), wantDigest[:16], mismatches)
	fmt.Printf("latency p50=%s p95=%s max=%s\n",
		percentile(latencies, 0.50), percentile(latencies, 0.95), latencies[len(latencies)-1])
	if mismatches > 0 {
		os.Exit(1)
	}
}

func postUpload(client *http.Client, url, filename string, payload []byte) (*uploadResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= maxUploadAttempts; attempt++ {
		resp, err := doUpload(client, url, filename, payload)
		if err != nil {
			if !httpx.IsRetryableError(err) || attempt == maxUploadAttempts {
				return nil, err
			}
			lastErr = err
			time.Sleep(httpx.JitterSleep(200 * time.Millisecond * time.Duration(attempt)))
			continue
		}
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode == http.StatusCreated {
			var out uploadResponse
			if err := json.Unmarshal(raw, &out); err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
			return &out, nil
		}
		lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, raw)
		if !httpx.IsRetryableHTTPStatus(resp.StatusCode) || attempt == maxUploadAttempts {
			return nil, lastErr
		}
		time.Sleep(httpx.RetryAfterDuration(resp, 200*time.Millisecond*time.Duration(attempt), 5*time.Second))
	}
	return nil, lastErr
}

func doUpload(client *http.Client, url, filename string, payload []byte) (*http.Response, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(payload); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return client.Do(req)
}

func verifyExistence(client *http.Client, baseURL, digest string) error {
	reqBody, _ := json.Marshal(map[string]any{"hashes": []string{digest}})
	resp, err := client.Post(baseURL+"/api/hashes/check", "application/json", bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, raw)
	}
	var got map[string]bool
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		return err
	}
	if !got[digest] {
		return fmt.Errorf("digest %s not reported as existing", digest)
	}
	return nil
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
