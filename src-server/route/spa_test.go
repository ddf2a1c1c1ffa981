package route_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"hearth/src-server/route"
	"hearth/src-server/utils"
)

// concurrent fallback requests must each get the complete index document
func TestSPAFallbackServesFullIndex(t *testing.T) {
	dir := t.TempDir()
	index := "<!doctype html><html><body>hearth</body></html>"
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(index), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("STATIC_WEB_CLIENT_DIR", dir)
	t.Setenv("TIMEZONE", "UTC")

	as := &utils.AppState{Config: utils.NewConfig()}
	muxer := http.NewServeMux()
	route.SPA(muxer, as)
	server := httptest.NewServer(muxer)
	t.Cleanup(server.Close)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Get(server.URL + "/no-such-page")
			if err != nil {
				errs <- err
				return
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				errs <- err
				return
			}
			if string(body) != index {
				errs <- fmt.Errorf("truncated or corrupt fallback body: %q", body)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
