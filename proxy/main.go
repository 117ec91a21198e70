// Command proxy is a small map-tile proxy. It serves Earth Engine map
// tiles to browsers without exposing the API credential: the server
// holds the token, issues HMAC-signed short-lived grants per map ID,
// and proxies tile fetches upstream.
//
// Deploy it next to a web map when the tiles come from a private map ID.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"embed"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/verdantlabs/earthengine-cli/internal/auth"
	"github.com/verdantlabs/earthengine-cli/internal/ee"
)

//go:embed templates/*.html
var templatesFS embed.FS

var templates *template.Template

// Rate limiter - simple in-memory implementation
type rateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	r := &rateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}

	// Start cleanup goroutine to prevent memory leak
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			r.cleanup()
		}
	}()

	return r
}

func (r *rateLimiter) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.window * 2)
	for ip, times := range r.requests {
		if len(times) == 0 {
			delete(r.requests, ip)
			continue
		}
		if times[len(times)-1].Before(cutoff) {
			delete(r.requests, ip)
		}
	}
}

func (r *rateLimiter) allow(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[ip] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[ip] = recent
		return false
	}

	r.requests[ip] = append(recent, now)
	return true
}

var limiter = newRateLimiter(600, time.Minute) // tiles are chatty; 600/min per IP

// Tile grants. The server signs a grant covering one map ID with an
// expiration; the viewer appends it to every tile request so the proxy
// never serves arbitrary map IDs to anonymous callers.
type tileGrant struct {
	MapID     string `json:"m"`
	Timestamp int64  `json:"t"`
	Signature string `json:"sig"`
}

const grantMaxAge = 30 * time.Minute

func getSigningKey() []byte {
	key := os.Getenv("TILE_SIGNING_KEY")
	if key == "" {
		key = "dev-signing-key" // Fallback for local dev
	}
	return []byte(key)
}

func signGrant(mapID string) string {
	now := time.Now().Unix()
	data := fmt.Sprintf("%s|%d", mapID, now)

	h := hmac.New(sha256.New, getSigningKey())
	h.Write([]byte(data))
	sig := base64.URLEncoding.EncodeToString(h.Sum(nil))

	grant := tileGrant{
		MapID:     mapID,
		Timestamp: now,
		Signature: sig,
	}

	grantJSON, _ := json.Marshal(grant)
	return base64.URLEncoding.EncodeToString(grantJSON)
}

func verifyGrant(encoded, mapID string) error {
	grantJSON, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("invalid grant encoding")
	}

	var grant tileGrant
	if err := json.Unmarshal(grantJSON, &grant); err != nil {
		return fmt.Errorf("invalid grant format")
	}

	if grant.MapID != mapID {
		return fmt.Errorf("grant does not cover this map")
	}

	if time.Since(time.Unix(grant.Timestamp, 0)) > grantMaxAge {
		return fmt.Errorf("grant expired")
	}

	data := fmt.Sprintf("%s|%d", grant.MapID, grant.Timestamp)
	h := hmac.New(sha256.New, getSigningKey())
	h.Write([]byte(data))
	expectedSig := base64.URLEncoding.EncodeToString(h.Sum(nil))

	if !hmac.Equal([]byte(grant.Signature), []byte(expectedSig)) {
		return fmt.Errorf("invalid grant signature")
	}

	return nil
}

func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (set by the usual load balancers)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}

	// Fallback to RemoteAddr; handle both IPv4 and bracketed IPv6.
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}

	return r.RemoteAddr
}

type proxyServer struct {
	client *ee.Client
	mapID  string // map the viewer shows; set with MAP_ID
}

func newProxyServer() (*proxyServer, error) {
	creds, _, err := auth.Resolve("")
	if err != nil {
		return nil, fmt.Errorf("no credentials: %w (set EARTHENGINE_TOKEN or run 'earthengine authenticate')", err)
	}

	client := ee.NewClient(auth.TokenSource(creds, nil))
	if base := os.Getenv("EARTHENGINE_TILE_URL"); base != "" {
		client.WithTileBaseURL(base)
	}
	if project := os.Getenv("EARTHENGINE_PROJECT"); project != "" {
		client.WithProject(project)
	}

	return &proxyServer{
		client: client,
		mapID:  os.Getenv("MAP_ID"),
	}, nil
}

func main() {
	var err error
	templates, err = template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}

	srv, err := newProxyServer()
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	http.HandleFunc("/", srv.handleIndex)
	http.HandleFunc("/grant", srv.handleGrant)
	http.HandleFunc("/tiles/", srv.handleTile)
	http.HandleFunc("/health", handleHealth)

	log.Printf("Starting server on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}

func (s *proxyServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	mapID := r.URL.Query().Get("mapid")
	if mapID == "" {
		mapID = s.mapID
	}
	if mapID == "" {
		renderError(w, "No map configured. Set MAP_ID or pass ?mapid=.", http.StatusBadRequest)
		return
	}

	data := map[string]interface{}{
		"MapID": mapID,
		"Grant": signGrant(mapID),
	}
	if err := templates.ExecuteTemplate(w, "viewer.html", data); err != nil {
		log.Printf("Template error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleGrant issues a fresh signed grant for the configured map so
// long-lived viewer pages can renew before expiry.
func (s *proxyServer) handleGrant(w http.ResponseWriter, r *http.Request) {
	ip := getClientIP(r)
	if !limiter.allow(ip) {
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	mapID := r.URL.Query().Get("mapid")
	if mapID == "" {
		mapID = s.mapID
	}
	if mapID == "" {
		http.Error(w, "Missing mapid", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"mapid": mapID,
		"grant": signGrant(mapID),
	})
}

// handleTile proxies /tiles/<mapid>/<z>/<x>/<y>?grant=... upstream.
func (s *proxyServer) handleTile(w http.ResponseWriter, r *http.Request) {
	ip := getClientIP(r)
	if !limiter.allow(ip) {
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	mapID, z, x, y, err := parseTilePath(r.URL.Path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := verifyGrant(r.URL.Query().Get("grant"), mapID); err != nil {
		log.Printf("Grant verification failed: %v", err)
		http.Error(w, "Invalid or expired grant", http.StatusForbidden)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	tileURL := s.client.TileURL(&ee.MapID{MapID: mapID}, x, y, z)
	body, err := s.client.FetchBytes(ctx, tileURL)
	if err != nil {
		log.Printf("Tile fetch failed: %v", err)
		http.Error(w, "Upstream tile fetch failed", http.StatusBadGateway)
		return
	}
	defer func() { _ = body.Close() }()

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if _, err := io.Copy(w, body); err != nil {
		log.Printf("Tile write failed: %v", err)
	}
}

// parseTilePath splits /tiles/<mapid>/<z>/<x>/<y>. Map IDs contain no
// slashes, so the split is unambiguous.
func parseTilePath(path string) (mapID string, z, x, y int, err error) {
	rest := strings.TrimPrefix(path, "/tiles/")
	parts := strings.Split(rest, "/")
	if len(parts) != 4 {
		return "", 0, 0, 0, fmt.Errorf("expected /tiles/<mapid>/<z>/<x>/<y>")
	}

	mapID = parts[0]
	if mapID == "" {
		return "", 0, 0, 0, fmt.Errorf("missing map id")
	}

	coords := make([]int, 3)
	for i, part := range parts[1:] {
		v, convErr := strconv.Atoi(part)
		if convErr != nil {
			return "", 0, 0, 0, fmt.Errorf("invalid tile coordinate %q", part)
		}
		coords[i] = v
	}
	z, x, y = coords[0], coords[1], coords[2]

	if z < 0 || z > 24 {
		return "", 0, 0, 0, fmt.Errorf("zoom out of range")
	}
	if y < 0 || y >= 1<<z {
		return "", 0, 0, 0, fmt.Errorf("tile y out of range for zoom %d", z)
	}

	return mapID, z, x, y, nil
}

func renderError(w http.ResponseWriter, message string, statusCode int) {
	w.WriteHeader(statusCode)
	data := map[string]interface{}{
		"Error": message,
	}
	if err := templates.ExecuteTemplate(w, "error.html", data); err != nil {
		log.Printf("Template error: %v", err)
		http.Error(w, message, statusCode)
	}
}
