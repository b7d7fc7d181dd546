package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/jesposito/walkabout/config"
	"github.com/jesposito/walkabout/extractor"
	"github.com/jesposito/walkabout/flights"
	"github.com/jesposito/walkabout/pkg/logger"
)

// Browser-level detection markers.
var (
	captchaMarkers = []string{
		"iframe src=\"https://www.google.com/recaptcha",
		"g-recaptcha",
		"id=\"captcha\"",
		"data-callback=\"onCaptcha\"",
	}
	blockedMarkers = []string{
		"unusual traffic",
		"automated requests",
		"verify you're not a robot",
		"access denied",
	}
	noResultsMarkers = []string{
		"no flights found",
		"no matching flights",
		"try different dates",
		"we couldn't find",
	}
	// Markers that show the results list has rendered, checked in ranked
	// order while waiting for the page.
	priceMarkers = []string{
		"data-gs",
		"pIav2d",
		"dollars\"",
		"jsname=\"IWWDBc\"",
	}
)

// BrowserSource is the headless-browser fallback adapter. Each fetch launches
// a fresh browser and context with anti-automation flags and tears everything
// down regardless of outcome; browser reuse across scrapes cascades failures.
type BrowserSource struct {
	cfg       config.ScraperConfig
	extractor *extractor.Extractor
}

// NewBrowserSource creates the adapter and ensures artifact directories
// exist.
func NewBrowserSource(cfg config.ScraperConfig) *BrowserSource {
	_ = os.MkdirAll(cfg.ScreenshotsDir, 0o755)
	_ = os.MkdirAll(cfg.HTMLSnapshotsDir, 0o755)

	return &BrowserSource{
		cfg:       cfg,
		extractor: extractor.New(),
	}
}

func (s *BrowserSource) Name() string { return SourceBrowser }

// IsAvailable is always true: the browser needs no credentials.
func (s *BrowserSource) IsAvailable() bool { return true }

func (s *BrowserSource) Fetch(ctx context.Context, q flights.Query, artifactKey int64) FetchResult {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		chromedp.WindowSize(1920, 1080),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	navTimeout := s.cfg.NavigateTimeout
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}
	navCtx, cancelNav := context.WithTimeout(browserCtx, navTimeout)
	defer cancelNav()

	searchURL := flights.BuildURL(q)

	var html string
	err := chromedp.Run(navCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": "en-NZ,en;q=0.9"}),
		chromedp.Navigate(searchURL),
		chromedp.Sleep(3*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		reason := FailureTimeout
		if navCtx.Err() == nil {
			reason = FailureNetworkError
		}
		return s.failure(browserCtx, artifactKey, reason,
			fmt.Sprintf("navigation failed: %v", err))
	}

	lower := strings.ToLower(html)
	if containsAny(html, captchaMarkers) {
		return s.failure(browserCtx, artifactKey, FailureCaptcha,
			"captcha detected, manual intervention may be required")
	}
	if containsAny(lower, blockedMarkers) {
		return s.failure(browserCtx, artifactKey, FailureBlocked,
			"rate limiting or block detected")
	}

	// Give the results list a few more beats to render if no price marker is
	// visible yet.
	for attempt := 0; attempt < 3 && !containsAny(html, priceMarkers); attempt++ {
		if err := chromedp.Run(browserCtx,
			chromedp.Sleep(2*time.Second),
			chromedp.OuterHTML("html", &html),
		); err != nil {
			break
		}
	}

	found, err := s.extractor.Extract(html)
	if err != nil {
		return s.failure(browserCtx, artifactKey, FailureUnknown,
			fmt.Sprintf("extraction error: %v", err))
	}

	if len(found) == 0 {
		if containsAny(strings.ToLower(html), noResultsMarkers) {
			return s.failure(browserCtx, artifactKey, FailureNoResults,
				"no flights found for this route and date combination")
		}
		return s.failure(browserCtx, artifactKey, FailureLayoutChange,
			"no prices extracted by any strategy, page structure may have changed")
	}

	prices := make([]Price, 0, len(found))
	for _, f := range found {
		raw, _ := json.Marshal(map[string]any{
			"price_strategy":           f.PriceStrategy,
			"price_confidence":         f.PriceConfidence,
			"airline_strategy":         f.AirlineStrategy,
			"airline_confidence":       f.AirlineConfidence,
			"stops_confidence":         f.StopsConfidence,
			"duration_confidence":      f.DurationConfidence,
			"correlation_confidence":   f.CorrelationConfidence,
			"cross_validation_penalty": f.CrossValidationPenalty,
			"extraction_method":        f.ExtractionMethod,
		})
		prices = append(prices, Price{
			Amount:           f.Price,
			Currency:         q.Currency,
			Airline:          f.Airline,
			Stops:            f.Stops,
			DurationMinutes:  f.DurationMinutes,
			BookingURL:       searchURL,
			Source:           s.Name(),
			Confidence:       f.OverallConfidence,
			ExtractionMethod: f.ExtractionMethod,
			LayoverAirports:  f.LayoverAirports,
			RawData:          string(raw),
		})
	}

	logger.Info("Browser scrape extracted flights",
		"route", q.Route(), "flights", len(prices), "method", found[0].ExtractionMethod)
	return FetchResult{Success: true, Prices: prices, Source: s.Name()}
}

// Failure reason values shared with the health tracker.
const (
	FailureCaptcha      = "captcha"
	FailureTimeout      = "timeout"
	FailureLayoutChange = "layout_change"
	FailureNoResults    = "no_results"
	FailureBlocked      = "blocked"
	FailureNetworkError = "network_error"
	FailureUnknown      = "unknown"
)

// failure captures artifacts best-effort and builds the classified result.
// Artifact-write failures never mask the originating outcome.
func (s *BrowserSource) failure(browserCtx context.Context, artifactKey int64, reason, message string) FetchResult {
	screenshotPath, htmlPath := s.saveArtifacts(browserCtx, artifactKey, reason)
	return FetchResult{
		Source:         s.Name(),
		Err:            message,
		FailureReason:  reason,
		ScreenshotPath: screenshotPath,
		HTMLPath:       htmlPath,
	}
}

func (s *BrowserSource) saveArtifacts(browserCtx context.Context, artifactKey int64, reason string) (string, string) {
	prefix := fmt.Sprintf("%d_%s_%s", artifactKey, time.Now().UTC().Format("20060102_150405"), reason)

	artifactCtx, cancel := context.WithTimeout(browserCtx, 10*time.Second)
	defer cancel()

	var screenshotPath, htmlPath string

	var shot []byte
	if err := chromedp.Run(artifactCtx, chromedp.FullScreenshot(&shot, 80)); err == nil {
		path := filepath.Join(s.cfg.ScreenshotsDir, prefix+".png")
		if writeErr := os.WriteFile(path, shot, 0o644); writeErr == nil {
			screenshotPath = path
		}
	}

	var html string
	if err := chromedp.Run(artifactCtx, chromedp.OuterHTML("html", &html)); err == nil {
		path := filepath.Join(s.cfg.HTMLSnapshotsDir, prefix+".html")
		if writeErr := os.WriteFile(path, []byte(html), 0o644); writeErr == nil {
			htmlPath = path
		}
	}

	return screenshotPath, htmlPath
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
