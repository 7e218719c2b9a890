package schedule

import (
	"context"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/quebec-alerts/alerts-api/internal/models"
)

const (
	userAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	fieldPrefix    = "ctl00$ctl00$contenu$texte_page$ucInfoCollecteRechercheAdresse$RechercheAdresse$"
	postalField    = fieldPrefix + "txtCodePostal"
	searchButton   = fieldPrefix + "BtnCodePostal"
	addressField   = fieldPrefix + "ddChoix"
	continueButton = fieldPrefix + "btnChoix"
)

var (
	viewStateRe  = regexp.MustCompile(`id="__VIEWSTATE"\s+value="([^"]*)"`)
	generatorRe  = regexp.MustCompile(`id="__VIEWSTATEGENERATOR"\s+value="([^"]*)"`)
	validationRe = regexp.MustCompile(`id="__EVENTVALIDATION"\s+value="([^"]*)"`)
	dropdownRe   = regexp.MustCompile(`(?is)<select[^>]*name="` + regexp.QuoteMeta(addressField) + `"[^>]*>(.*?)</select>`)
	optionRe     = regexp.MustCompile(`<option[^>]*value="([^"]+)"`)
	tagRe        = regexp.MustCompile(`<[^>]*>`)

	prochaineRe = regexp.MustCompile(`prochaine collecte\s*:\s*(\wé?\w*)\s+\d+`)
	jourRe      = regexp.MustCompile(`jour de collecte\s*:\s*(\wé?\w*)`)
	summerRe    = regexp.MustCompile(`1x/semaine\)\s*:\s*(\wé?\w*)`)
)

// French day names to the English values stored on zones.
var dayMapping = map[string]string{
	"lundi":    "monday",
	"mardi":    "tuesday",
	"mercredi": "wednesday",
	"jeudi":    "thursday",
	"vendredi": "friday",
	"samedi":   "saturday",
	"dimanche": "sunday",
}

// Ordered longest-first so "impaires" wins over "paires" as a substring.
var weekMapping = []struct{ french, english string }{
	{"impaires", models.ParityOdd},
	{"impaire", models.ParityOdd},
	{"paires", models.ParityEven},
	{"paire", models.ParityEven},
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// InfoCollecteClient scrapes the city's Info-Collecte page for a postal
// code's collection schedule. The page is an ASP.NET form, so a lookup is a
// GET for the hidden form fields, a POST with the postal code and, when the
// code maps to several addresses, a second POST selecting the first one.
//
// Requests are rate limited through a struct-held timestamp; clock and sleep
// are injectable fields so tests never wait.
type InfoCollecteClient struct {
	baseURL      string
	client       HTTPClient
	logger       *log.Logger
	rateInterval time.Duration

	mu          sync.Mutex
	lastRequest time.Time
	now         func() time.Time
	sleep       func(time.Duration)
}

func NewInfoCollecteClient(
	baseURL string,
	client HTTPClient,
	logger *log.Logger,
	rateInterval time.Duration,
) *InfoCollecteClient {
	return &InfoCollecteClient{
		baseURL:      baseURL,
		client:       client,
		logger:       logger,
		rateInterval: rateInterval,
		now:          time.Now,
		sleep:        time.Sleep,
	}
}

// Fetch implements Fetcher against the live site. Every call is a live
// scrape, so forceRefresh is meaningless at this layer.
func (c *InfoCollecteClient) Fetch(ctx context.Context, postalCode string, _ bool) (models.RawSchedule, error) {
	formatted := formatPostalCode(postalCode)

	c.waitForRateLimit()
	defer func() {
		c.mu.Lock()
		c.lastRequest = c.now()
		c.mu.Unlock()
	}()

	page, err := c.search(ctx, formatted)
	if err != nil {
		return models.RawSchedule{}, err
	}

	schedule, err := ParseScheduleHTML(page)
	if err != nil {
		return models.RawSchedule{}, fmt.Errorf("parse schedule for %s: %w", formatted, err)
	}
	return schedule, nil
}

func (c *InfoCollecteClient) search(ctx context.Context, postalCode string) (string, error) {
	body, err := c.do(ctx, http.MethodGet, nil)
	if err != nil {
		return "", fmt.Errorf("load search form: %w", err)
	}

	fields, ok := extractFormFields(body)
	if !ok {
		return "", fmt.Errorf("no __VIEWSTATE in search form")
	}

	fields.Set(postalField, postalCode)
	fields.Set(searchButton, "Rechercher")
	body, err = c.do(ctx, http.MethodPost, fields)
	if err != nil {
		return "", fmt.Errorf("postal code search: %w", err)
	}

	// Multiple matching addresses come back as a dropdown; any of them shares
	// the postal code's schedule, so pick the first.
	address := extractFirstAddress(body)
	if address == "" {
		return body, nil
	}

	fields, ok = extractFormFields(body)
	if !ok {
		c.logger.Println("no __VIEWSTATE on address selection page, parsing as-is")
		return body, nil
	}

	fields.Set(postalField, postalCode)
	fields.Set(addressField, address)
	fields.Set(continueButton, "Poursuivre")
	body, err = c.do(ctx, http.MethodPost, fields)
	if err != nil {
		return "", fmt.Errorf("address selection: %w", err)
	}
	return body, nil
}

func (c *InfoCollecteClient) do(ctx context.Context, method string, form url.Values) (string, error) {
	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL, reqBody)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "fr-CA,fr;q=0.9,en;q=0.8")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Println("failed to close response body:", err)
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("info-collecte status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (c *InfoCollecteClient) waitForRateLimit() {
	c.mu.Lock()
	last := c.lastRequest
	c.mu.Unlock()

	if last.IsZero() {
		return
	}
	if elapsed := c.now().Sub(last); elapsed < c.rateInterval {
		wait := c.rateInterval - elapsed
		c.logger.Printf("rate limiting info-collecte requests, waiting %s", wait)
		c.sleep(wait)
	}
}

// extractFormFields pulls the hidden ASP.NET state inputs the server expects
// echoed back on every POST.
func extractFormFields(page string) (url.Values, bool) {
	vs := viewStateRe.FindStringSubmatch(page)
	if vs == nil {
		return nil, false
	}

	fields := url.Values{}
	fields.Set("__VIEWSTATE", vs[1])
	if m := generatorRe.FindStringSubmatch(page); m != nil {
		fields.Set("__VIEWSTATEGENERATOR", m[1])
	}
	if m := validationRe.FindStringSubmatch(page); m != nil {
		fields.Set("__EVENTVALIDATION", m[1])
	}
	return fields, true
}

func extractFirstAddress(page string) string {
	m := dropdownRe.FindStringSubmatch(page)
	if m == nil {
		return ""
	}
	for _, opt := range optionRe.FindAllStringSubmatch(m[1], -1) {
		if opt[1] != "" {
			return opt[1]
		}
	}
	return ""
}

// ParseScheduleHTML extracts the garbage weekday and recycling parity from an
// Info-Collecte result page. The garbage day is required; the parity may come
// back empty when the page only says "every 2 weeks" without naming them.
func ParseScheduleHTML(page string) (models.RawSchedule, error) {
	text := strings.ToLower(html.UnescapeString(tagRe.ReplaceAllString(page, " ")))

	day := findGarbageDay(text)
	if day == "" {
		return models.RawSchedule{}, fmt.Errorf("no collection day found in page")
	}

	return models.RawSchedule{
		GarbageDay:    day,
		RecyclingWeek: findRecyclingWeek(text),
	}, nil
}

func findGarbageDay(text string) string {
	for _, re := range []*regexp.Regexp{prochaineRe, jourRe} {
		if m := re.FindStringSubmatch(text); m != nil {
			if day, ok := dayMapping[m[1]]; ok {
				return day
			}
		}
	}

	// Day mentioned in the same sentence as "ordures"/"déchets".
	for french, english := range dayMapping {
		if !strings.Contains(text, french) {
			continue
		}
		before := regexp.MustCompile(`(?:ordures|déchets)[^.]*` + french)
		after := regexp.MustCompile(french + `[^.]*(?:ordures|déchets)`)
		if before.MatchString(text) || after.MatchString(text) {
			return english
		}
	}

	// Summer schedule variant: "(1x/semaine) : mardi".
	if m := summerRe.FindStringSubmatch(text); m != nil {
		if day, ok := dayMapping[m[1]]; ok {
			return day
		}
	}
	return ""
}

func findRecyclingWeek(text string) string {
	for _, w := range weekMapping {
		if strings.Contains(text, w.french) {
			return w.english
		}
	}
	// Bi-weekly with no stated parity: record the cadence, resolver treats it
	// as unresolved.
	if strings.Contains(text, "chaque 2 semaines") || strings.Contains(text, "aux 2 semaines") {
		return "biweekly"
	}
	return ""
}

// formatPostalCode renders the site's expected "G1R 2K8" form.
func formatPostalCode(code string) string {
	normalized := models.NormalizePostalCode(code)
	if len(normalized) == 6 {
		return normalized[:3] + " " + normalized[3:]
	}
	return normalized
}
