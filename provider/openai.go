package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/minios-linux/wrapkit/langmeta"
)

// DefaultSystemPrompt is sent with every batch. {{targetLang}} is replaced
// with the target language name.
const DefaultSystemPrompt = `You are a professional translator specializing in software and product localization. You are translating UI strings for a web application.

IMPORTANT TRANSLATION PRINCIPLES:
- Translate for NATURALNESS and FLUENCY in {{targetLang}}, not word-for-word
- Use established IT terminology in {{targetLang}}
- Keep the tone of the original: short labels stay short, sentences stay sentences
- Each entry may carry a key in parentheses; use it only as context, never translate it

TECHNICAL REQUIREMENTS:
- Return ONLY a JSON array of translated strings, one for each input entry, in the same order.
- Preserve placeholders exactly as-is ({name}, {{count}}, %s, %d).
- Preserve leading/trailing whitespace and punctuation patterns.
- Keep brand names and proper nouns unchanged.
- Return ONLY the JSON array, no explanations or markdown code blocks.`

// OpenAIConfig configures an OpenAI-compatible chat completions endpoint
// (OpenAI, Groq, Ollama, OpenRouter, LM Studio ...).
type OpenAIConfig struct {
	// Name is used in logs.
	Name string
	// BaseURL is the API base, e.g. https://api.openai.com/v1.
	BaseURL string
	// APIKey is sent as a bearer token when set.
	APIKey string
	// Model is the model identifier.
	Model string
	// Proxy is an optional HTTP/HTTPS proxy URL; HTTP(S)_PROXY is used otherwise.
	Proxy string
	// Timeout is the per-request timeout. Default: 120s.
	Timeout time.Duration
	// MaxRetries bounds retries on 429, 5xx and transport errors. Default: 3.
	MaxRetries int
	// RetryBackoff is the base of the exponential backoff. Default: 1s.
	RetryBackoff time.Duration
	// Temperature is the sampling temperature. Default: 0.3.
	Temperature float64
	// SystemPrompt overrides DefaultSystemPrompt.
	SystemPrompt string
}

func (c *OpenAIConfig) effectiveTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 120 * time.Second
}

func (c *OpenAIConfig) effectiveMaxRetries() int {
	if c.MaxRetries > 0 {
		return c.MaxRetries
	}
	return 3
}

func (c *OpenAIConfig) effectiveBackoff() time.Duration {
	if c.RetryBackoff > 0 {
		return c.RetryBackoff
	}
	return time.Second
}

func (c *OpenAIConfig) effectiveTemperature() float64 {
	if c.Temperature > 0 {
		return c.Temperature
	}
	return 0.3
}

// OpenAI is a Provider backed by a chat completions endpoint. One batch is
// one API call per source/target locale pair.
type OpenAI struct {
	cfg    OpenAIConfig
	client *http.Client
	log    *zap.Logger
}

// NewOpenAI validates cfg and returns a client.
func NewOpenAI(cfg OpenAIConfig, log *zap.Logger) (*OpenAI, error) {
	if cfg.BaseURL == "" {
		return nil, errors.WithHint(errors.New("provider base URL is not set"),
			"set provider.base_url in .wrapkit.yaml or pass --base-url")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, errors.Wrapf(err, "invalid provider base URL %q", cfg.BaseURL)
	}
	if cfg.Model == "" {
		return nil, errors.WithHint(errors.New("provider model is not set"),
			"set provider.model in .wrapkit.yaml or pass --model")
	}
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OpenAI{
		cfg:    cfg,
		client: makeHTTPClient(cfg.Proxy, cfg.effectiveTimeout()),
		log:    log.With(zap.String("provider", cfg.Name)),
	}, nil
}

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// Translate implements Provider.
func (p *OpenAI) Translate(ctx context.Context, req Request) Result {
	results, err := p.TranslateBatch(ctx, []Request{req})
	if err != nil {
		return Failed(err)
	}
	return results[0]
}

// TranslateBatch implements Provider. Requests are grouped by locale pair;
// a group whose call fails marks its requests failed. The batch as a whole
// fails only when every group failed.
func (p *OpenAI) TranslateBatch(ctx context.Context, reqs []Request) ([]Result, error) {
	results := make([]Result, len(reqs))
	if len(reqs) == 0 {
		return results, nil
	}

	type pair struct{ src, tgt string }
	var order []pair
	groups := make(map[pair][]int)
	for i, r := range reqs {
		k := pair{r.SourceLocale, r.TargetLocale}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	var lastErr error
	failedGroups := 0
	for _, k := range order {
		idx := groups[k]
		batch := make([]Request, len(idx))
		for j, i := range idx {
			batch[j] = reqs[i]
		}

		texts, err := p.translateGroup(ctx, batch)
		if err != nil {
			p.log.Warn("batch failed",
				zap.String("source_locale", k.src),
				zap.String("target_locale", k.tgt),
				zap.Int("entries", len(batch)),
				zap.Error(err))
			failedGroups++
			lastErr = err
			for _, i := range idx {
				results[i] = Failed(err)
			}
			continue
		}
		for j, i := range idx {
			if strings.TrimSpace(texts[j]) == "" {
				results[i] = Failed(errors.Newf("empty translation for %q", reqs[i].Context))
				continue
			}
			results[i] = Succeeded(texts[j])
		}
	}

	if failedGroups == len(order) {
		return nil, errors.Mark(lastErr, ErrProvider)
	}
	return results, nil
}

func (p *OpenAI) translateGroup(ctx context.Context, batch []Request) ([]string, error) {
	src := langmeta.Resolve(batch[0].SourceLocale)
	tgt := langmeta.Resolve(batch[0].TargetLocale)

	prompt := p.cfg.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	prompt = strings.ReplaceAll(prompt, "{{targetLang}}", tgt.Name)

	var user strings.Builder
	user.WriteString(fmt.Sprintf("Translate these UI strings from %s (%s) to %s (%s):\n\n", src.Name, src.Code, tgt.Name, tgt.Code))
	for i, r := range batch {
		user.WriteString(fmt.Sprintf("%d. %s\n", i+1, escapeForPrompt(r.SourceText)))
		if r.Context != "" {
			user.WriteString(fmt.Sprintf("   (key: %s)\n", r.Context))
		}
	}
	user.WriteString(fmt.Sprintf("\nReturn a JSON array with exactly %d translated strings.", len(batch)))

	text, err := p.call(ctx, prompt, user.String())
	if err != nil {
		return nil, err
	}
	return parseTranslations(text, len(batch))
}

func (p *OpenAI) endpoint() string {
	base := strings.TrimRight(p.cfg.BaseURL, "/")
	if strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	return base + "/chat/completions"
}

func buildChatRequest(model, systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
	}
	return json.Marshal(req)
}

// call posts one chat request, retrying transport errors, 429 and 5xx.
func (p *OpenAI) call(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := buildChatRequest(p.cfg.Model, systemPrompt, userPrompt, p.cfg.effectiveTemperature())
	if err != nil {
		return "", errors.Wrap(err, "building request")
	}
	endpoint := p.endpoint()
	maxRetries := p.cfg.effectiveMaxRetries()

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return "", errors.Wrap(err, "creating request")
		}
		req.Header.Set("Content-Type", "application/json")
		if p.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
		}

		p.log.Debug("POST", zap.String("endpoint", endpoint), zap.Int("attempt", attempt+1))

		resp, err := p.client.Do(req)
		if err != nil {
			if attempt < maxRetries {
				if err := sleep(ctx, p.backoff(attempt)); err != nil {
					return "", err
				}
				continue
			}
			return "", errors.Wrap(err, "API request failed")
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			delay := retryAfter(resp.Header, respBody)
			p.log.Warn("rate limited", zap.Duration("wait", delay), zap.Int("attempt", attempt+1), zap.Int("max_retries", maxRetries))
			if attempt < maxRetries {
				if err := sleep(ctx, delay); err != nil {
					return "", err
				}
				continue
			}
			return "", errors.Newf("rate limited after %d retries: %s", maxRetries, truncate(string(respBody), 300))
		}

		if resp.StatusCode != http.StatusOK {
			if attempt < maxRetries && resp.StatusCode >= 500 {
				if err := sleep(ctx, p.backoff(attempt)); err != nil {
					return "", err
				}
				continue
			}
			return "", errors.Newf("API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 500))
		}

		return extractResponseText(respBody)
	}

	return "", errors.Newf("exhausted all %d retries", maxRetries)
}

func (p *OpenAI) backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * p.cfg.effectiveBackoff()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// extractResponseText pulls choices[0].message.content out of a chat
// completions response.
func extractResponseText(body []byte) (string, error) {
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", errors.Wrap(err, "invalid JSON response")
	}
	if len(resp.Error) > 0 && string(resp.Error) != "null" {
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(resp.Error, &apiErr) == nil && apiErr.Message != "" {
			return "", errors.Newf("API error: %s", apiErr.Message)
		}
		return "", errors.Newf("API error: %s", truncate(string(resp.Error), 300))
	}
	if len(resp.Choices) == 0 {
		return "", errors.Newf("could not extract text from response: %s", truncate(string(body), 500))
	}
	return resp.Choices[0].Message.Content, nil
}

// retryAfter reads the wait time of a 429 from the Retry-After header, then
// from a RetryInfo detail in the body, defaulting to 65s.
func retryAfter(h http.Header, body []byte) time.Duration {
	if v := strings.TrimSpace(h.Get("Retry-After")); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
			return time.Duration(secs * float64(time.Second))
		}
		if at, err := http.ParseTime(v); err == nil {
			return time.Until(at)
		}
	}
	return parseRetryDelay(body)
}

func parseRetryDelay(body []byte) time.Duration {
	const defaultDelay = 65 * time.Second

	var errResp struct {
		Error struct {
			Details []struct {
				Type       string `json:"@type"`
				RetryDelay string `json:"retryDelay"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return defaultDelay
	}
	for _, detail := range errResp.Error.Details {
		if strings.Contains(detail.Type, "RetryInfo") && detail.RetryDelay != "" {
			if secs, err := strconv.ParseFloat(strings.TrimSuffix(detail.RetryDelay, "s"), 64); err == nil {
				return time.Duration(secs*1000)*time.Millisecond + 5*time.Second
			}
		}
	}
	return defaultDelay
}

var markdownCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// parseTranslations extracts a JSON array of exactly expected strings from
// the model's reply.
func parseTranslations(content string, expected int) ([]string, error) {
	content = strings.TrimSpace(content)
	if m := markdownCodeBlock.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}

	var translations []string
	if err := json.Unmarshal([]byte(content), &translations); err != nil {
		return nil, errors.Wrapf(err, "parsing translation response as JSON array: %s", truncate(content, 300))
	}
	if len(translations) != expected {
		return nil, errors.Newf("got %d translations, expected %d", len(translations), expected)
	}
	return translations, nil
}

func escapeForPrompt(s string) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return fmt.Sprintf(`"%s"`, s)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
