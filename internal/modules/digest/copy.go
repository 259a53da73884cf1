package digest

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	neturl "net/url"
	"path"
	"strings"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/edgeflowers/newsletter/internal/config"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	jetai "go.jetify.com/ai"
	jetapi "go.jetify.com/ai/api"
	jetanthropic "go.jetify.com/ai/provider/anthropic"
	jetopenai "go.jetify.com/ai/provider/openai"
)

const (
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-haiku-4-5-20251001"
	maxCopyTokens         = 600
)

// Copy is the generated text for one flower.
type Copy struct {
	Description string   `json:"description"`
	Uses        []string `json:"uses"`
}

var (
	// fallbackCopy is used when no provider reply is available at all.
	fallbackCopy = Copy{
		Description: "A beautiful, resilient flower.",
		Uses:        []string{"Decoration", "Gifting"},
	}
	defaultUses        = []string{"Bouquets", "Weddings", "Home decor"}
	defaultDescription = "A beautiful flower."
)

// Copywriter produces the raw model reply for a flower.
type Copywriter interface {
	Write(ctx context.Context, flower string) (string, error)
}

// ParseCopy decodes a model reply. Replies without a JSON object become the
// description verbatim.
func ParseCopy(raw string) Copy {
	out, ok := decodeCopy(raw)
	if !ok {
		return Copy{Description: strings.TrimSpace(raw), Uses: append([]string(nil), defaultUses...)}
	}
	out.Description = strings.TrimSpace(out.Description)
	if out.Description == "" {
		out.Description = defaultDescription
	}
	uses := out.Uses[:0]
	for _, u := range out.Uses {
		if u = strings.TrimSpace(u); u != "" {
			uses = append(uses, u)
		}
	}
	if len(uses) == 0 {
		uses = append([]string(nil), defaultUses...)
	}
	out.Uses = uses
	return out
}

// decodeCopy decodes the first JSON object in raw. Code fences and prose
// around the object are ignored since decoding stops at the closing brace.
func decodeCopy(raw string) (Copy, bool) {
	for i := strings.IndexByte(raw, '{'); i >= 0; {
		var out Copy
		if err := json.NewDecoder(strings.NewReader(raw[i:])).Decode(&out); err == nil {
			return out, true
		}
		next := strings.IndexByte(raw[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return Copy{}, false
}

func buildCopyPrompt(flower string) string {
	return fmt.Sprintf(`You are writing a concise, friendly weekly email for subscribers about a flower.
Flower name: %q

Write:
1) A short 3-4 sentence description (tone: warm, helpful; no fluff). Markdown emphasis is allowed.
2) 3-5 short ideal uses (weddings, bouquets, table centerpieces, gifting, decor, symbolism, etc.).

Only return JSON with keys: description, uses (array of strings).`, flower)
}

type modelBuilder func(apiKey, modelID, endpoint string) jetapi.LanguageModel

var modelBuilders = map[string]modelBuilder{
	"openai":            newOpenAIModel,
	"openai-compatible": newOpenAIModel,
	"anthropic":         newAnthropicModel,
}

// AICopywriter asks the configured language model for flower copy.
type AICopywriter struct {
	model jetapi.LanguageModel
}

// NewAICopywriter builds the provider client. It fails without an API key
// or for an unknown provider type.
func NewAICopywriter(provider config.AIProvider) (*AICopywriter, error) {
	apiKey := strings.TrimSpace(provider.APIKey)
	if apiKey == "" {
		return nil, errors.New("ai provider api key is empty")
	}
	build, ok := modelBuilders[provider.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported ai provider %q", provider.Type)
	}
	model := build(apiKey, strings.TrimSpace(provider.Model), strings.TrimSpace(provider.Endpoint))
	return &AICopywriter{model: model}, nil
}

func (w *AICopywriter) Write(ctx context.Context, flower string) (string, error) {
	resp, err := jetai.GenerateText(
		ctx,
		[]jetapi.Message{&jetapi.UserMessage{Content: jetapi.ContentFromText(buildCopyPrompt(flower))}},
		jetai.WithModel(w.model),
		jetai.WithMaxOutputTokens(maxCopyTokens),
	)
	if err != nil {
		return "", fmt.Errorf("generate copy for %q: %w", flower, err)
	}
	return replyText(resp)
}

func replyText(resp *jetapi.Response) (string, error) {
	var parts []string
	if resp != nil {
		for _, block := range resp.Content {
			if tb, ok := block.(*jetapi.TextBlock); ok {
				parts = append(parts, tb.Text)
			}
		}
	}
	text := strings.Join(parts, "")
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty reply from ai provider")
	}
	return text, nil
}

func newOpenAIModel(apiKey, modelID, endpoint string) jetapi.LanguageModel {
	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(apiKey),
		openaioption.WithMaxRetries(0),
	}
	if base := openAIBaseURL(endpoint); base != "" {
		opts = append(opts, openaioption.WithBaseURL(base))
	}
	client := openaiclient.NewClient(opts...)
	return jetopenai.NewLanguageModel(cmp.Or(modelID, defaultOpenAIModel), jetopenai.WithClient(client))
}

func newAnthropicModel(apiKey, modelID, endpoint string) jetapi.LanguageModel {
	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithMaxRetries(0),
	}
	if endpoint != "" {
		opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(endpoint, "/")))
	}
	client := anthropicclient.NewClient(opts...)
	return jetanthropic.NewLanguageModel(cmp.Or(modelID, defaultAnthropicModel), jetanthropic.WithClient(client))
}

// openAIBaseURL points a custom endpoint at its /v1 API root.
func openAIBaseURL(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	u, err := neturl.Parse(endpoint)
	if endpoint == "" || err != nil || u.Host == "" {
		return endpoint
	}
	if path.Base(u.Path) != "v1" {
		u.Path = path.Join("/", u.Path, "v1")
	}
	return u.String()
}
