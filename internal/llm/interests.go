package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/mrwolf/ppl-server/internal/models"
)

// historyWindow is how many chat turns are sent to the model
const historyWindow = 10

var interestBlockRe = regexp.MustCompile("(?s)```interests\\s*(.*?)```")

// Extraction is the assistant reply with its interest blocks removed, plus
// the interests those blocks contained
type Extraction struct {
	Message   string
	Interests []models.InterestInput
}

// ExtractInterests continues the ideation conversation and pulls structured
// interests out of the reply. existing lists canonical values the user
// already holds
func (c *Client) ExtractInterests(ctx context.Context, history []models.ChatMessage, existing []string) (Extraction, error) {
	system := extractSystemPrompt
	if len(existing) > 0 {
		system += "\n\nUser's existing interests (don't re-extract these): " + strings.Join(existing, ", ")
	}

	raw, err := c.GenerateText(ctx, system, formatHistory(history))
	if err != nil {
		return Extraction{}, err
	}
	return ParseExtraction(raw), nil
}

// ParseExtraction strips ```interests fenced blocks from text and decodes
// them. Malformed blocks are dropped; unknown categories become hobby
func ParseExtraction(text string) Extraction {
	var found []models.InterestInput
	display := interestBlockRe.ReplaceAllStringFunc(text, func(block string) string {
		m := interestBlockRe.FindStringSubmatch(block)
		var parsed []models.InterestInput
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &parsed); err != nil {
			return ""
		}
		for _, in := range parsed {
			in.CanonicalValue = strings.ToLower(strings.TrimSpace(in.CanonicalValue))
			if in.CanonicalValue == "" {
				continue
			}
			if !models.ValidCategory(in.Category) {
				in.Category = models.CategoryHobby
			}
			if strings.TrimSpace(in.RawValue) == "" {
				in.RawValue = in.CanonicalValue
			}
			found = append(found, in)
		}
		return ""
	})

	return Extraction{Message: strings.TrimSpace(display), Interests: found}
}

func formatHistory(history []models.ChatMessage) string {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	var b strings.Builder
	for _, m := range history {
		role := "User"
		if m.Role == "assistant" {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, m.Content)
	}
	b.WriteString("Assistant:")
	return b.String()
}

type matchResponse struct {
	Matches map[string]*string `json:"matches"`
}

// MatchInterests asks the model, in a single call, which known activity type
// fits each interest. The result maps every interest to a type name, or ""
// when the model found none
func (c *Client) MatchInterests(ctx context.Context, interests []string, types []models.ActivityRef) (map[string]string, error) {
	result := make(map[string]string, len(interests))
	if len(interests) == 0 || len(types) == 0 {
		return result, nil
	}

	var typeLines strings.Builder
	for _, at := range types {
		fmt.Fprintf(&typeLines, "- %s: %s\n", at.Name, at.DisplayName)
	}
	var interestLines strings.Builder
	for _, in := range interests {
		fmt.Fprintf(&interestLines, "- %s\n", in)
	}

	raw, err := c.Generate(ctx, matchSystemPrompt, fmt.Sprintf(matchPromptTemplate, typeLines.String(), interestLines.String()))
	if err != nil {
		return nil, err
	}

	var parsed matchResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, &models.ExternalServiceError{Service: serviceName, Err: fmt.Errorf("parsing match response: %w", err)}
	}

	for _, in := range interests {
		if name := parsed.Matches[in]; name != nil {
			result[in] = strings.TrimSpace(*name)
		} else {
			result[in] = ""
		}
	}
	return result, nil
}

// maxDescriptionLen bounds generated activity descriptions
const maxDescriptionLen = 280

// DescribeActivity generates a short blurb for an activity type
func (c *Client) DescribeActivity(ctx context.Context, displayName string) (string, error) {
	raw, err := c.GenerateText(ctx, describeSystemPrompt, fmt.Sprintf(describePromptTemplate, displayName))
	if err != nil {
		return "", err
	}

	desc := strings.Trim(strings.TrimSpace(raw), `"`)
	if desc == "" {
		return "", &models.ExternalServiceError{Service: serviceName, Err: fmt.Errorf("empty description for %s", displayName)}
	}
	if r := []rune(desc); len(r) > maxDescriptionLen {
		desc = strings.TrimSpace(string(r[:maxDescriptionLen]))
	}
	return desc, nil
}
