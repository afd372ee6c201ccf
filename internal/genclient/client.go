// Package genclient wraps the generative service behind the three
// operations the game needs: trending topic lookup, structured riddle
// generation, and illustration rendering. Calls are single-shot; a
// failure surfaces immediately as a typed error and the player decides
// whether to try again.
package genclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/samber/lo"
	"google.golang.org/api/option"

	constants "enigmo/internal/constants"
	models "enigmo/internal/models"
	util "enigmo/internal/util"
)

var (
	ErrUpstream = errors.New("the news service returned nothing usable")
	ErrParse    = errors.New("the riddle payload was missing or malformed")
	ErrNoImage  = errors.New("the image service returned no picture")
)

// contentGenerator is the slice of *genai.GenerativeModel the client
// actually uses, kept narrow so tests can feed canned responses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type Config struct {
	APIKey     string
	TextModel  string
	ImageModel string
}

type Client struct {
	api    *genai.Client
	topic  contentGenerator
	riddle contentGenerator
	image  contentGenerator
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	api, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, err
	}

	topicModel := api.GenerativeModel(cfg.TextModel)
	topicModel.Tools = []*genai.Tool{{GoogleSearchRetrieval: &genai.GoogleSearchRetrieval{}}}

	riddleModel := api.GenerativeModel(cfg.TextModel)
	riddleModel.ResponseMIMEType = "application/json"
	riddleModel.ResponseSchema = riddleSchema

	imageModel := api.GenerativeModel(cfg.ImageModel)

	return &Client{
		api:    api,
		topic:  topicModel,
		riddle: riddleModel,
		image:  imageModel,
	}, nil
}

func (c *Client) Close() error {
	if c.api != nil {
		return c.api.Close()
	}
	return nil
}

// FetchTrendingTopic asks for one current, family-friendly headline,
// optionally scoped to a category.
func (c *Client) FetchTrendingTopic(ctx context.Context, category string) (string, error) {
	resp, err := c.topic.GenerateContent(ctx, genai.Text(topicPrompt(category)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	topic := strings.TrimSpace(collectText(resp))
	topic = strings.Trim(topic, `"'`)
	if topic == "" {
		return "", ErrUpstream
	}
	util.LogInfo("Trending topic resolved: %s", topic)
	return topic, nil
}

// GenerateRiddle runs a structured-generation request and validates the
// payload into a RiddleRecord stamped with topic and difficulty.
func (c *Client) GenerateRiddle(ctx context.Context, topic, difficulty string) (*models.RiddleRecord, error) {
	resp, err := c.riddle.GenerateContent(ctx, genai.Text(riddlePrompt(topic, difficulty)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	payload := strings.TrimSpace(collectText(resp))
	if payload == "" {
		return nil, ErrParse
	}

	var record models.RiddleRecord
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if err := validateRiddle(&record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	record.Topic = topic
	record.Difficulty = difficulty
	return &record, nil
}

// GenerateImage renders the riddle illustration and returns it as a
// data URI. The first inline payload in the response wins.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	resp, err := c.image.GenerateContent(ctx, genai.Text(imagePrompt(prompt)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoImage, err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if blob, ok := part.(genai.Blob); ok && len(blob.Data) > 0 {
				mime := blob.MIMEType
				if mime == "" {
					mime = "image/png"
				}
				return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(blob.Data), nil
			}
		}
	}
	return "", ErrNoImage
}

func validateRiddle(r *models.RiddleRecord) error {
	if strings.TrimSpace(r.Question) == "" {
		return errors.New("empty question")
	}
	if len(r.Choices) != constants.ChoiceCount {
		return fmt.Errorf("expected %d choices, got %d", constants.ChoiceCount, len(r.Choices))
	}
	if len(lo.Uniq(r.Choices)) != constants.ChoiceCount {
		return errors.New("choices are not distinct")
	}
	if r.AnswerIndex < 0 || r.AnswerIndex >= len(r.Choices) {
		return fmt.Errorf("answer index %d out of range", r.AnswerIndex)
	}
	return nil
}

func collectText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				sb.WriteString(string(txt))
			}
		}
	}
	return sb.String()
}
