package genclient

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
)

type cannedGenerator struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (g *cannedGenerator) GenerateContent(_ context.Context, _ ...genai.Part) (*genai.GenerateContentResponse, error) {
	return g.resp, g.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(text)}},
		}},
	}
}

func blobResponse(mime string, data []byte) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text("here is your picture"),
				genai.Blob{MIMEType: mime, Data: data},
			}},
		}},
	}
}

const validPayload = `{
	"imagePrompt": "a robot reading a newspaper",
	"question": "What never sleeps but always updates?",
	"choices": ["A news feed", "A rock", "A sundial", "A calendar"],
	"answerIndex": 0,
	"hints": ["It scrolls", "It refreshes"],
	"funFact": "The first webcam watched a coffee pot."
}`

func TestGenerateRiddle(t *testing.T) {
	c := &Client{riddle: &cannedGenerator{resp: textResponse(validPayload)}}

	record, err := c.GenerateRiddle(context.Background(), "the internet", "medium")
	if err != nil {
		t.Fatalf("GenerateRiddle failed: %v", err)
	}
	if record.Topic != "the internet" || record.Difficulty != "medium" {
		t.Errorf("Record not stamped: topic=%q difficulty=%q", record.Topic, record.Difficulty)
	}
	if len(record.Choices) != 4 || record.AnswerIndex != 0 {
		t.Errorf("Unexpected record contents: %+v", record)
	}
}

func TestGenerateRiddleRejectsBadPayloads(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"empty", ""},
		{"not json", "whoops"},
		{"three choices", `{"imagePrompt":"x","question":"q","choices":["a","b","c"],"answerIndex":0,"hints":[],"funFact":"f"}`},
		{"duplicate choices", `{"imagePrompt":"x","question":"q","choices":["a","a","b","c"],"answerIndex":0,"hints":[],"funFact":"f"}`},
		{"answer out of range", `{"imagePrompt":"x","question":"q","choices":["a","b","c","d"],"answerIndex":4,"hints":[],"funFact":"f"}`},
		{"negative answer", `{"imagePrompt":"x","question":"q","choices":["a","b","c","d"],"answerIndex":-1,"hints":[],"funFact":"f"}`},
		{"blank question", `{"imagePrompt":"x","question":" ","choices":["a","b","c","d"],"answerIndex":0,"hints":[],"funFact":"f"}`},
	}

	for _, tc := range cases {
		c := &Client{riddle: &cannedGenerator{resp: textResponse(tc.payload)}}
		if _, err := c.GenerateRiddle(context.Background(), "t", "easy"); !errors.Is(err, ErrParse) {
			t.Errorf("%s: expected ErrParse, got %v", tc.name, err)
		}
	}
}

func TestGenerateRiddleUpstreamError(t *testing.T) {
	c := &Client{riddle: &cannedGenerator{err: errors.New("boom")}}
	if _, err := c.GenerateRiddle(context.Background(), "t", "easy"); !errors.Is(err, ErrParse) {
		t.Errorf("Expected ErrParse wrapping the call error, got %v", err)
	}
}

func TestFetchTrendingTopic(t *testing.T) {
	c := &Client{topic: &cannedGenerator{resp: textResponse("  \"Mars rover finds ice\"  ")}}
	topic, err := c.FetchTrendingTopic(context.Background(), "science")
	if err != nil {
		t.Fatalf("FetchTrendingTopic failed: %v", err)
	}
	if topic != "Mars rover finds ice" {
		t.Errorf("Topic = %q, want trimmed and unquoted text", topic)
	}
}

func TestFetchTrendingTopicEmpty(t *testing.T) {
	c := &Client{topic: &cannedGenerator{resp: textResponse("   ")}}
	if _, err := c.FetchTrendingTopic(context.Background(), ""); !errors.Is(err, ErrUpstream) {
		t.Errorf("Expected ErrUpstream, got %v", err)
	}
}

func TestGenerateImage(t *testing.T) {
	data := []byte{0x89, 0x50, 0x4e, 0x47}
	c := &Client{image: &cannedGenerator{resp: blobResponse("image/webp", data)}}

	uri, err := c.GenerateImage(context.Background(), "a riddle illustration")
	if err != nil {
		t.Fatalf("GenerateImage failed: %v", err)
	}
	want := "data:image/webp;base64," + base64.StdEncoding.EncodeToString(data)
	if uri != want {
		t.Errorf("URI = %q, want %q", uri, want)
	}
}

func TestGenerateImageDefaultsMime(t *testing.T) {
	c := &Client{image: &cannedGenerator{resp: blobResponse("", []byte{1, 2, 3})}}
	uri, err := c.GenerateImage(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(uri, "data:image/png;base64,") {
		t.Errorf("URI = %q, want image/png default", uri)
	}
}

func TestGenerateImageNoBlob(t *testing.T) {
	c := &Client{image: &cannedGenerator{resp: textResponse("no image for you")}}
	if _, err := c.GenerateImage(context.Background(), "x"); !errors.Is(err, ErrNoImage) {
		t.Errorf("Expected ErrNoImage, got %v", err)
	}
}
