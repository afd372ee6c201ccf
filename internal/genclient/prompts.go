package genclient

import (
	"fmt"

	"github.com/google/generative-ai-go/genai"
)

const topicPromptBase = `Find one current, family-friendly news headline that would make a fun trivia subject. Respond with only the subject itself as a short phrase, no commentary, no quotation marks.`

const riddlePromptTemplate = `You are a riddle master for a news trivia game. Create one multiple-choice riddle about the topic below.

Topic: %s

%s

Rules:
- "question" is the riddle itself, addressed to the player.
- "choices" holds exactly 4 distinct answer options.
- "answerIndex" is the zero-based index of the correct choice.
- "hints" holds 2 or 3 progressively more revealing hints.
- "funFact" is a surprising true fact shown after the player answers.
- "imagePrompt" describes an illustration for the riddle. It must never
  state or spell out the correct answer.`

// Difficulty-specific instruction texts. Easy stays literal, hard goes
// abstract; the default is standard wordplay.
const (
	instructionEasy   = `Keep it easy: literal and direct, solvable by anyone who skims the news.`
	instructionMedium = `Standard difficulty: lean on wordplay and light misdirection.`
	instructionHard   = `Make it hard: abstract and symbolic, rewarding lateral thinking.`
)

func riddlePrompt(topic, difficulty string) string {
	instruction := instructionMedium
	switch difficulty {
	case "easy":
		instruction = instructionEasy
	case "hard":
		instruction = instructionHard
	}
	return fmt.Sprintf(riddlePromptTemplate, topic, instruction)
}

func topicPrompt(category string) string {
	if category == "" {
		return topicPromptBase
	}
	return topicPromptBase + fmt.Sprintf(" Scope it to the %q category.", category)
}

func imagePrompt(description string) string {
	return "A vibrant, whimsical illustration, no text or lettering anywhere in the image: " + description
}

// riddleSchema constrains structured generation to exactly the six
// riddle fields. Array sizes cannot be pinned in the schema itself, so
// the parser re-checks them.
var riddleSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"imagePrompt": {
			Type:        genai.TypeString,
			Description: "Illustration description. Must not reveal the answer.",
		},
		"question": {
			Type:        genai.TypeString,
			Description: "The riddle text shown to the player.",
		},
		"choices": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: "Exactly 4 distinct answer options.",
		},
		"answerIndex": {
			Type:        genai.TypeInteger,
			Description: "Zero-based index of the correct choice.",
		},
		"hints": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: "Progressively more revealing hints.",
		},
		"funFact": {
			Type:        genai.TypeString,
			Description: "A surprising true fact about the topic.",
		},
	},
	Required: []string{"imagePrompt", "question", "choices", "answerIndex", "hints", "funFact"},
}
