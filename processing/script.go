package processing

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

// ScriptScene is one scene of the generated script.
type ScriptScene struct {
	Description string `json:"description" jsonschema_description:"A short label describing the scene"`
	ImagePrompt string `json:"imagePrompt" jsonschema_description:"A detailed text-to-image prompt for the scene's visual"`
	TextContent string `json:"textContent" jsonschema_description:"The narration text spoken over this scene"`
}

// ScriptResponse is the structured output of the script generation call.
type ScriptResponse struct {
	Title  string        `json:"title" jsonschema_description:"An engaging title for the video"`
	Scenes []ScriptScene `json:"scenes" jsonschema_description:"The ordered scenes making up the video. Aim for 3-5 scenes."`
}

// ScriptGenerator turns a prompt into a titled scene script.
type ScriptGenerator interface {
	GenerateScript(ctx context.Context, prompt string) (*ScriptResponse, error)
}

// GenerateSchema generates a JSON schema for structured outputs.
func GenerateSchema[T any]() interface{} {
	// Structured Outputs uses a subset of JSON schema
	// These flags are necessary to comply with the subset
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// scriptResponseSchema is the cached schema
var scriptResponseSchema = GenerateSchema[ScriptResponse]()

// OpenAIScriptGenerator generates video scripts with OpenAI structured
// outputs so the response is guaranteed to match ScriptResponse.
type OpenAIScriptGenerator struct {
	client openai.Client
	model  openai.ChatModel
	logger *zap.Logger
}

func NewOpenAIScriptGenerator(apiKey, model string, logger *zap.Logger) (*OpenAIScriptGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	m := openai.ChatModelGPT4oMini
	if model != "" {
		m = openai.ChatModel(model)
	}
	return &OpenAIScriptGenerator{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  m,
		logger: logger,
	}, nil
}

func (g *OpenAIScriptGenerator) GenerateScript(ctx context.Context, prompt string) (*ScriptResponse, error) {
	resp, err := getStructuredResponse[ScriptResponse](ctx, g.client, g.model, prompt, scriptResponseSchema)
	if err != nil {
		return nil, err
	}
	g.logger.Info("script generated",
		zap.String("title", resp.Title),
		zap.Int("scenes", len(resp.Scenes)))
	return resp, nil
}

// getStructuredResponse is a helper function to call the OpenAI API with JSON
// schema enforcement.
func getStructuredResponse[T any](ctx context.Context, client openai.Client, model openai.ChatModel, prompt string, schema interface{}) (*T, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "structured_response",
		Description: openai.String("Structured data response"),
		Schema:      schema,
		Strict:      openai.Bool(true),
	}

	chatCompletion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: model,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(chatCompletion.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	rawResponse := chatCompletion.Choices[0].Message.Content
	if rawResponse == "" {
		return nil, fmt.Errorf("OpenAI returned empty response. Finish reason: %s", chatCompletion.Choices[0].FinishReason)
	}

	var structuredResponse T
	if err := json.Unmarshal([]byte(rawResponse), &structuredResponse); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAI JSON response: %w", err)
	}

	return &structuredResponse, nil
}
